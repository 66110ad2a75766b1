// Package scoring turns raw test inputs into normative results: it computes
// raw scores, resolves the reference tables and maps every subscale onto a
// percentile band.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
	"github.com/mind-engage/mindengage-norms/internal/norms"
)

// Scoring outcomes reported to the Observer.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeInvalid  = "invalid"
)

// Resolution miss reasons reported to the Observer.
const (
	MissNoTable          = "no_table"
	MissNoCompanion      = "no_companion"
	MissOutOfRange       = "out_of_range"
	MissStoreUnavailable = "store_unavailable"
)

// Observer receives scoring telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveScore(t instrument.Type, outcome string, d time.Duration)
	ResolutionMiss(t instrument.Type, reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveScore(instrument.Type, string, time.Duration) {}
func (nopObserver) ResolutionMiss(instrument.Type, string)              {}

// Engine scores queries against a read-only normative store. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	store    norms.Store
	resolver *norms.Resolver
	log      *zap.Logger
	obs      Observer
	newID    func() string
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.obs = o
		}
	}
}

// WithIDFunc replaces the result ID generator (uuid v4 by default).
func WithIDFunc(f func() string) Option {
	return func(e *Engine) {
		if f != nil {
			e.newID = f
		}
	}
}

func NewEngine(s norms.Store, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		log:   zap.NewNop(),
		obs:   nopObserver{},
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	e.resolver = norms.NewResolver(s, e.log)
	return e
}

// Score validates q, computes the raw scores and classifies them. The only
// error returned is a *instrument.ValidationError; every normative failure
// degrades into sentinel classifications plus warnings on the result.
func (e *Engine) Score(ctx context.Context, q Query) (Result, error) {
	start := time.Now()
	t, err := instrument.ParseType(string(q.Instrument))
	if err != nil {
		e.obs.ObserveScore(q.Instrument, OutcomeInvalid, time.Since(start))
		return Result{}, err
	}
	out, err := instrument.Calculate(t, q.Inputs)
	if err != nil {
		e.obs.ObserveScore(t, OutcomeInvalid, time.Since(start))
		return Result{}, err
	}

	res := Result{
		ID:           e.newID(),
		Instrument:   t,
		PercentOfMax: out.PercentOfMax,
		Metrics:      out.Palographic,
	}
	slots := make([]slot, len(out.Scores))
	var pending []int
	for i, s := range out.Scores {
		slots[i].res = SubscaleResult{Subscale: s.Subscale, Raw: s.Raw}
		if s.Subtractive && s.Raw < 0 {
			slots[i].res.Classification = norms.ClassInvalid
			slots[i].warn(fmt.Sprintf("%s: escore bruto negativo (%v); resultado inválido", s.Subscale, s.Raw))
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		e.classify(ctx, t, q, &res, slots, pending)
	}

	for _, s := range slots {
		res.Subscales = append(res.Subscales, s.res)
		res.Warnings = append(res.Warnings, s.warnings...)
	}
	e.summarize(t, q.Criteria, &res)

	outcome := OutcomeOK
	if res.Degraded() {
		outcome = OutcomeDegraded
	}
	e.obs.ObserveScore(t, outcome, time.Since(start))
	return res, nil
}

// slot is the per-subscale workspace; each lookup goroutine writes only its own.
type slot struct {
	res      SubscaleResult
	warnings []string
}

func (s *slot) warn(msg string) { s.warnings = append(s.warnings, msg) }

func (e *Engine) classify(ctx context.Context, t instrument.Type, q Query, res *Result, slots []slot, pending []int) {
	rz, err := e.resolver.Resolve(ctx, t, q.Criteria, q.TableID)
	res.Warnings = append(res.Warnings, rz.Warnings...)
	if err != nil {
		label, reason, msg := norms.ClassNoTable, MissNoTable, "nenhuma tabela normativa ativa para o instrumento"
		if errors.Is(err, norms.ErrStoreUnavailable) {
			label, reason, msg = norms.ClassUnavailable, MissStoreUnavailable, "dados normativos indisponíveis no momento"
		} else if q.TableID != nil {
			msg = fmt.Sprintf("tabela normativa %d não encontrada ou inativa", *q.TableID)
		}
		e.log.Warn("table resolution failed", zap.String("instrument", string(t)), zap.Error(err))
		e.obs.ResolutionMiss(t, reason)
		res.Warnings = append(res.Warnings, msg)
		for _, i := range pending {
			slots[i].res.Classification = label
		}
		return
	}
	id := rz.Primary.ID
	res.ResolvedTableID = &id
	res.ResolvedVia = rz.Via

	g, gctx := errgroup.WithContext(ctx)
	for _, i := range pending {
		sl := &slots[i]
		tb, ok := rz.TableFor(sl.res.Subscale)
		if !ok {
			sl.res.Classification = norms.ClassNoTable
			e.obs.ResolutionMiss(t, MissNoCompanion)
			continue
		}
		g.Go(func() error {
			e.lookup(gctx, t, q.Criteria, tb, sl)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) lookup(ctx context.Context, t instrument.Type, c norms.Criteria, tb norms.Table, sl *slot) {
	sub := sl.res.Subscale
	tableID := tb.ID
	sl.res.TableID = &tableID

	rows, err := e.store.ListRows(ctx, tb.ID, sub)
	if err != nil {
		e.log.Warn("row read failed", zap.String("instrument", string(t)),
			zap.Int64("table_id", tb.ID), zap.String("subscale", string(sub)), zap.Error(err))
		e.obs.ResolutionMiss(t, MissStoreUnavailable)
		sl.res.Classification = norms.ClassUnavailable
		sl.warn(fmt.Sprintf("%s: dados normativos indisponíveis", sub))
		return
	}
	m, ok := norms.Lookup(rows, sub, norms.RowCriterion(rows, c), sl.res.Raw)
	if !ok {
		e.log.Warn("raw score outside normative range", zap.String("instrument", string(t)),
			zap.Int64("table_id", tb.ID), zap.String("subscale", string(sub)), zap.Float64("raw", sl.res.Raw))
		e.obs.ResolutionMiss(t, MissOutOfRange)
		sl.res.Classification = norms.ClassOutOfRange
		sl.warn(fmt.Sprintf("%s: escore %v fora da faixa da tabela %q", sub, sl.res.Raw, tb.Name))
		return
	}
	p, rowID := m.Row.Percentile, m.Row.ID
	sl.res.Percentile = &p
	sl.res.Classification = m.Row.Classification
	sl.res.RowID = &rowID
	sl.res.MatchLevel = m.Level.String()
}

// summarize fills the top-level fields, including the table that served them.
// Single-scale instruments report their
// only score; the attention battery reports its composite; route attention
// has no composite and leaves them empty. The graphomotor test reports
// productivity and gains an interpretation.
func (e *Engine) summarize(t instrument.Type, c norms.Criteria, res *Result) {
	spec, _ := instrument.Lookup(t)
	var top instrument.Subscale
	switch {
	case t == instrument.Palographic:
		top = instrument.Productivity
		res.Interpretation = Interpret(c.Context, res.Subscales)
	case spec.Composite != "":
		top = spec.Composite
	case !spec.MultiScale():
		top = instrument.SubscaleTotal
	default:
		return
	}
	s, ok := res.Subscale(top)
	if !ok {
		return
	}
	raw := s.Raw
	res.RawScore = &raw
	if s.TableID != nil {
		id := *s.TableID
		res.ResolvedTableID = &id
	}
	res.Percentile = s.Percentile
	res.Classification = s.Classification
}
