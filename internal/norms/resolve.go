package norms

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
)

// How a table was chosen.
const (
	ViaExplicit  = "explicit"
	ViaCriterion = "criterion"
	ViaGeneric   = "generic"
	ViaFirst     = "first_active"
)

// Resolution is the outcome of table resolution for one request.
type Resolution struct {
	Primary Table
	// Tables maps each subscale of the instrument to the table that serves it.
	// Subscales without an entry have no normative data.
	Tables map[instrument.Subscale]Table
	Via    string
	// Dimension is the criterion axis that matched, for Via == ViaCriterion.
	Dimension Dimension
	Warnings  []string
}

// TableFor returns the table serving sub.
func (r Resolution) TableFor(sub instrument.Subscale) (Table, bool) {
	t, ok := r.Tables[sub]
	return t, ok
}

// Resolver selects normative tables from a Store.
type Resolver struct {
	store Store
	log   *zap.Logger
}

// NewResolver returns a Resolver over s. A nil logger disables logging.
func NewResolver(s Store, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{store: s, log: log}
}

// Resolve picks the table (and companion subscale tables) for instrument t.
//
// With an explicit ID the caller's table is used as is. Otherwise the most
// specific supplied criterion is tried through a criterion-scoped read; if
// that read fails the generic read is the one local fallback. Over the
// generic set the remaining criteria are tried in Priority order, then the
// table flagged Generic, then the lowest ID. ErrNotFound means the instrument
// has no active table; ErrStoreUnavailable means neither read succeeded.
func (r *Resolver) Resolve(ctx context.Context, t instrument.Type, c Criteria, explicitID *int64) (Resolution, error) {
	spec, ok := instrument.Lookup(t)
	if !ok {
		return Resolution{}, fmt.Errorf("resolve %s: %w", t, ErrNotFound)
	}
	if explicitID != nil {
		return r.resolveExplicit(ctx, spec, *explicitID)
	}

	var res Resolution
	axes := c.supplied()
	scopedFailed := false
	if len(axes) > 0 {
		dim := axes[0]
		f := &Filter{Dimension: dim, Value: c.Value(dim)}
		if dim == DimAge {
			f.Value = ""
		}
		scoped, err := r.store.ListActiveTables(ctx, t, f)
		switch {
		case err != nil:
			scopedFailed = true
			res.Warnings = append(res.Warnings, fmt.Sprintf("leitura por critério (%s) falhou; usando tabelas gerais", dim))
			r.log.Warn("criterion-scoped table read failed",
				zap.String("instrument", string(t)), zap.String("dimension", string(dim)), zap.Error(err))
		default:
			if primary, ok := matchAxis(scoped, dim, c); ok {
				res.Primary, res.Via, res.Dimension = primary, ViaCriterion, dim
				res.Tables = assign(spec, primary, scoped)
				res.Warnings = append(res.Warnings, missing(spec, res.Tables)...)
				return res, nil
			}
		}
	}

	all, err := r.store.ListActiveTables(ctx, t, nil)
	if err != nil {
		r.log.Warn("generic table read failed", zap.String("instrument", string(t)), zap.Error(err))
		return Resolution{Warnings: res.Warnings}, fmt.Errorf("resolve %s: %w: %v", t, ErrStoreUnavailable, err)
	}
	if len(all) == 0 {
		return Resolution{Warnings: res.Warnings}, fmt.Errorf("resolve %s: %w", t, ErrNotFound)
	}
	sortTables(all)

	rest := axes
	if len(rest) > 0 && !scopedFailed {
		rest = rest[1:]
	}
	for _, dim := range rest {
		if primary, ok := matchAxis(all, dim, c); ok {
			res.Primary, res.Via, res.Dimension = primary, ViaCriterion, dim
			break
		}
	}
	if res.Via == "" {
		for _, tb := range all {
			if tb.Generic {
				res.Primary, res.Via = tb, ViaGeneric
				break
			}
		}
	}
	if res.Via == "" {
		res.Primary, res.Via = all[0], ViaFirst
	}
	res.Tables = assign(spec, res.Primary, all)
	res.Warnings = append(res.Warnings, missing(spec, res.Tables)...)
	return res, nil
}

func (r *Resolver) resolveExplicit(ctx context.Context, spec instrument.Spec, id int64) (Resolution, error) {
	all, err := r.store.ListActiveTables(ctx, spec.Type, nil)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve %s table %d: %w: %v", spec.Type, id, ErrStoreUnavailable, err)
	}
	sortTables(all)
	for _, tb := range all {
		if tb.ID == id {
			res := Resolution{Primary: tb, Via: ViaExplicit, Tables: assign(spec, tb, all)}
			res.Warnings = missing(spec, res.Tables)
			return res, nil
		}
	}
	return Resolution{}, fmt.Errorf("resolve %s table %d: %w", spec.Type, id, ErrNotFound)
}

// matchAxis returns the lowest-ID table stratified by dim whose criterion
// value matches c.
func matchAxis(tables []Table, dim Dimension, c Criteria) (Table, bool) {
	sortTables(tables)
	for _, tb := range tables {
		if tb.Dimension == dim && criterionMatches(dim, tb.CriterionValue, c) {
			return tb, true
		}
	}
	return Table{}, false
}

// assign maps every subscale of spec to a table. Companions share the
// primary's dimension, criterion value and generic flag and are keyed by their
// declared subscale. A subscale without a companion falls back to the primary
// when the primary serves it.
func assign(spec instrument.Spec, primary Table, pool []Table) map[instrument.Subscale]Table {
	out := map[instrument.Subscale]Table{}
	for _, sub := range spec.AllSubscales() {
		if primary.Subscale == sub {
			out[sub] = primary
			continue
		}
		for _, tb := range pool {
			if tb.Subscale == sub && companion(primary, tb) {
				out[sub] = tb
				break
			}
		}
		if _, ok := out[sub]; !ok && primary.Serves(sub) {
			out[sub] = primary
		}
	}
	if !spec.MultiScale() {
		out[instrument.SubscaleTotal] = primary
	}
	return out
}

func companion(a, b Table) bool {
	return a.Instrument == b.Instrument &&
		a.Dimension == b.Dimension &&
		a.CriterionValue == b.CriterionValue &&
		a.Generic == b.Generic
}

func missing(spec instrument.Spec, tables map[instrument.Subscale]Table) []string {
	var out []string
	for _, sub := range spec.AllSubscales() {
		if _, ok := tables[sub]; !ok {
			out = append(out, fmt.Sprintf("sem tabela normativa para a subescala %s", sub))
		}
	}
	return out
}

func sortTables(ts []Table) {
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
}
