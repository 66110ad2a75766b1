package scoring_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
	"github.com/mind-engage/mindengage-norms/internal/norms"
	"github.com/mind-engage/mindengage-norms/internal/scoring"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func upper(v float64) *float64 { return &v }

func band(sub instrument.Subscale, lo float64, hi *float64, p int, class string) norms.RowSpec {
	return norms.RowSpec{Subscale: sub, Lower: lo, Upper: hi, Percentile: p, Classification: class, CriterionValue: norms.WholeSample}
}

// fixedLadder covers [0, ∞) for sub with ten-point bands.
func fixedLadder(sub instrument.Subscale) []norms.RowSpec {
	var out []norms.RowSpec
	for i := 0; i < 9; i++ {
		out = append(out, band(sub, float64(i*10), upper(float64(i*10+9)), (i+1)*10, "Médio"))
	}
	return append(out, band(sub, 90, nil, 99, "Muito Superior"))
}

func seed(t *testing.T, specs ...norms.TableSpec) *norms.MemoryStore {
	t.Helper()
	s := norms.NewMemoryStore()
	for _, sp := range specs {
		_, err := s.Populate(context.Background(), sp)
		require.NoError(t, err)
	}
	return s
}

var acTable = norms.TableSpec{
	Name:       "ac-geral",
	Instrument: instrument.AC,
	Generic:    true,
	Rows: []norms.RowSpec{
		band("", 0, upper(69), 20, "Inferior"),
		band("", 70, upper(79), 50, "Médio"),
		band("", 80, nil, 80, "Superior"),
	},
}

type recorder struct {
	mu       sync.Mutex
	outcomes []string
	misses   []string
}

func (r *recorder) ObserveScore(_ instrument.Type, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recorder) ResolutionMiss(_ instrument.Type, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses = append(r.misses, reason)
}

func TestScore_ScenarioA_AttentionConcentration(t *testing.T) {
	store := seed(t, acTable)
	rec := &recorder{}
	e := scoring.NewEngine(store, scoring.WithObserver(rec))

	res, err := e.Score(context.Background(), scoring.Query{
		Instrument: instrument.AC,
		Inputs:     []byte(`{"correct":80,"errors":5,"omissions":3}`),
	})
	require.NoError(t, err)

	require.NotNil(t, res.RawScore)
	assert.Equal(t, 72.0, *res.RawScore)
	require.NotNil(t, res.Percentile)
	assert.Equal(t, 50, *res.Percentile)
	assert.Equal(t, "Médio", res.Classification)
	require.NotNil(t, res.ResolvedTableID)
	assert.Equal(t, norms.ViaGeneric, res.ResolvedVia)
	assert.Empty(t, res.Warnings)

	_, err = uuid.Parse(res.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{scoring.OutcomeOK}, rec.outcomes)
	assert.Empty(t, rec.misses)
}

func TestScore_ScenarioB_BatteryGeneralIsLookedUpOnItsOwnTable(t *testing.T) {
	var specs []norms.TableSpec
	for _, sub := range []instrument.Subscale{instrument.Alternating, instrument.Concentrated, instrument.Divided} {
		specs = append(specs, norms.TableSpec{
			Name: "bpa-" + string(sub), Instrument: instrument.AttentionBattery, Subscale: sub, Generic: true,
			Rows: fixedLadder(sub),
		})
	}
	specs = append(specs, norms.TableSpec{
		Name: "bpa-general", Instrument: instrument.AttentionBattery, Subscale: instrument.General, Generic: true,
		Rows: []norms.RowSpec{
			band(instrument.General, 0, upper(199), 30, "Médio Inferior"),
			band(instrument.General, 200, upper(229), 60, "Médio Superior"),
			band(instrument.General, 230, nil, 90, "Superior"),
		},
	})
	e := scoring.NewEngine(seed(t, specs...))

	res, err := e.Score(context.Background(), scoring.Query{
		Instrument: instrument.AttentionBattery,
		Inputs: []byte(`{
			"alternating":{"correct":80,"errors":6,"omissions":4},
			"concentrated":{"correct":80,"errors":3,"omissions":2},
			"divided":{"correct":70,"errors":5,"omissions":0},
			"general":{"correct":999,"errors":0,"omissions":0}
		}`),
	})
	require.NoError(t, err)

	require.Len(t, res.Subscales, 4)
	gen, ok := res.Subscale(instrument.General)
	require.True(t, ok)
	assert.Equal(t, 210.0, gen.Raw)
	require.NotNil(t, gen.Percentile)
	assert.Equal(t, 60, *gen.Percentile)
	assert.Equal(t, "Médio Superior", gen.Classification)

	require.NotNil(t, res.RawScore)
	assert.Equal(t, 210.0, *res.RawScore)
	assert.Equal(t, "Médio Superior", res.Classification)

	alt, _ := res.Subscale(instrument.Alternating)
	require.NotNil(t, alt.Percentile)
	assert.Equal(t, 80, *alt.Percentile)
	assert.NotEqual(t, *alt.TableID, *gen.TableID)
	require.NotNil(t, res.ResolvedTableID)
	assert.Equal(t, *gen.TableID, *res.ResolvedTableID)
}

func TestScore_ScenarioC_RoutesWithoutTables(t *testing.T) {
	rec := &recorder{}
	e := scoring.NewEngine(norms.NewMemoryStore(), scoring.WithObserver(rec))

	res, err := e.Score(context.Background(), scoring.Query{
		Instrument: instrument.RouteAttention,
		Inputs: []byte(`{
			"route_a":{"correct":50,"errors":2,"omissions":3},
			"route_b":{"correct":40,"errors":1,"omissions":1},
			"route_c":{"correct":45,"errors":0,"omissions":5}
		}`),
	})
	require.NoError(t, err)

	want := map[instrument.Subscale]float64{instrument.RouteA: 45, instrument.RouteB: 38, instrument.RouteC: 40}
	require.Len(t, res.Subscales, 3)
	for _, s := range res.Subscales {
		assert.Equal(t, want[s.Subscale], s.Raw, s.Subscale)
		assert.Nil(t, s.Percentile)
		assert.Equal(t, norms.ClassNoTable, s.Classification)
	}
	_, ok := res.Subscale(instrument.General)
	assert.False(t, ok, "route attention has no composite")
	assert.Nil(t, res.RawScore)
	assert.Nil(t, res.Percentile)
	assert.Empty(t, res.Classification)
	assert.Nil(t, res.ResolvedTableID)
	assert.NotEmpty(t, res.Warnings)

	assert.Equal(t, []string{scoring.OutcomeDegraded}, rec.outcomes)
	assert.Equal(t, []string{scoring.MissNoTable}, rec.misses)
}

func TestScore_ScenarioD_Palographic(t *testing.T) {
	rows := []norms.RowSpec{
		band(instrument.Productivity, 600, upper(749), 50, "Média"),
		band(instrument.Productivity, 750, upper(899), 75, "Alta"),
		band(instrument.Productivity, 900, nil, 95, "Muito Alta"),
	}
	for _, sub := range []instrument.Subscale{instrument.Oscillation, instrument.StrokeSize, instrument.Distance, instrument.Impulsivity, instrument.Emotivity} {
		rows = append(rows, band(sub, 0, nil, 50, "Média"))
	}
	store := seed(t,
		norms.TableSpec{Name: "palo-clinico", Instrument: instrument.Palographic, Generic: true, Rows: rows},
		norms.TableSpec{Name: "palo-transito", Instrument: instrument.Palographic, Dimension: norms.DimContext, CriterionValue: "traffic", Rows: rows},
	)
	e := scoring.NewEngine(store)

	res, err := e.Score(context.Background(), scoring.Query{
		Instrument: instrument.Palographic,
		Criteria:   norms.Criteria{Context: "traffic"},
		Inputs: []byte(`{
			"intervals":[150,170,160,170,170],
			"stroke_sizes":[7.5,8,8.5,8,8],
			"total_distance":2050,
			"irregularities":{"tremor":true}
		}`),
	})
	require.NoError(t, err)

	prod, ok := res.Subscale(instrument.Productivity)
	require.True(t, ok)
	assert.Equal(t, 820.0, prod.Raw)
	assert.Equal(t, "Alta", prod.Classification)
	assert.Equal(t, "Alta", res.Classification)
	assert.Equal(t, norms.ViaCriterion, res.ResolvedVia)
	require.Len(t, res.Subscales, 6)
	require.NotNil(t, res.Metrics)
	assert.Equal(t, 2.5, res.Metrics.Distance)

	require.NotNil(t, res.Interpretation)
	assert.Equal(t, scoring.ContextTraffic, res.Interpretation.Context)
	assert.Len(t, res.Interpretation.Metrics, 6)
	assert.Contains(t, res.Interpretation.Summary, "trânsito")
	assert.Contains(t, res.Interpretation.Summary, "compatível")
}

func TestScore_NegativeRawIsInvalid(t *testing.T) {
	rec := &recorder{}
	e := scoring.NewEngine(seed(t, acTable), scoring.WithObserver(rec))

	res, err := e.Score(context.Background(), scoring.Query{
		Instrument: instrument.AC,
		Inputs:     []byte(`{"correct":2,"errors":5,"omissions":3}`),
	})
	require.NoError(t, err)
	require.NotNil(t, res.RawScore)
	assert.Equal(t, -6.0, *res.RawScore)
	assert.Nil(t, res.Percentile)
	assert.Equal(t, norms.ClassInvalid, res.Classification)
	assert.Nil(t, res.ResolvedTableID, "no lookup for an invalid score")
	assert.Len(t, res.Warnings, 1)
	assert.Equal(t, []string{scoring.OutcomeDegraded}, rec.outcomes)
}

func TestScore_ValidationError(t *testing.T) {
	rec := &recorder{}
	e := scoring.NewEngine(seed(t, acTable), scoring.WithObserver(rec))

	tests := []struct {
		name  string
		q     scoring.Query
		field string
	}{
		{"unknown instrument", scoring.Query{Instrument: "tat", Inputs: []byte(`{}`)}, "instrument"},
		{"missing count", scoring.Query{Instrument: instrument.AC, Inputs: []byte(`{"correct":1,"errors":2}`)}, "omissions"},
		{"not an object", scoring.Query{Instrument: instrument.AC, Inputs: []byte(`[1,2]`)}, "inputs"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Score(context.Background(), tc.q)
			var ve *instrument.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
	assert.Equal(t, []string{scoring.OutcomeInvalid, scoring.OutcomeInvalid, scoring.OutcomeInvalid}, rec.outcomes)
}

func TestScore_OutOfRange(t *testing.T) {
	spec := acTable
	spec.Rows = []norms.RowSpec{band("", 10, nil, 50, "Médio")}
	rec := &recorder{}
	e := scoring.NewEngine(seed(t, spec), scoring.WithObserver(rec))

	res, err := e.Score(context.Background(), scoring.Query{
		Instrument: instrument.AC,
		Inputs:     []byte(`{"correct":5,"errors":0,"omissions":0}`),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Percentile)
	assert.Equal(t, norms.ClassOutOfRange, res.Classification)
	assert.NotNil(t, res.ResolvedTableID)
	assert.Equal(t, []string{scoring.MissOutOfRange}, rec.misses)
}

func TestScore_ExplicitTableMissing(t *testing.T) {
	e := scoring.NewEngine(seed(t, acTable))
	id := int64(42)
	res, err := e.Score(context.Background(), scoring.Query{
		Instrument: instrument.AC,
		Inputs:     []byte(`{"correct":80,"errors":5,"omissions":3}`),
		TableID:    &id,
	})
	require.NoError(t, err)
	assert.Equal(t, norms.ClassNoTable, res.Classification)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "42")
}

type brokenStore struct {
	norms.Store
	tables bool
	rows   bool
}

var errDown = errors.New("connection refused")

func (b brokenStore) ListActiveTables(ctx context.Context, t instrument.Type, f *norms.Filter) ([]norms.Table, error) {
	if b.tables {
		return nil, errDown
	}
	return b.Store.ListActiveTables(ctx, t, f)
}

func (b brokenStore) ListRows(ctx context.Context, id int64, sub instrument.Subscale) ([]norms.Row, error) {
	if b.rows {
		return nil, errDown
	}
	return b.Store.ListRows(ctx, id, sub)
}

func TestScore_StoreUnavailable(t *testing.T) {
	q := scoring.Query{
		Instrument: instrument.AC,
		Criteria:   norms.Criteria{Region: "Sul"},
		Inputs:     []byte(`{"correct":80,"errors":5,"omissions":3}`),
	}

	t.Run("table reads", func(t *testing.T) {
		rec := &recorder{}
		e := scoring.NewEngine(brokenStore{Store: seed(t, acTable), tables: true}, scoring.WithObserver(rec))
		res, err := e.Score(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, 72.0, *res.RawScore)
		assert.Equal(t, norms.ClassUnavailable, res.Classification)
		assert.Equal(t, []string{scoring.MissStoreUnavailable}, rec.misses)
		assert.GreaterOrEqual(t, len(res.Warnings), 2)
	})

	t.Run("row reads", func(t *testing.T) {
		e := scoring.NewEngine(brokenStore{Store: seed(t, acTable), rows: true})
		res, err := e.Score(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, norms.ClassUnavailable, res.Classification)
		assert.NotNil(t, res.ResolvedTableID)
	})
}

func TestScore_ReasoningPercentOfMax(t *testing.T) {
	spec := norms.TableSpec{Name: "matrizes", Instrument: instrument.MatrixReasoning, Generic: true, Rows: fixedLadder("")}
	e := scoring.NewEngine(seed(t, spec), scoring.WithIDFunc(func() string { return "fixed" }))

	res, err := e.Score(context.Background(), scoring.Query{
		Instrument: instrument.MatrixReasoning,
		Inputs:     []byte(`{"correct":45}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.ID)
	require.NotNil(t, res.PercentOfMax)
	assert.Equal(t, 75.0, *res.PercentOfMax)
	assert.Equal(t, 50, *res.Percentile)
}

func TestScore_ConcurrentUse(t *testing.T) {
	e := scoring.NewEngine(seed(t, acTable))
	q := scoring.Query{Instrument: instrument.AC, Inputs: []byte(`{"correct":80,"errors":5,"omissions":3}`)}

	var wg sync.WaitGroup
	results := make([]scoring.Result, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Score(context.Background(), q)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, "Médio", r.Classification)
	}
}

func TestScore_RowCriterionIgnoresCase(t *testing.T) {
	row := func(criterion string, lo float64, hi *float64, p int, class string) norms.RowSpec {
		return norms.RowSpec{Lower: lo, Upper: hi, Percentile: p, Classification: class, CriterionValue: criterion}
	}
	e := scoring.NewEngine(seed(t, norms.TableSpec{
		Name:           "ac-ensino-medio",
		Instrument:     instrument.AC,
		Dimension:      norms.DimEducation,
		CriterionValue: "Ensino Médio",
		Rows: []norms.RowSpec{
			row("Ensino Médio", 0, upper(69), 5, "Muito Inferior"),
			row("Ensino Médio", 70, upper(79), 10, "Inferior"),
			row("Ensino Médio", 80, nil, 30, "Médio Inferior"),
			row(norms.WholeSample, 0, upper(69), 20, "Inferior"),
			row(norms.WholeSample, 70, upper(79), 50, "Médio"),
			row(norms.WholeSample, 80, nil, 80, "Superior"),
		},
	}))

	for _, education := range []string{"Ensino Médio", "ensino médio"} {
		t.Run(education, func(t *testing.T) {
			res, err := e.Score(context.Background(), scoring.Query{
				Instrument: instrument.AC,
				Inputs:     []byte(`{"correct":80,"errors":5,"omissions":3}`),
				Criteria:   norms.Criteria{Education: education},
			})
			require.NoError(t, err)
			assert.Equal(t, norms.ViaCriterion, res.ResolvedVia)
			require.NotNil(t, res.Percentile)
			assert.Equal(t, 10, *res.Percentile)
			assert.Equal(t, "Inferior", res.Classification)
			assert.Equal(t, norms.LevelCriterion.String(), res.Subscales[0].MatchLevel)
		})
	}
}
