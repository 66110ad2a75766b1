package norms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
	"github.com/mind-engage/mindengage-norms/internal/norms"
)

var acRows = []norms.Row{
	{ID: 1, Lower: 0, Upper: 50, Percentile: 30, Classification: "Médio Inferior", CriterionValue: "Sudeste"},
	{ID: 2, Lower: 51, Upper: norms.OpenUpper, Percentile: 70, Classification: "Médio Superior", CriterionValue: "Sudeste"},
	{ID: 3, Lower: 0, Upper: 60, Percentile: 40, Classification: "Médio", CriterionValue: norms.WholeSample},
	{ID: 4, Lower: 61, Upper: norms.OpenUpper, Percentile: 80, Classification: "Superior", CriterionValue: norms.WholeSample},
}

func TestLookup_Levels(t *testing.T) {
	tests := []struct {
		name      string
		criterion string
		raw       float64
		wantID    int64
		wantLevel norms.Level
	}{
		{"criterion row", "Sudeste", 72, 2, norms.LevelCriterion},
		{"criterion lower band", "Sudeste", 50, 1, norms.LevelCriterion},
		{"unknown criterion uses whole sample", "Norte", 72, 4, norms.LevelWholeSample},
		{"no criterion uses whole sample", "", 10, 3, norms.LevelWholeSample},
		{"open upper bound", "", 5_000_000, 4, norms.LevelWholeSample},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := norms.Lookup(acRows, instrument.SubscaleTotal, tc.criterion, tc.raw)
			require.True(t, ok)
			assert.Equal(t, tc.wantID, m.Row.ID)
			assert.Equal(t, tc.wantLevel, m.Level)
		})
	}
}

func TestLookup_AnyRowFallback(t *testing.T) {
	rows := []norms.Row{
		{ID: 9, Lower: 0, Upper: 20, Percentile: 15, Classification: "Inferior", CriterionValue: "Sul"},
		{ID: 10, Lower: 21, Upper: norms.OpenUpper, Percentile: 65, Classification: "Médio", CriterionValue: "Sul"},
	}
	m, ok := norms.Lookup(rows, instrument.SubscaleTotal, "Norte", 30)
	require.True(t, ok)
	assert.Equal(t, int64(10), m.Row.ID)
	assert.Equal(t, norms.LevelAnyRow, m.Level)
	assert.Equal(t, "any_row", m.Level.String())
}

func TestLookup_OutOfRange(t *testing.T) {
	_, ok := norms.Lookup(acRows, instrument.SubscaleTotal, "Sudeste", -1)
	assert.False(t, ok)

	_, ok = norms.Lookup(nil, instrument.SubscaleTotal, "", 10)
	assert.False(t, ok)
}

func TestLookup_TieBreak(t *testing.T) {
	t.Run("highest percentile wins", func(t *testing.T) {
		rows := []norms.Row{
			{ID: 7, Lower: 0, Upper: 30, Percentile: 50, Classification: "Médio"},
			{ID: 8, Lower: 20, Upper: 40, Percentile: 60, Classification: "Médio"},
		}
		m, ok := norms.Lookup(rows, instrument.SubscaleTotal, "", 25)
		require.True(t, ok)
		assert.Equal(t, int64(8), m.Row.ID)
	})
	t.Run("equal percentile picks lowest id", func(t *testing.T) {
		rows := []norms.Row{
			{ID: 5, Lower: 0, Upper: 30, Percentile: 50, Classification: "Médio"},
			{ID: 3, Lower: 20, Upper: 40, Percentile: 50, Classification: "Médio"},
		}
		m, ok := norms.Lookup(rows, instrument.SubscaleTotal, "", 25)
		require.True(t, ok)
		assert.Equal(t, int64(3), m.Row.ID)
	})
}

func TestLookup_SubscaleRows(t *testing.T) {
	rows := []norms.Row{
		{ID: 1, Subscale: instrument.Alternating, Lower: 0, Upper: norms.OpenUpper, Percentile: 20, Classification: "Inferior"},
		{ID: 2, Subscale: instrument.Concentrated, Lower: 0, Upper: norms.OpenUpper, Percentile: 90, Classification: "Muito Superior"},
		{ID: 3, Lower: 0, Upper: norms.OpenUpper, Percentile: 50, Classification: "Médio"},
	}
	m, ok := norms.Lookup(rows, instrument.Alternating, "", 10)
	require.True(t, ok)
	assert.Equal(t, int64(3), m.Row.ID, "untagged rows belong to every subscale")

	m, ok = norms.Lookup(rows, instrument.Concentrated, "", 10)
	require.True(t, ok)
	assert.Equal(t, int64(2), m.Row.ID)
}

func TestLookupWith_CustomChain(t *testing.T) {
	chain := []norms.Strategy{norms.Chain[1]}
	_, ok := norms.LookupWith(chain, acRows[:2], norms.Probe{Subscale: instrument.SubscaleTotal, CriterionValue: "Sudeste", Raw: 10})
	assert.False(t, ok)
}

func TestRowCriterion(t *testing.T) {
	rows := []norms.Row{
		{CriterionValue: "Sudeste"},
		{CriterionValue: "18-29"},
		{CriterionValue: "60+"},
		{CriterionValue: norms.WholeSample},
	}
	tests := []struct {
		name string
		c    norms.Criteria
		want string
	}{
		{"region", norms.Criteria{Region: "Sudeste", Age: 22}, "Sudeste"},
		{"region in other casing", norms.Criteria{Region: " SUDESTE"}, "Sudeste"},
		{"age bracket", norms.Criteria{Region: "Norte", Age: 22}, "18-29"},
		{"open bracket", norms.Criteria{Age: 75}, "60+"},
		{"nothing applies", norms.Criteria{Region: "Norte", Age: 40}, ""},
		{"empty criteria", norms.Criteria{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, norms.RowCriterion(rows, tc.c))
		})
	}
}

func TestRow_Contains(t *testing.T) {
	r := norms.Row{Lower: 10, Upper: 20}
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(20.5))
	assert.False(t, r.Contains(9.9))

	open := norms.Row{Lower: 10, Upper: norms.OpenUpper}
	assert.True(t, open.Open())
	assert.True(t, open.Contains(1e7))
}
