package norms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
	"github.com/mind-engage/mindengage-norms/internal/norms"
)

func validAC() norms.TableSpec {
	return norms.TableSpec{
		Name:       "ac-geral",
		Instrument: instrument.AC,
		Generic:    true,
		Rows:       ladder("", norms.WholeSample, 5),
	}
}

func TestTableSpec_Validate(t *testing.T) {
	require.NoError(t, validAC().Validate())

	tests := []struct {
		name   string
		mutate func(*norms.TableSpec)
	}{
		{"missing name", func(s *norms.TableSpec) { s.Name = "  " }},
		{"unknown instrument", func(s *norms.TableSpec) { s.Instrument = "rorschach" }},
		{"unknown dimension", func(s *norms.TableSpec) { s.Dimension = "height"; s.CriterionValue = "x" }},
		{"dimension without value", func(s *norms.TableSpec) { s.Dimension = norms.DimRegion }},
		{"age value is not a bracket", func(s *norms.TableSpec) { s.Dimension = norms.DimAge; s.CriterionValue = "adultos" }},
		{"foreign table subscale", func(s *norms.TableSpec) { s.Subscale = instrument.Divided }},
		{"no rows", func(s *norms.TableSpec) { s.Rows = nil }},
		{"foreign row subscale", func(s *norms.TableSpec) { s.Rows[0].Subscale = instrument.RouteA }},
		{"upper below lower", func(s *norms.TableSpec) { s.Rows[1].Upper = upper(5) }},
		{"negative percentile", func(s *norms.TableSpec) { s.Rows[0].Percentile = -1 }},
		{"unknown label", func(s *norms.TableSpec) { s.Rows[0].Classification = "Excelente" }},
		{"duplicate band", func(s *norms.TableSpec) { s.Rows = append(s.Rows, s.Rows[0]) }},
		{"gap between bands", func(s *norms.TableSpec) { s.Rows[2].Lower = 22 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := validAC()
			tc.mutate(&s)
			assert.ErrorIs(t, s.Validate(), norms.ErrInvalidTable)
		})
	}
}

func TestTableSpec_ValidateAgeTable(t *testing.T) {
	s := validAC()
	s.Generic = false
	s.Dimension = norms.DimAge
	s.CriterionValue = "18 a 29"
	assert.NoError(t, s.Validate())
}

func TestTableSpec_ValidateGraphomotorLabels(t *testing.T) {
	s := norms.TableSpec{
		Name:           "palografico-transito",
		Instrument:     instrument.Palographic,
		Dimension:      norms.DimContext,
		CriterionValue: "traffic",
		Rows: []norms.RowSpec{
			{Subscale: instrument.Productivity, Lower: 0, Upper: upper(400), Percentile: 10, Classification: "Muito Baixa"},
			{Subscale: instrument.Productivity, Lower: 401, Percentile: 60, Classification: "Média"},
			{Subscale: instrument.Oscillation, Lower: 0, Percentile: 50, Classification: "Média"},
		},
	}
	assert.NoError(t, s.Validate())
}

func TestGaps(t *testing.T) {
	t.Run("tiled", func(t *testing.T) {
		rows := []norms.Row{
			{Lower: 0, Upper: 10},
			{Lower: 11, Upper: 20},
			{Lower: 21, Upper: norms.OpenUpper},
		}
		assert.Empty(t, norms.Gaps(rows))
	})
	t.Run("hole", func(t *testing.T) {
		rows := []norms.Row{
			{Lower: 0, Upper: 10},
			{Lower: 13, Upper: norms.OpenUpper},
		}
		assert.Equal(t, []float64{11, 12}, norms.Gaps(rows))
	})
	t.Run("fractional bounds", func(t *testing.T) {
		rows := []norms.Row{
			{Lower: 0, Upper: 10.5},
			{Lower: 11, Upper: 20},
		}
		assert.Empty(t, norms.Gaps(rows))
	})
	t.Run("unordered input", func(t *testing.T) {
		rows := []norms.Row{
			{Lower: 30, Upper: norms.OpenUpper},
			{Lower: 0, Upper: 29},
		}
		assert.Empty(t, norms.Gaps(rows))
	})
	assert.Nil(t, norms.Gaps(nil))
}
