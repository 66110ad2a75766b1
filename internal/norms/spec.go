package norms

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
)

// TableSpec is the bulk-insert contract of the population routine: one table
// keyed by Name plus its ordered rows.
type TableSpec struct {
	Name           string              `json:"name" yaml:"name"`
	Instrument     instrument.Type     `json:"instrument" yaml:"instrument"`
	Version        string              `json:"version,omitempty" yaml:"version,omitempty"`
	Dimension      Dimension           `json:"dimension,omitempty" yaml:"dimension,omitempty"`
	CriterionValue string              `json:"criterion_value,omitempty" yaml:"criterion_value,omitempty"`
	Subscale       instrument.Subscale `json:"subscale,omitempty" yaml:"subscale,omitempty"`
	Generic        bool                `json:"generic,omitempty" yaml:"generic,omitempty"`
	Description    string              `json:"description,omitempty" yaml:"description,omitempty"`
	Rows           []RowSpec           `json:"rows" yaml:"rows"`
}

// RowSpec is one band. A nil Upper means the band has no upper bound.
type RowSpec struct {
	Subscale       instrument.Subscale `json:"subscale,omitempty" yaml:"subscale,omitempty"`
	Lower          float64             `json:"lower" yaml:"lower"`
	Upper          *float64            `json:"upper,omitempty" yaml:"upper,omitempty"`
	Percentile     int                 `json:"percentile" yaml:"percentile"`
	Classification string              `json:"classification" yaml:"classification"`
	CriterionValue string              `json:"criterion_value,omitempty" yaml:"criterion_value,omitempty"`
}

func (s TableSpec) table() Table {
	return Table{
		Name:           strings.TrimSpace(s.Name),
		Instrument:     s.Instrument,
		Version:        s.Version,
		Dimension:      s.Dimension,
		CriterionValue: s.CriterionValue,
		Subscale:       s.Subscale,
		Generic:        s.Generic,
		Description:    s.Description,
		Active:         true,
	}
}

func (s TableSpec) rows(tableID int64) []Row {
	out := make([]Row, 0, len(s.Rows))
	for _, r := range s.Rows {
		upper := OpenUpper
		if r.Upper != nil {
			upper = *r.Upper
		}
		out = append(out, Row{
			TableID:        tableID,
			Subscale:       r.Subscale,
			Lower:          r.Lower,
			Upper:          upper,
			Percentile:     r.Percentile,
			Classification: r.Classification,
			CriterionValue: r.CriterionValue,
		})
	}
	return out
}

// rowKey identifies a row across population runs.
type rowKey struct {
	sub       instrument.Subscale
	criterion string
	lower     float64
}

func keyOf(r Row) rowKey { return rowKey{r.Subscale, r.CriterionValue, r.Lower} }

// Validate checks the spec against the catalogue, the label vocabulary and
// the tiling invariant.
func (s TableSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTable)
	}
	spec, ok := instrument.Lookup(s.Instrument)
	if !ok {
		return fmt.Errorf("%w: %s: unknown instrument %q", ErrInvalidTable, s.Name, s.Instrument)
	}
	if s.Dimension != DimNone {
		known := false
		for _, d := range Priority {
			known = known || d == s.Dimension
		}
		if !known {
			return fmt.Errorf("%w: %s: unknown dimension %q", ErrInvalidTable, s.Name, s.Dimension)
		}
		if strings.TrimSpace(s.CriterionValue) == "" {
			return fmt.Errorf("%w: %s: criterion_value is required for dimension %s", ErrInvalidTable, s.Name, s.Dimension)
		}
		if s.Dimension == DimAge {
			if _, ok := ParseAgeBracket(s.CriterionValue); !ok {
				return fmt.Errorf("%w: %s: %q is not an age bracket", ErrInvalidTable, s.Name, s.CriterionValue)
			}
		}
	}
	if s.Subscale != "" && !spec.Has(s.Subscale) {
		return fmt.Errorf("%w: %s: %s has no subscale %q", ErrInvalidTable, s.Name, s.Instrument, s.Subscale)
	}
	if len(s.Rows) == 0 {
		return fmt.Errorf("%w: %s: no rows", ErrInvalidTable, s.Name)
	}

	seen := map[rowKey]bool{}
	for i, r := range s.rows(0) {
		if r.Subscale != "" && !spec.Has(r.Subscale) {
			return fmt.Errorf("%w: %s row %d: unknown subscale %q", ErrInvalidTable, s.Name, i, r.Subscale)
		}
		if s.Subscale != "" && r.Subscale != "" && r.Subscale != s.Subscale {
			return fmt.Errorf("%w: %s row %d: subscale %q in a %q table", ErrInvalidTable, s.Name, i, r.Subscale, s.Subscale)
		}
		if r.Upper < r.Lower {
			return fmt.Errorf("%w: %s row %d: upper %v below lower %v", ErrInvalidTable, s.Name, i, r.Upper, r.Lower)
		}
		if r.Percentile < 0 {
			return fmt.Errorf("%w: %s row %d: negative percentile", ErrInvalidTable, s.Name, i)
		}
		if !ValidLabel(r.Classification) {
			return fmt.Errorf("%w: %s row %d: unknown classification %q", ErrInvalidTable, s.Name, i, r.Classification)
		}
		k := keyOf(r)
		if seen[k] {
			return fmt.Errorf("%w: %s row %d: duplicate band starting at %v", ErrInvalidTable, s.Name, i, r.Lower)
		}
		seen[k] = true
	}

	for g, rows := range groupRows(s.rows(0)) {
		if gaps := Gaps(rows); len(gaps) > 0 {
			return fmt.Errorf("%w: %s [%s/%s]: no band contains %v", ErrInvalidTable, s.Name, g.sub, g.criterion, gaps[0])
		}
	}
	return nil
}

type groupKey struct {
	sub       instrument.Subscale
	criterion string
}

func groupRows(rows []Row) map[groupKey][]Row {
	out := map[groupKey][]Row{}
	for _, r := range rows {
		k := groupKey{r.Subscale, r.CriterionValue}
		out[k] = append(out[k], r)
	}
	return out
}

// maxGapScan bounds the integer sweep of Gaps.
const maxGapScan = 100000

// Gaps returns the integer scores between the lowest bound of rows and the
// start of the open row (or the highest upper bound when there is none) that
// no row contains. rows should belong to a single subscale and criterion value.
func Gaps(rows []Row) []float64 {
	if len(rows) == 0 {
		return nil
	}
	sorted := append([]Row(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lower < sorted[j].Lower })

	start := math.Ceil(sorted[0].Lower)
	end := math.Inf(-1)
	for _, r := range sorted {
		if r.Open() {
			end = math.Max(end, r.Lower)
		} else {
			end = math.Max(end, r.Upper)
		}
	}
	if end-start > maxGapScan {
		return nil
	}
	var gaps []float64
	for x := start; x <= end; x++ {
		hit := false
		for _, r := range sorted {
			if r.Contains(x) {
				hit = true
				break
			}
		}
		if !hit {
			gaps = append(gaps, x)
		}
	}
	return gaps
}
