// Package norms holds normative reference tables and the logic that selects a
// table for a request and maps a raw score onto one of its rows.
package norms

import (
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
)

// Dimension is the demographic or contextual axis a table is stratified by.
type Dimension string

const (
	DimNone      Dimension = ""
	DimRegion    Dimension = "region"
	DimEducation Dimension = "education"
	DimAge       Dimension = "age"
	DimSex       Dimension = "sex"
	DimContext   Dimension = "context"
)

// Priority is the order in which criteria are tried when picking a table,
// most specific first.
var Priority = []Dimension{DimRegion, DimEducation, DimAge, DimSex, DimContext}

// OpenUpper is the upper-bound sentinel meaning "no upper bound".
const OpenUpper = 999999.0

// WholeSample is the row criterion value of the undifferentiated sample.
const WholeSample = "Amostra Total"

// Table is one published reference table.
type Table struct {
	ID             int64               `json:"id"`
	Name           string              `json:"name"`
	Instrument     instrument.Type     `json:"instrument"`
	Version        string              `json:"version,omitempty"`
	Dimension      Dimension           `json:"dimension,omitempty"`
	CriterionValue string              `json:"criterion_value,omitempty"`
	Subscale       instrument.Subscale `json:"subscale,omitempty"` // empty: rows carry every subscale
	Generic        bool                `json:"generic,omitempty"`
	Description    string              `json:"description,omitempty"`
	Active         bool                `json:"active"`
	UpdatedAt      int64               `json:"updated_at,omitempty"` // unix seconds
}

// Serves reports whether the table's rows cover sub.
func (t Table) Serves(sub instrument.Subscale) bool {
	return t.Subscale == "" || t.Subscale == sub
}

// Row is one percentile/classification band of a table.
type Row struct {
	ID             int64               `json:"id"`
	TableID        int64               `json:"table_id"`
	Subscale       instrument.Subscale `json:"subscale,omitempty"`
	Lower          float64             `json:"lower"`
	Upper          float64             `json:"upper"`
	Percentile     int                 `json:"percentile"`
	Classification string              `json:"classification"`
	CriterionValue string              `json:"criterion_value,omitempty"`
}

// Open reports whether the row has no upper bound.
func (r Row) Open() bool { return r.Upper >= OpenUpper }

// Contains reports whether raw falls in [Lower, Upper]; an open row contains
// every raw >= Lower.
func (r Row) Contains(raw float64) bool {
	if raw < r.Lower {
		return false
	}
	return r.Open() || raw <= r.Upper
}

// covers reports whether the row belongs to sub. Rows without a subscale tag
// belong to every subscale of their table.
func (r Row) covers(sub instrument.Subscale) bool {
	return sub == "" || r.Subscale == "" || r.Subscale == sub
}

// Criteria are the demographic and contextual attributes of the examinee.
type Criteria struct {
	Region    string `json:"region,omitempty"`
	Education string `json:"education,omitempty"`
	Age       int    `json:"age,omitempty"`
	Sex       string `json:"sex,omitempty"`
	Context   string `json:"context,omitempty"`
}

// Value returns the string form of the criterion for dim; age is rendered
// only when positive.
func (c Criteria) Value(dim Dimension) string {
	switch dim {
	case DimRegion:
		return c.Region
	case DimEducation:
		return c.Education
	case DimSex:
		return c.Sex
	case DimContext:
		return c.Context
	case DimAge:
		if c.Age > 0 {
			return strconv.Itoa(c.Age)
		}
	}
	return ""
}

// supplied returns the dimensions the caller provided, in Priority order.
func (c Criteria) supplied() []Dimension {
	var out []Dimension
	for _, d := range Priority {
		if c.Value(d) != "" {
			out = append(out, d)
		}
	}
	return out
}

// Filter narrows ListActiveTables to one criterion. Value compares case
// insensitively; an empty Value matches any value of Dimension.
type Filter struct {
	Dimension Dimension
	Value     string
}

func (f *Filter) matches(t Table) bool {
	if f == nil {
		return true
	}
	if t.Dimension != f.Dimension {
		return false
	}
	return f.Value == "" || strings.EqualFold(t.CriterionValue, f.Value)
}
