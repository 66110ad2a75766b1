package norms

import (
	"sort"
	"strings"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
)

// Level records which fallback level of the lookup produced a match.
type Level int

const (
	LevelCriterion   Level = iota + 1 // row criterion matches the caller's value
	LevelWholeSample                  // "Amostra Total" row
	LevelAnyRow                       // any row of the subscale
)

func (l Level) String() string {
	switch l {
	case LevelCriterion:
		return "criterion"
	case LevelWholeSample:
		return "whole_sample"
	case LevelAnyRow:
		return "any_row"
	}
	return "none"
}

// Match is the row selected for a raw score.
type Match struct {
	Row   Row
	Level Level
}

// Probe is what a lookup strategy needs to know about the request.
type Probe struct {
	Subscale       instrument.Subscale
	CriterionValue string
	Raw            float64
}

// Strategy returns the candidate rows of one fallback level.
type Strategy struct {
	Level Level
	Pick  func(rows []Row, p Probe) []Row
}

// Chain is the ordered list of lookup strategies: criterion-specific, then
// the whole sample, then any row containing the score.
var Chain = []Strategy{
	{Level: LevelCriterion, Pick: byCriterion},
	{Level: LevelWholeSample, Pick: byWholeSample},
	{Level: LevelAnyRow, Pick: byAnyRow},
}

func byCriterion(rows []Row, p Probe) []Row {
	if p.CriterionValue == "" {
		return nil
	}
	return containing(rows, p, func(r Row) bool { return r.CriterionValue == p.CriterionValue })
}

func byWholeSample(rows []Row, p Probe) []Row {
	return containing(rows, p, func(r Row) bool { return r.CriterionValue == WholeSample })
}

func byAnyRow(rows []Row, p Probe) []Row {
	return containing(rows, p, func(Row) bool { return true })
}

func containing(rows []Row, p Probe, keep func(Row) bool) []Row {
	var out []Row
	for _, r := range rows {
		if r.covers(p.Subscale) && keep(r) && r.Contains(p.Raw) {
			out = append(out, r)
		}
	}
	return out
}

// Lookup runs Chain over rows and returns the best row of the first level that
// has candidates. Ties are broken by highest percentile, then lowest row ID.
func Lookup(rows []Row, sub instrument.Subscale, criterionValue string, raw float64) (Match, bool) {
	return LookupWith(Chain, rows, Probe{Subscale: sub, CriterionValue: criterionValue, Raw: raw})
}

// LookupWith is Lookup over an explicit strategy chain.
func LookupWith(chain []Strategy, rows []Row, p Probe) (Match, bool) {
	for _, s := range chain {
		if c := s.Pick(rows, p); len(c) > 0 {
			return Match{Row: best(c), Level: s.Level}, true
		}
	}
	return Match{}, false
}

func best(c []Row) Row {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Percentile != c[j].Percentile {
			return c[i].Percentile > c[j].Percentile
		}
		return c[i].ID < c[j].ID
	})
	return c[0]
}

// RowCriterion picks the row criterion value that applies to c among the
// distinct values present in rows: a case-insensitive match of a supplied
// criterion in Priority order, else the age bracket containing c.Age. The
// row's own spelling is returned.
func RowCriterion(rows []Row, c Criteria) string {
	var values []string
	seen := map[string]bool{}
	for _, r := range rows {
		if r.CriterionValue == "" || r.CriterionValue == WholeSample || seen[r.CriterionValue] {
			continue
		}
		seen[r.CriterionValue] = true
		values = append(values, r.CriterionValue)
	}
	for _, d := range Priority {
		if d == DimAge {
			continue
		}
		want := c.Value(d)
		if want == "" {
			continue
		}
		for _, v := range values {
			if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(want)) {
				return v
			}
		}
	}
	if c.Age > 0 {
		for _, v := range values {
			if criterionMatches(DimAge, v, c) {
				return v
			}
		}
	}
	return ""
}
