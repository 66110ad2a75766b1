package instrument

import (
	"math"
	"sort"

	"github.com/tidwall/gjson"
)

// IntervalCount is the number of timed sub-intervals in a palographic protocol.
const IntervalCount = 5

// Irregularities is the fixed set of graphomotor indicators counted into the
// emotivity metric.
var Irregularities = []string{
	"tremor",
	"overlaps",
	"linked_strokes",
	"missing_strokes",
	"irregular_spacing",
	"irregular_slant",
	"irregular_margins",
	"irregular_lines",
}

// PalographicInput is a validated palographic protocol.
type PalographicInput struct {
	Intervals     []float64       // strokes per interval
	StrokeSizes   []float64       // mean stroke size per interval, mm
	TotalDistance float64         // summed inter-stroke distance, mm
	Flags         map[string]bool // keyed by Irregularities
}

// PalographicMetrics are the six derived metrics.
type PalographicMetrics struct {
	Productivity float64 `json:"productivity"`
	Oscillation  float64 `json:"oscillation"`
	StrokeSize   float64 `json:"stroke_size"`
	Distance     float64 `json:"distance"`
	Impulsivity  float64 `json:"impulsivity"`
	Emotivity    float64 `json:"emotivity"`
}

// Value returns the metric for sub, or false when sub is not a palographic metric.
func (m PalographicMetrics) Value(sub Subscale) (float64, bool) {
	switch sub {
	case Productivity:
		return m.Productivity, true
	case Oscillation:
		return m.Oscillation, true
	case StrokeSize:
		return m.StrokeSize, true
	case Distance:
		return m.Distance, true
	case Impulsivity:
		return m.Impulsivity, true
	case Emotivity:
		return m.Emotivity, true
	}
	return 0, false
}

// ScorePalographic derives the metrics. Productivity must be positive.
func ScorePalographic(in PalographicInput) (PalographicMetrics, error) {
	if len(in.Intervals) != IntervalCount {
		return PalographicMetrics{}, invalid("intervals", "must have exactly %d values, got %d", IntervalCount, len(in.Intervals))
	}
	if len(in.StrokeSizes) != IntervalCount {
		return PalographicMetrics{}, invalid("stroke_sizes", "must have exactly %d values, got %d", IntervalCount, len(in.StrokeSizes))
	}
	var m PalographicMetrics
	for _, n := range in.Intervals {
		m.Productivity += n
	}
	if m.Productivity <= 0 {
		return PalographicMetrics{}, invalid("intervals", "total output must be positive")
	}

	var deltas float64
	for i := 1; i < len(in.Intervals); i++ {
		deltas += math.Abs(in.Intervals[i] - in.Intervals[i-1])
	}
	m.Oscillation = round1(deltas * 100 / m.Productivity)

	var sizeSum float64
	lo, hi := in.StrokeSizes[0], in.StrokeSizes[0]
	for _, s := range in.StrokeSizes {
		sizeSum += s
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	m.StrokeSize = sizeSum / float64(len(in.StrokeSizes))
	m.Impulsivity = hi - lo
	m.Distance = in.TotalDistance / m.Productivity

	for _, name := range Irregularities {
		if in.Flags[name] {
			m.Emotivity++
		}
	}
	m.Emotivity = math.Min(m.Emotivity, float64(len(Irregularities)))
	return m, nil
}

func calcPalographic(doc gjson.Result, spec Spec) (Outcome, error) {
	var (
		in  PalographicInput
		err error
	)
	if in.Intervals, err = numbers(doc, "intervals", IntervalCount, true); err != nil {
		return Outcome{}, err
	}
	if in.StrokeSizes, err = numbers(doc, "stroke_sizes", IntervalCount, false); err != nil {
		return Outcome{}, err
	}
	if in.TotalDistance, err = number(doc, "total_distance", true); err != nil {
		return Outcome{}, err
	}
	if in.Flags, err = flags(doc, "irregularities"); err != nil {
		return Outcome{}, err
	}
	m, err := ScorePalographic(in)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Type: spec.Type, Palographic: &m}
	for _, sub := range spec.Subscales {
		v, _ := m.Value(sub)
		out.Scores = append(out.Scores, Score{Subscale: sub, Raw: v})
	}
	return out, nil
}

// flags reads the optional irregularity object; unknown keys and non-boolean
// values are rejected.
func flags(doc gjson.Result, path string) (map[string]bool, error) {
	out := map[string]bool{}
	v := doc.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return out, nil
	}
	if !v.IsObject() {
		return nil, invalid(path, "must be an object")
	}
	known := make(map[string]struct{}, len(Irregularities))
	for _, n := range Irregularities {
		known[n] = struct{}{}
	}
	var bad []string
	var err error
	v.ForEach(func(key, val gjson.Result) bool {
		name := key.String()
		if _, ok := known[name]; !ok {
			bad = append(bad, name)
			return true
		}
		if val.Type != gjson.True && val.Type != gjson.False {
			err = invalid(path+"."+name, "must be a boolean")
			return false
		}
		out[name] = val.Bool()
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, invalid(path, "unknown indicators %v", bad)
	}
	return out, nil
}
