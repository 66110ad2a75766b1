package instrument

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Score is one raw score of a protocol.
type Score struct {
	Subscale Subscale `json:"subscale"`
	Raw      float64  `json:"raw"`
	// Subtractive marks scores produced by a subtractive formula; a negative
	// value there means the protocol was invalid.
	Subtractive bool `json:"-"`
}

// Outcome is everything the calculators derive from the raw inputs.
type Outcome struct {
	Type         Type
	Scores       []Score
	PercentOfMax *float64
	Palographic  *PalographicMetrics
}

// Score returns the raw score of sub.
func (o Outcome) Score(sub Subscale) (Score, bool) {
	for _, s := range o.Scores {
		if s.Subscale == sub {
			return s, true
		}
	}
	return Score{}, false
}

// calculator turns a decoded input document into raw scores.
type calculator func(doc gjson.Result, spec Spec) (Outcome, error)

var calculators = map[Type]calculator{
	AC:                calcAC,
	AttentionBattery:  calcBattery,
	RouteAttention:    calcRoutes,
	RecognitionMemory: calcRecognition,
	MatrixReasoning:   calcCorrectCount,
	VisualMemory:      calcCorrectCount,
	VerbalReasoning:   calcCorrectCount,
	Palographic:       calcPalographic,
}

// Calculate validates the JSON inputs for t and computes its raw scores.
// Every failure is a *ValidationError; nothing here touches normative data.
func Calculate(t Type, inputs []byte) (Outcome, error) {
	spec, ok := catalog[t]
	if !ok {
		return Outcome{}, invalid("instrument", "unknown instrument %q", string(t))
	}
	calc, ok := calculators[t]
	if !ok {
		return Outcome{}, fmt.Errorf("instrument %s has no calculator", t)
	}
	doc, err := parseObject(inputs)
	if err != nil {
		return Outcome{}, err
	}
	return calc(doc, spec)
}
