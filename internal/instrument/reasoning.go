package instrument

import (
	"math"

	"github.com/tidwall/gjson"
)

// Recognition holds the signal-detection tallies of a recognition-memory test.
type Recognition struct {
	TruePositive  float64 `json:"true_positive"`
	TrueNegative  float64 `json:"true_negative"`
	FalsePositive float64 `json:"false_positive"`
	FalseNegative float64 `json:"false_negative"`
}

// RecognitionScore is TP + TN − FN − FP.
func RecognitionScore(r Recognition) float64 {
	return r.TruePositive + r.TrueNegative - r.FalseNegative - r.FalsePositive
}

// PercentOfMax is raw / max × 100 rounded to one decimal. It is a display
// value only; classification stays keyed on the raw count.
func PercentOfMax(raw float64, maxItems int) float64 {
	if maxItems <= 0 {
		return 0
	}
	return round1(raw / float64(maxItems) * 100)
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }

func calcRecognition(doc gjson.Result, spec Spec) (Outcome, error) {
	var (
		r   Recognition
		err error
	)
	if r.TruePositive, err = count(doc, "true_positive", true); err != nil {
		return Outcome{}, err
	}
	if r.TrueNegative, err = count(doc, "true_negative", true); err != nil {
		return Outcome{}, err
	}
	if r.FalsePositive, err = count(doc, "false_positive", true); err != nil {
		return Outcome{}, err
	}
	if r.FalseNegative, err = count(doc, "false_negative", true); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Type:   spec.Type,
		Scores: []Score{{Subscale: SubscaleTotal, Raw: RecognitionScore(r), Subtractive: true}},
	}, nil
}

// calcCorrectCount serves matrix reasoning, verbal reasoning and visual
// memory: correct minus the optional errors and omissions.
func calcCorrectCount(doc gjson.Result, spec Spec) (Outcome, error) {
	correct, err := count(doc, "correct", true)
	if err != nil {
		return Outcome{}, err
	}
	errs, err := count(doc, "errors", false)
	if err != nil {
		return Outcome{}, err
	}
	omissions, err := count(doc, "omissions", false)
	if err != nil {
		return Outcome{}, err
	}
	maxItems := spec.MaxItems
	if v, err := count(doc, "max_items", false); err != nil {
		return Outcome{}, err
	} else if v > 0 {
		maxItems = int(v)
	}
	if maxItems > 0 && correct > float64(maxItems) {
		return Outcome{}, invalid("correct", "must not exceed max_items (%d)", maxItems)
	}
	raw := Subtractive(Counts{Correct: correct, Errors: errs, Omissions: omissions})
	out := Outcome{
		Type:   spec.Type,
		Scores: []Score{{Subscale: SubscaleTotal, Raw: raw, Subtractive: true}},
	}
	if maxItems > 0 {
		pct := PercentOfMax(raw, maxItems)
		out.PercentOfMax = &pct
	}
	return out, nil
}
