package instrument

import "github.com/tidwall/gjson"

// Counts are the response tallies of a cancellation-style attention task.
type Counts struct {
	Correct   float64 `json:"correct"`
	Errors    float64 `json:"errors"`
	Omissions float64 `json:"omissions"`
}

// Subtractive is correct − (errors + omissions). The result may be negative.
func Subtractive(c Counts) float64 {
	return c.Correct - (c.Errors + c.Omissions)
}

// GeneralAttention is the attention battery composite: the plain sum of the
// alternating, concentrated and divided raw scores.
func GeneralAttention(alternating, concentrated, divided float64) float64 {
	return alternating + concentrated + divided
}

func calcAC(doc gjson.Result, spec Spec) (Outcome, error) {
	c, err := countsAt(doc, "")
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Type:   spec.Type,
		Scores: []Score{{Subscale: SubscaleTotal, Raw: Subtractive(c), Subtractive: true}},
	}, nil
}

// calcBattery never reads a "general" field from the inputs; the composite
// is always recomputed from the three subscales.
func calcBattery(doc gjson.Result, spec Spec) (Outcome, error) {
	out := Outcome{Type: spec.Type}
	var sum [3]float64
	for i, sub := range spec.Subscales {
		c, err := countsAt(doc, string(sub))
		if err != nil {
			return Outcome{}, err
		}
		sum[i] = Subtractive(c)
		out.Scores = append(out.Scores, Score{Subscale: sub, Raw: sum[i], Subtractive: true})
	}
	out.Scores = append(out.Scores, Score{
		Subscale:    spec.Composite,
		Raw:         GeneralAttention(sum[0], sum[1], sum[2]),
		Subtractive: true,
	})
	return out, nil
}

func calcRoutes(doc gjson.Result, spec Spec) (Outcome, error) {
	out := Outcome{Type: spec.Type}
	for _, sub := range spec.Subscales {
		c, err := countsAt(doc, string(sub))
		if err != nil {
			return Outcome{}, err
		}
		out.Scores = append(out.Scores, Score{Subscale: sub, Raw: Subtractive(c), Subtractive: true})
	}
	return out, nil
}
