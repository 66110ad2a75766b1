// Package instrument holds the catalogue of psychological instruments and the
// pure raw-score calculators for each of them.
package instrument

import (
	"fmt"
	"strings"
)

// Type tags an instrument kind. The values are stored in norm_tables.instrument.
type Type string

const (
	AC                Type = "attention_concentration"
	AttentionBattery  Type = "attention_battery"
	RouteAttention    Type = "route_attention"
	RecognitionMemory Type = "recognition_memory"
	MatrixReasoning   Type = "matrix_reasoning"
	VisualMemory      Type = "visual_memory"
	VerbalReasoning   Type = "verbal_reasoning"
	Palographic       Type = "palographic"
)

// Subscale tags one scored dimension of an instrument. Single-scale
// instruments use SubscaleTotal.
type Subscale string

const (
	SubscaleTotal Subscale = "total"

	Alternating  Subscale = "alternating"
	Concentrated Subscale = "concentrated"
	Divided      Subscale = "divided"
	General      Subscale = "general"

	RouteA Subscale = "route_a"
	RouteB Subscale = "route_b"
	RouteC Subscale = "route_c"

	Productivity Subscale = "productivity"
	Oscillation  Subscale = "oscillation"
	StrokeSize   Subscale = "stroke_size"
	Distance     Subscale = "distance"
	Impulsivity  Subscale = "impulsivity"
	Emotivity    Subscale = "emotivity"
)

// Spec describes how an instrument is scored.
type Spec struct {
	Type Type
	Name string
	// Subscales are the independently scored dimensions, in report order.
	Subscales []Subscale
	// Composite is derived from Subscales and scored against its own table.
	// Empty when the instrument has no composite.
	Composite Subscale
	// MaxItems is the default item count used for the percent-of-maximum
	// display value; zero when the instrument has none.
	MaxItems int
}

// AllSubscales returns Subscales followed by the composite, if any.
func (s Spec) AllSubscales() []Subscale {
	out := make([]Subscale, 0, len(s.Subscales)+1)
	out = append(out, s.Subscales...)
	if s.Composite != "" {
		out = append(out, s.Composite)
	}
	return out
}

// Has reports whether sub is scored by this instrument.
func (s Spec) Has(sub Subscale) bool {
	for _, x := range s.AllSubscales() {
		if x == sub {
			return true
		}
	}
	return false
}

// MultiScale reports whether the instrument reports more than one score.
func (s Spec) MultiScale() bool { return len(s.AllSubscales()) > 1 }

// Route attention is structurally the same as the attention battery but its
// manual defines no general score, so it has no Composite.
var catalog = map[Type]Spec{
	AC: {
		Type:      AC,
		Name:      "Atenção Concentrada",
		Subscales: []Subscale{SubscaleTotal},
	},
	AttentionBattery: {
		Type:      AttentionBattery,
		Name:      "Bateria de Atenção",
		Subscales: []Subscale{Alternating, Concentrated, Divided},
		Composite: General,
	},
	RouteAttention: {
		Type:      RouteAttention,
		Name:      "Rotas de Atenção",
		Subscales: []Subscale{RouteA, RouteB, RouteC},
	},
	RecognitionMemory: {
		Type:      RecognitionMemory,
		Name:      "Memória de Reconhecimento",
		Subscales: []Subscale{SubscaleTotal},
	},
	MatrixReasoning: {
		Type:      MatrixReasoning,
		Name:      "Raciocínio Matricial",
		Subscales: []Subscale{SubscaleTotal},
		MaxItems:  60,
	},
	VisualMemory: {
		Type:      VisualMemory,
		Name:      "Memória Visual",
		Subscales: []Subscale{SubscaleTotal},
		MaxItems:  24,
	},
	VerbalReasoning: {
		Type:      VerbalReasoning,
		Name:      "Raciocínio Verbal",
		Subscales: []Subscale{SubscaleTotal},
		MaxItems:  50,
	},
	Palographic: {
		Type:      Palographic,
		Name:      "Palográfico",
		Subscales: []Subscale{Productivity, Oscillation, StrokeSize, Distance, Impulsivity, Emotivity},
	},
}

// Lookup returns the spec registered for t.
func Lookup(t Type) (Spec, bool) { s, ok := catalog[t]; return s, ok }

// Types lists every known instrument type.
func Types() []Type {
	return []Type{AC, AttentionBattery, RouteAttention, RecognitionMemory, MatrixReasoning, VisualMemory, VerbalReasoning, Palographic}
}

// ParseType normalises s and checks it against the catalogue.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalog[t]; !ok {
		return "", &ValidationError{Field: "instrument", Msg: fmt.Sprintf("unknown instrument %q", s)}
	}
	return t, nil
}
