package scoring

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
)

// Evaluation contexts of the graphomotor interpretation.
const (
	ContextTraffic      = "traffic"
	ContextOccupational = "occupational"
	ContextClinical     = "clinical"
)

// Interpretation is the qualitative reading of a graphomotor protocol.
type Interpretation struct {
	Context string       `json:"context"`
	Metrics []MetricNote `json:"metrics"`
	Summary string       `json:"summary"`
}

type MetricNote struct {
	Subscale       instrument.Subscale `json:"subscale"`
	Classification string              `json:"classification"`
	Text           string              `json:"text"`
}

type band int

const (
	bandUnknown band = iota
	bandLow
	bandAverage
	bandHigh
)

var bands = map[string]band{
	"Muito Baixa":    bandLow,
	"Baixa":          bandLow,
	"Média":          bandAverage,
	"Alta":           bandHigh,
	"Muito Alta":     bandHigh,
	"Muito Inferior": bandLow,
	"Inferior":       bandLow,
	"Médio Inferior": bandAverage,
	"Médio":          bandAverage,
	"Médio Superior": bandAverage,
	"Superior":       bandHigh,
	"Muito Superior": bandHigh,
}

type metricText struct {
	name            string
	low, mid, high  string
	concernsWhenLow bool
}

var metricTexts = map[instrument.Subscale]metricText{
	instrument.Productivity: {
		name: "produtividade",
		low:  "Ritmo de trabalho abaixo do esperado para o grupo de referência.",
		mid:  "Ritmo de trabalho dentro do esperado.",
		high: "Ritmo de trabalho acima do esperado.",

		concernsWhenLow: true,
	},
	instrument.Oscillation: {
		name: "oscilação",
		low:  "Ritmo estável ao longo da tarefa.",
		mid:  "Oscilação de ritmo dentro do esperado.",
		high: "Instabilidade de ritmo ao longo da tarefa.",
	},
	instrument.StrokeSize: {
		name: "tamanho dos traços",
		low:  "Traçado reduzido.",
		mid:  "Tamanho dos traços dentro do esperado.",
		high: "Traçado ampliado.",
	},
	instrument.Distance: {
		name: "distância entre traços",
		low:  "Traços próximos entre si.",
		mid:  "Distância entre traços dentro do esperado.",
		high: "Traços espaçados.",
	},
	instrument.Impulsivity: {
		name: "impulsividade",
		low:  "Controle do traçado preservado.",
		mid:  "Variação do traçado dentro do esperado.",
		high: "Variação acentuada do traçado, sugestiva de impulsividade.",
	},
	instrument.Emotivity: {
		name: "emotividade",
		low:  "Poucos indicadores de emotividade.",
		mid:  "Indicadores de emotividade dentro do esperado.",
		high: "Indicadores elevados de emotividade.",
	},
}

// Oscillation, impulsivity and emotivity are concerning when high; stroke size
// and distance are descriptive only.
var concernsWhenHigh = map[instrument.Subscale]bool{
	instrument.Oscillation: true,
	instrument.Impulsivity: true,
	instrument.Emotivity:   true,
}

// ParseContext maps a criteria context onto an evaluation context. Anything
// unrecognised reads as clinical.
func ParseContext(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "traffic", "transito", "trânsito":
		return ContextTraffic
	case "occupational", "ocupacional", "organizacional":
		return ContextOccupational
	}
	return ContextClinical
}

// Interpret builds the per-metric notes and the context summary from the
// classified graphomotor subscales.
func Interpret(context string, subs []SubscaleResult) *Interpretation {
	in := &Interpretation{Context: ParseContext(context)}
	var concerns []string
	for _, s := range subs {
		mt, ok := metricTexts[s.Subscale]
		if !ok {
			continue
		}
		note := MetricNote{Subscale: s.Subscale, Classification: s.Classification}
		b := bandUnknown
		if s.Percentile != nil {
			b = bands[s.Classification]
		}
		switch b {
		case bandLow:
			note.Text = mt.low
			if mt.concernsWhenLow {
				concerns = append(concerns, mt.name)
			}
		case bandAverage:
			note.Text = mt.mid
		case bandHigh:
			note.Text = mt.high
			if concernsWhenHigh[s.Subscale] {
				concerns = append(concerns, mt.name)
			}
		default:
			note.Text = fmt.Sprintf("Sem referência normativa para %s.", mt.name)
		}
		in.Metrics = append(in.Metrics, note)
	}
	in.Summary = summary(in.Context, concerns)
	return in
}

func summary(ctx string, concerns []string) string {
	var prefix, fine string
	switch ctx {
	case ContextTraffic:
		prefix = "Avaliação para o trânsito"
		fine = "desempenho grafomotor compatível com as exigências da condução de veículos."
	case ContextOccupational:
		prefix = "Avaliação ocupacional"
		fine = "ritmo e regularidade de trabalho compatíveis com atividades de rotina."
	default:
		prefix = "Avaliação clínica"
		fine = "sem indicadores grafomotores que demandem investigação adicional."
	}
	if len(concerns) == 0 {
		return prefix + ": " + fine
	}
	return fmt.Sprintf("%s: indicadores que merecem atenção em %s.", prefix, strings.Join(concerns, ", "))
}
