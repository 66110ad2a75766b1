package norms

// Classification ladders accepted in normative rows.
var (
	StandardLadder = []string{
		"Muito Inferior",
		"Inferior",
		"Médio Inferior",
		"Médio",
		"Médio Superior",
		"Superior",
		"Muito Superior",
	}
	GraphomotorLadder = []string{
		"Muito Baixa",
		"Baixa",
		"Média",
		"Alta",
		"Muito Alta",
	}
)

// Classifications reported when no row applies.
const (
	ClassNoTable     = "Tabela normativa não disponível"
	ClassOutOfRange  = "Fora da faixa normativa"
	ClassInvalid     = "Resultado inválido"
	ClassUnavailable = "Dados normativos indisponíveis"
)

var labelSet = func() map[string]struct{} {
	m := map[string]struct{}{}
	for _, l := range StandardLadder {
		m[l] = struct{}{}
	}
	for _, l := range GraphomotorLadder {
		m[l] = struct{}{}
	}
	return m
}()

// ValidLabel reports whether l belongs to one of the ladders.
func ValidLabel(l string) bool {
	_, ok := labelSet[l]
	return ok
}
