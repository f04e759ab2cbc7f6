// Package intent routes chat messages to a coarse analysis category
// using ordered keyword containment. The rule order is significant:
// the first matching bucket wins.
package intent

import "strings"

type Intent string

const (
	Comparison      Intent = "comparison"
	TrendAnalysis   Intent = "trend_analysis"
	Recommendations Intent = "recommendations"
	SimilarStates   Intent = "similar_states"
	RAGAnalysis     Intent = "rag_analysis"
	GeneralAnalysis Intent = "general_analysis"
)

type rule struct {
	keywords []string
	intent   Intent
}

// rules is evaluated top to bottom, first match wins. Reordering these
// entries changes routing behavior.
var rules = []rule{
	{[]string{"comparar", "comparación", "vs", "versus"}, Comparison},
	{[]string{"tendencia", "histórico", "evolución", "cambio"}, TrendAnalysis},
	{[]string{"recomendación", "sugerencia", "qué hacer"}, Recommendations},
	{[]string{"similar", "parecido", "como"}, SimilarStates},
	{[]string{"rag", "datos", "firebase", "análisis"}, RAGAnalysis},
}

// Classify maps a message to an intent. Deterministic over the
// lowercased text; falls back to GeneralAnalysis.
func Classify(message string) Intent {
	lower := strings.ToLower(message)

	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.intent
			}
		}
	}

	return GeneralAnalysis
}

// entityKeywords are the Mexico-related terms surfaced as detected
// entities for suggestion templating.
var entityKeywords = []string{
	"mexico", "méxico", "estados", "estado", "ciudad", "municipio",
	"seguridad", "economia", "economía", "desarrollo", "infraestructura",
	"educacion", "educación", "salud", "empleo", "pobreza", "crimen",
}

// DetectEntities returns the Mexico-related keywords present in the
// message, in catalog order.
func DetectEntities(message string) []string {
	lower := strings.ToLower(message)

	var entities []string
	for _, kw := range entityKeywords {
		if strings.Contains(lower, kw) {
			entities = append(entities, kw)
		}
	}

	return entities
}
