// Package scope enforces the Mexico-only restriction on incoming chat
// messages before any retrieval or generation happens.
package scope

import "strings"

// externalCountries lists terms that indicate a jurisdiction outside
// Mexico. A hit here rejects the message even when a Mexican state is
// also mentioned; the foreign check deliberately runs first.
var externalCountries = []string{
	"estados unidos", "usa", "eeuu", "united states", "america",
	"canada", "canadá", "brasil", "argentina", "colombia", "chile",
	"peru", "perú", "venezuela", "ecuador", "bolivia", "paraguay",
	"uruguay", "españa", "spain", "francia", "france", "alemania",
	"germany", "italia", "italy", "china", "japon", "japón",
	"corea", "korea", "india", "rusia", "russia", "australia",
	"nueva zelanda", "new zealand", "reino unido", "uk", "inglaterra",
}

// mexicoIndicators lists terms that establish Mexican context: generic
// terms plus state names.
var mexicoIndicators = []string{
	"mexico", "méxico", "estados", "estado", "jalisco", "nuevo león",
	"ciudad de méxico", "cdmx", "yucatán", "quintana roo", "campeche",
	"tabasco", "chiapas", "oaxaca", "veracruz", "puebla", "tlaxcala",
	"hidalgo", "querétaro", "san luis potosí", "tamaulipas", "coahuila",
	"durango", "zacatecas", "aguascalientes", "guanajuato", "michoacán",
	"guerrero", "morelos", "baja california", "baja california sur",
	"sonora", "sinaloa", "nayarit", "colima",
}

const (
	// ForeignRefusal is returned when the message mentions a non-Mexican
	// country or region.
	ForeignRefusal = "Lo siento, pero solo puedo proporcionar información sobre datos de México. Mi base de datos contiene únicamente información de los 32 estados mexicanos que puedes visualizar en las gráficas de la plataforma. ¿Te gustaría que te ayude con información sobre algún estado específico de México? 🇲🇽"

	// GenericRefusal is returned when no Mexican context is detected.
	GenericRefusal = "Solo puedo ayudarte con información sobre los 32 estados de México. Mi base de datos contiene datos específicos de seguridad, economía, infraestructura, educación y otros parámetros de los estados mexicanos que puedes ver en las gráficas de la plataforma. ¿Sobre qué estado de México te gustaría saber? 🇲🇽"
)

// Result is the outcome of a scope check.
type Result struct {
	Allowed bool
	Reason  string
}

// Check classifies a message as in or out of the Mexico-only domain.
// Pure function over the lowercased message text.
func Check(message string) Result {
	lower := strings.ToLower(message)

	for _, country := range externalCountries {
		if strings.Contains(lower, country) {
			return Result{Allowed: false, Reason: ForeignRefusal}
		}
	}

	for _, indicator := range mexicoIndicators {
		if strings.Contains(lower, indicator) {
			return Result{Allowed: true}
		}
	}

	return Result{Allowed: false, Reason: GenericRefusal}
}
