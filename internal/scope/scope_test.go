package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckForeignCountryRejected(t *testing.T) {
	result := Check("¿Cómo está la economía en Estados Unidos?")

	assert.False(t, result.Allowed)
	assert.Equal(t, ForeignRefusal, result.Reason)
}

func TestCheckForeignCountryWinsOverMexicanState(t *testing.T) {
	// Foreign match takes precedence even when a Mexican state is present.
	result := Check("Compara Jalisco con Francia")

	assert.False(t, result.Allowed)
	assert.Equal(t, ForeignRefusal, result.Reason)
}

func TestCheckNoMexicanContextRejected(t *testing.T) {
	result := Check("¿Qué hora es?")

	assert.False(t, result.Allowed)
	assert.Equal(t, GenericRefusal, result.Reason)
}

func TestCheckEmptyMessageRejected(t *testing.T) {
	result := Check("")

	assert.False(t, result.Allowed)
	assert.Equal(t, GenericRefusal, result.Reason)
}

func TestCheckMexicanContextAllowed(t *testing.T) {
	cases := []string{
		"¿Cuál es la situación de seguridad en Jalisco?",
		"Dame datos de Yucatán",
		"¿Qué estado tiene mejor infraestructura?",
		"Información sobre México",
		"análisis de nuevo león",
	}

	for _, msg := range cases {
		result := Check(msg)
		assert.True(t, result.Allowed, "expected allowed: %q", msg)
		assert.Empty(t, result.Reason)
	}
}

func TestCheckCaseInsensitive(t *testing.T) {
	assert.True(t, Check("SEGURIDAD EN JALISCO").Allowed)
	assert.False(t, Check("ECONOMÍA DE BRASIL").Allowed)
}
