package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerator_New_QuandoChamadoEmSequencia_DeveGerarIDsOrdenados(t *testing.T) {
	gen := NewGenerator()
	instante := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	anterior := gen.NewAt(instante)
	for i := 0; i < 100; i++ {
		atual := gen.NewAt(instante)
		assert.True(t, Valid(atual))
		assert.Less(t, anterior, atual)
		anterior = atual
	}
}

func TestValid_QuandoStringInvalida_DeveRetornarFalse(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("nao-e-ulid"))
	assert.True(t, Valid(DefaultGenerator().New()))
}
