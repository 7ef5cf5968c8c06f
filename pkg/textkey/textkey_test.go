package textkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "Café Molido", Clean("  Café   Molido "))
	// e + acento combinante se compone a é
	assert.Equal(t, "Café", Clean("Café"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("Café Molido"), Key("  CAFÉ   molido"))
	assert.Equal(t, Key("Café"), Key("CAFÉ"))
	assert.NotEqual(t, Key("Cafe"), Key("Café"))
	assert.True(t, Equal("Tornillo 3mm", "tornillo  3MM"))
}
