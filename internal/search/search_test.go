package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerm_Match(t *testing.T) {
	assert.True(t, New("").Match("anything"))
	assert.True(t, New("  ").Match())
	assert.True(t, New("acme").Match("CUS-1", "ACME Trading"))
	assert.True(t, New("STRASSE").Match("Hauptstraße 1"))
	assert.True(t, New("0171").Match("", "+49 0171 555"))
	assert.False(t, New("zeta").Match("alpha", "beta"))
}
