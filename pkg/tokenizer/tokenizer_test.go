package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	assert.Equal(t, 0, CountTokens("  \n\t"))
	assert.Equal(t, 1, CountTokens("hi"))
	// 3 words -> 4 by words; 14 runes -> 3 by chars
	assert.Equal(t, 4, CountTokens("Name John Doe!"))
	// one long noisy run: chars dominate
	assert.Equal(t, 10, CountTokens("@@##$$%%^^&&**(())__++==~~``||"+"1234567890"))
}

func TestCountMessages(t *testing.T) {
	assert.Equal(t, CountTokens("a b c")+CountTokens("Name John Doe!"), CountMessages("a b c", "Name John Doe!"))
	assert.Zero(t, CountMessages())
}
