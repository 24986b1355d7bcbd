package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicTokenLen(t *testing.T) {
	h := NewHeuristic()

	// max(1, round(len/4))
	assert.Equal(t, 1, h.TokenLen(""))
	assert.Equal(t, 1, h.TokenLen("ab"))
	assert.Equal(t, 1, h.TokenLen("abcd"))
	assert.Equal(t, 2, h.TokenLen("abcdef"))
	assert.Equal(t, 25, h.TokenLen(strings.Repeat("a", 100)))
}

func TestHeuristicEncodeDecode(t *testing.T) {
	h := NewHeuristic()

	ids := h.Encode("alpha beta gamma alpha")
	require.Len(t, ids, 4)
	assert.Equal(t, ids[0], ids[3], "repeated word shares an id")

	assert.Equal(t, "alpha beta gamma alpha", h.Decode(ids))
	assert.Equal(t, "beta gamma", h.Decode(ids[1:3]))
}

func TestHeuristicFingerprintUnresolved(t *testing.T) {
	name, hash := NewHeuristic().Fingerprint()
	assert.Equal(t, "heuristic-charlen", name)
	assert.Empty(t, hash)
}

func TestNewNeverFails(t *testing.T) {
	for _, embedder := range []string{"", "text-embedding-3-small", "no-such-model-xyz"} {
		tok := New(embedder)
		require.NotNil(t, tok, "embedder %q", embedder)

		n := tok.TokenLen("hello world, this is a token count sample")
		assert.Greater(t, n, 0)

		name, _ := tok.Fingerprint()
		assert.NotEmpty(t, name)
	}
}

func TestEncodingNameForModel(t *testing.T) {
	assert.Equal(t, "cl100k_base", encodingNameForModel("text-embedding-3-small"))
	assert.Equal(t, "cl100k_base", encodingNameForModel("text-embedding-ada-002"))
	assert.Equal(t, "o200k_base", encodingNameForModel("gpt-4o"))
	assert.Equal(t, "o200k_base", encodingNameForModel("o1-mini"))
}

func TestNewEncodeDecodeRoundTrip(t *testing.T) {
	tok := New("text-embedding-3-small")

	// Holds for both the subword tokenizer and the heuristic fallback.
	text := "The quick brown fox jumps over the lazy dog."
	ids := tok.Encode(text)
	require.NotEmpty(t, ids)

	decoded := tok.Decode(ids)
	assert.Contains(t, decoded, "quick brown fox")
}
