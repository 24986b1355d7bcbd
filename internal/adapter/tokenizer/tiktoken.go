package tokenizer

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Tiktoken wraps a tiktoken-go encoding behind the Tokenizer contract.
type Tiktoken struct {
	encoding     *tiktoken.Tiktoken
	encodingName string
}

func (t *Tiktoken) TokenLen(text string) int {
	return len(t.Encode(text))
}

func (t *Tiktoken) Encode(text string) []int {
	return t.encoding.Encode(text, nil, nil)
}

func (t *Tiktoken) Decode(ids []int) string {
	return t.encoding.Decode(ids)
}

// Fingerprint returns the encoding name and a short hash of it, recorded in
// locked configs so a vocabulary swap shows up as a config change.
func (t *Tiktoken) Fingerprint() (string, string) {
	hash := sha256.Sum256([]byte("tiktoken/" + t.encodingName))
	return t.encodingName, hex.EncodeToString(hash[:])[:12]
}
