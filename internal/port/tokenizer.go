package port

// Tokenizer is the uniform contract over a subword tokenizer or the
// character-count fallback. Implementations never fail: any underlying
// error degrades to a deterministic heuristic result.
type Tokenizer interface {
	// TokenLen returns the token count of text.
	TokenLen(text string) int

	// Encode converts text to token ids.
	Encode(text string) []int

	// Decode converts token ids back to text.
	Decode(ids []int) string

	// Fingerprint identifies the tokenizer for config locking: a stable
	// name and a short hash of the vocabulary identity.
	Fingerprint() (name, hash string)
}
