package tokenizer

import (
	"math"
	"strings"
	"sync"
)

// Heuristic is the deterministic fallback tokenizer: token length is
// approximated as max(1, round(len/4)), and encoding interns whitespace
// words so token-level windowing still has ids to slice over.
type Heuristic struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

func NewHeuristic() *Heuristic {
	return &Heuristic{ids: make(map[string]int)}
}

func (h *Heuristic) TokenLen(text string) int {
	if text == "" {
		return 1
	}
	n := int(math.Round(float64(len(text)) / 4))
	if n < 1 {
		n = 1
	}
	return n
}

func (h *Heuristic) Encode(text string) []int {
	words := strings.Fields(text)
	ids := make([]int, 0, len(words))

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range words {
		id, ok := h.ids[w]
		if !ok {
			id = len(h.words)
			h.ids[w] = id
			h.words = append(h.words, w)
		}
		ids = append(ids, id)
	}
	return ids
}

func (h *Heuristic) Decode(ids []int) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && id < len(h.words) {
			words = append(words, h.words[id])
		}
	}
	return strings.Join(words, " ")
}

// Fingerprint reports an empty hash: heuristic identity is unresolved and
// guardrails warn about it.
func (h *Heuristic) Fingerprint() (string, string) {
	return "heuristic-charlen", ""
}
