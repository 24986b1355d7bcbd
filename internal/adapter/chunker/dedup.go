package chunker

import "strings"

// shingleArena holds the word-shingle set of every kept chunk, indexed by
// kept position. Dedup scope is a single document; the arena is rebuilt per
// ChunkDocument call.
type shingleArena struct {
	sets []map[string]struct{}
}

// admit keeps a chunk only if its shingle-set Jaccard similarity against
// every previously kept chunk stays below threshold. First seen wins.
func (a *shingleArena) admit(text string, ngramSize int, threshold float64) bool {
	set := wordShingles(text, ngramSize)
	for _, kept := range a.sets {
		if jaccard(set, kept) >= threshold {
			return false
		}
	}
	a.sets = append(a.sets, set)
	return true
}

// wordShingles extracts the set of n-word shingles from text. Texts shorter
// than n words collapse to a single shingle so tiny chunks still compare.
func wordShingles(text string, n int) map[string]struct{} {
	if n < 1 {
		n = 1
	}
	words := strings.Fields(strings.ToLower(text))
	shingles := make(map[string]struct{})
	if len(words) == 0 {
		return shingles
	}
	if len(words) < n {
		shingles[strings.Join(words, " ")] = struct{}{}
		return shingles
	}
	for i := 0; i+n <= len(words); i++ {
		shingles[strings.Join(words[i:i+n], " ")] = struct{}{}
	}
	return shingles
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for s := range a {
		if _, ok := b[s]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
