package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordShingles(t *testing.T) {
	shingles := wordShingles("one two three four", 2)
	assert.Len(t, shingles, 3)
	assert.Contains(t, shingles, "one two")
	assert.Contains(t, shingles, "three four")

	// Shorter than n collapses to a single shingle.
	short := wordShingles("one two", 5)
	assert.Len(t, short, 1)
	assert.Contains(t, short, "one two")

	// Case-insensitive.
	assert.Equal(t, wordShingles("One TWO three four", 2), shingles)
}

func TestJaccard(t *testing.T) {
	a := wordShingles("one two three four", 2)
	b := wordShingles("one two three four", 2)
	assert.Equal(t, 1.0, jaccard(a, b))

	c := wordShingles("five six seven eight", 2)
	assert.Equal(t, 0.0, jaccard(a, c))

	assert.Equal(t, 0.0, jaccard(map[string]struct{}{}, map[string]struct{}{}))
}

func TestArenaFirstSeenWins(t *testing.T) {
	arena := &shingleArena{}

	assert.True(t, arena.admit("the quick brown fox jumps over the lazy dog", 3, 0.8))
	// Identical chunk is rejected; the original stays.
	assert.False(t, arena.admit("the quick brown fox jumps over the lazy dog", 3, 0.8))
	// A distinct chunk is admitted.
	assert.True(t, arena.admit("entirely different words about configuration locking here", 3, 0.8))
	assert.Len(t, arena.sets, 2)
}
