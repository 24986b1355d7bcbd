package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHeading(t *testing.T) {
	assert.True(t, isHeading("# Title"))
	assert.True(t, isHeading("### Sub heading"))
	assert.True(t, isHeading("  ## indented"))
	assert.True(t, isHeading("#"))
	assert.False(t, isHeading("#not-a-heading"))
	assert.False(t, isHeading("plain text"))
	assert.False(t, isHeading(""))
}

func TestSplitStructuralHeadings(t *testing.T) {
	content := "intro text\nmore intro\n# First\nbody one\n## Second\nbody two"

	sections := splitStructural(content)
	require.Len(t, sections, 3)
	assert.Equal(t, "intro text\nmore intro", sections[0].text)
	assert.Equal(t, "# First\nbody one", sections[1].text)
	assert.Equal(t, "## Second\nbody two", sections[2].text)
	for _, s := range sections {
		assert.False(t, s.verbatim)
	}
}

func TestSplitStructuralFences(t *testing.T) {
	content := "prose before\n```\ncode line\n# not a heading inside fence\n```\nprose after"

	sections := splitStructural(content)
	require.Len(t, sections, 3)

	assert.False(t, sections[0].verbatim)
	assert.True(t, sections[1].verbatim)
	assert.False(t, sections[2].verbatim)

	// Headings inside a fence do not split it.
	assert.Contains(t, sections[1].text, "# not a heading inside fence")
	assert.Contains(t, sections[1].text, "```")
}

func TestSplitStructuralUnterminatedFence(t *testing.T) {
	content := "prose\n```python\nstill code"

	sections := splitStructural(content)
	require.Len(t, sections, 2)
	assert.True(t, sections[1].verbatim)
	assert.Contains(t, sections[1].text, "still code")
}

func TestHeadingOnly(t *testing.T) {
	assert.True(t, headingOnly("# Alone"))
	assert.True(t, headingOnly("# Heading\nshort second line"))
	assert.False(t, headingOnly("# Heading\nline two\nline three"))
	assert.False(t, headingOnly("not a heading"))
}

func TestSplitParagraphs(t *testing.T) {
	paras := splitParagraphs("first para\n\nsecond para\n\n\n\nthird")
	require.Len(t, paras, 3)
	assert.Equal(t, "first para", paras[0])
}
