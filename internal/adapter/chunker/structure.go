package chunker

import "strings"

// section is one structurally isolated piece of a document: either a fenced
// code block (kept verbatim) or a prose run bounded by headings.
type section struct {
	text     string
	verbatim bool
}

const fenceMarker = "```"

// splitStructural isolates fenced code blocks verbatim and splits the
// remaining prose on heading boundaries.
func splitStructural(content string) []section {
	lines := strings.Split(content, "\n")
	var sections []section
	var buf []string
	inFence := false

	flush := func(verbatim bool) {
		if len(buf) == 0 {
			return
		}
		text := strings.Join(buf, "\n")
		if strings.TrimSpace(text) != "" {
			sections = append(sections, section{text: text, verbatim: verbatim})
		}
		buf = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, fenceMarker) {
			if inFence {
				buf = append(buf, line)
				flush(true)
				inFence = false
				continue
			}
			flush(false)
			inFence = true
			buf = append(buf, line)
			continue
		}
		if !inFence && isHeading(line) && len(buf) > 0 {
			flush(false)
		}
		buf = append(buf, line)
	}
	// An unterminated fence is still emitted verbatim.
	flush(inFence)

	return sections
}

// isHeading reports whether a line is a markdown heading.
func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}
	rest := strings.TrimLeft(trimmed, "#")
	return rest == "" || strings.HasPrefix(rest, " ")
}

// splitParagraphs splits prose on blank-line boundaries.
func splitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	paras := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// headingOnly reports whether a chunk is just a heading: at most two lines
// with the first being a heading. Such chunks are merged into their
// predecessor instead of being emitted standalone.
func headingOnly(text string) bool {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 2 {
		return false
	}
	return isHeading(lines[0])
}
