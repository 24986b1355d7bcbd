package domain

import "strings"

// ContextPrefixMarker starts every contextual prefix. Retrieval health
// checks use it to detect prefix leakage into BM25 text under policy A.
const ContextPrefixMarker = "Context: "

// ContextPrefix builds the contextual header prepended to a chunk:
// title, section path and content type drawn from document metadata.
// Returns "" when the metadata carries nothing to say.
func ContextPrefix(meta DocumentMeta) string {
	var parts []string
	if meta.Title != "" {
		parts = append(parts, meta.Title)
	}
	if meta.SectionPath != "" {
		parts = append(parts, meta.SectionPath)
	}
	if meta.ContentType != "" {
		parts = append(parts, meta.ContentType)
	}
	if len(parts) == 0 {
		return ""
	}
	return ContextPrefixMarker + strings.Join(parts, " | ") + "\n\n"
}
