// Package tokenizer provides the token counting and encoding contract used
// by the chunking engine. Two implementations exist: a tiktoken-backed
// subword tokenizer and a character-count heuristic. The choice is made once
// at construction; chunking code never dispatches on errors at call time.
package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"

	"chunklock/internal/port"
)

// New resolves a tokenizer for the given embedder. Any failure to load the
// subword vocabulary degrades to the deterministic heuristic; callers never
// see an error. The returned tokenizer is pre-warmed so the first real call
// is not the first (and slowest) call.
func New(embedderName string) port.Tokenizer {
	tok := resolve(embedderName)
	tok.TokenLen("warmup")
	return tok
}

func resolve(embedderName string) port.Tokenizer {
	if embedderName != "" {
		if enc, err := tiktoken.EncodingForModel(embedderName); err == nil {
			return &Tiktoken{encoding: enc, encodingName: encodingNameForModel(embedderName)}
		}
	}
	if enc, err := tiktoken.GetEncoding(defaultEncoding); err == nil {
		return &Tiktoken{encoding: enc, encodingName: defaultEncoding}
	}
	return NewHeuristic()
}

func encodingNameForModel(model string) string {
	// tiktoken-go does not expose the resolved encoding name, so mirror its
	// model table for the families this pipeline meets. The embedding models
	// all use cl100k_base.
	switch model {
	case "gpt-4o", "gpt-4o-mini", "o1", "o1-mini":
		return "o200k_base"
	default:
		return defaultEncoding
	}
}
