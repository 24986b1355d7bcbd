package chunker

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"chunklock/internal/domain"
	"chunklock/internal/port"
)

// minChunkTokens is the noise floor: chunks at or below this token length
// are dropped.
const minChunkTokens = 10

// Engine is the tokenizer-aware recursive splitter. It applies, per
// document: structural split, paragraph accumulation with overlap,
// token-level windowing as the hard cap, heading-merge structure
// protection, shingle-based near-duplicate removal and dual-text pairing.
type Engine struct {
	cfg     domain.ChunkingConfig
	tok     port.Tokenizer
	overlap int
}

// NewEngine fails fast on a config violating the overlap invariant; a bad
// ratio never reaches the pipeline.
func NewEngine(cfg domain.ChunkingConfig, tok port.Tokenizer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}
	return &Engine{cfg: cfg, tok: tok, overlap: cfg.Overlap()}, nil
}

// ChunkDocument runs the full pipeline over one document. Identical
// (content, meta, config) inputs reproduce identical ordered chunk ids.
func (e *Engine) ChunkDocument(content string, meta domain.DocumentMeta) ([]domain.Chunk, domain.ChunkMetrics, error) {
	start := time.Now()

	sections := splitStructural(content)

	preLens := make([]int, 0, len(sections))
	totalTokens := 0
	for _, s := range sections {
		n := e.tok.TokenLen(s.text)
		preLens = append(preLens, n)
		totalTokens += n
	}

	var candidates []string
	for i, s := range sections {
		if preLens[i] <= e.cfg.ChunkSize {
			candidates = append(candidates, s.text)
			continue
		}
		if s.verbatim {
			// Oversized code blocks go straight to token windowing.
			candidates = append(candidates, e.windowTokens(s.text)...)
			continue
		}
		for _, piece := range e.accumulateParagraphs(s.text) {
			if e.tok.TokenLen(piece) > e.cfg.ChunkSize {
				candidates = append(candidates, e.windowTokens(piece)...)
			} else {
				candidates = append(candidates, piece)
			}
		}
	}

	candidates = mergeHeadingOnly(candidates)

	arena := &shingleArena{}
	var kept []string
	for _, text := range candidates {
		if !arena.admit(text, e.cfg.NgramSize, e.cfg.JaccardThreshold) {
			continue
		}
		// Noise filtering runs after dedup admission: a dropped tiny chunk
		// still claims its shingles, so later near-duplicates of it collapse
		// as well.
		if e.tok.TokenLen(text) <= minChunkTokens {
			continue
		}
		kept = append(kept, text)
	}

	chunks := make([]domain.Chunk, 0, len(kept))
	postLens := make([]int, 0, len(kept))
	overBudget := 0
	for i, text := range kept {
		chunk := e.buildChunk(text, meta, i)
		if e.cfg.MaxTokens > 0 && chunk.TokenCounts.Embedding > e.cfg.MaxTokens {
			overBudget++
		}
		postLens = append(postLens, e.tok.TokenLen(text))
		chunks = append(chunks, chunk)
	}

	elapsed := time.Since(start)
	metrics := domain.ChunkMetrics{
		ChunkCount:      len(chunks),
		PreSplitTokens:  distribution(preLens),
		PostSplitTokens: distribution(postLens),
		OverBudget:      overBudget,
		ProcessingTime:  elapsed,
	}
	if totalTokens > 0 {
		metrics.TimePer1KTokens = time.Duration(float64(elapsed) * 1000 / float64(totalTokens))
	}

	return chunks, metrics, nil
}

// accumulateParagraphs packs paragraphs into chunks up to the token cap,
// seeding each new chunk with the trailing overlap tokens' worth of words
// from the previous one.
func (e *Engine) accumulateParagraphs(text string) []string {
	paras := splitParagraphs(text)
	if len(paras) == 0 {
		return nil
	}

	var chunks []string
	var parts []string
	currentTokens := 0

	for _, para := range paras {
		paraTokens := e.tok.TokenLen(para)
		if len(parts) > 0 && currentTokens+paraTokens > e.cfg.ChunkSize {
			chunk := strings.Join(parts, "\n\n")
			chunks = append(chunks, chunk)

			seed := e.trailingWords(chunk)
			parts = parts[:0]
			currentTokens = 0
			if seed != "" {
				parts = append(parts, seed)
				currentTokens = e.tok.TokenLen(seed)
			}
		}
		parts = append(parts, para)
		currentTokens += paraTokens
	}
	if len(parts) > 0 {
		chunks = append(chunks, strings.Join(parts, "\n\n"))
	}

	return chunks
}

// trailingWords returns the word-boundary approximation of the last
// overlap tokens of text.
func (e *Engine) trailingWords(text string) string {
	words := strings.Fields(text)
	tokens := 0
	i := len(words)
	for i > 0 && tokens < e.overlap {
		i--
		tokens += e.tok.TokenLen(words[i])
	}
	if i == 0 {
		// The whole chunk fits inside the overlap; reseeding it would just
		// duplicate the chunk.
		return ""
	}
	return strings.Join(words[i:], " ")
}

// windowTokens is the final safety net: slide a window of ChunkSize token
// ids with stride max(1, size-overlap), so no emitted chunk exceeds the cap
// and consecutive windows share exactly overlap tokens.
func (e *Engine) windowTokens(text string) []string {
	ids := e.tok.Encode(text)
	if len(ids) == 0 {
		return nil
	}
	size := e.cfg.ChunkSize
	stride := size - e.overlap
	if stride < 1 {
		stride = 1
	}

	var out []string
	for start := 0; ; start += stride {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, e.tok.Decode(ids[start:end]))
		if end == len(ids) {
			break
		}
	}
	return out
}

// mergeHeadingOnly folds bare-heading chunks into their predecessor so a
// heading is never emitted standalone.
func mergeHeadingOnly(candidates []string) []string {
	var out []string
	for _, text := range candidates {
		if len(out) > 0 && headingOnly(text) {
			out[len(out)-1] = out[len(out)-1] + "\n\n" + text
			continue
		}
		out = append(out, text)
	}
	return out
}

// buildChunk pairs the dual texts, counts tokens per variant and computes
// the deterministic chunk id.
func (e *Engine) buildChunk(text string, meta domain.DocumentMeta, index int) domain.Chunk {
	prefix := ""
	if e.cfg.UseContextualPrefix {
		prefix = domain.ContextPrefix(meta)
	}

	embeddingText := prefix + text
	bm25Text := text
	if e.cfg.PrefixPolicy == domain.PrefixPolicyB {
		bm25Text = prefix + text
	}

	return domain.Chunk{
		ChunkID:       domain.ChunkID(embeddingText, e.cfg),
		EmbeddingText: embeddingText,
		BM25Text:      bm25Text,
		TokenCounts: domain.TokenCounts{
			Embedding: e.tok.TokenLen(embeddingText),
			BM25:      e.tok.TokenLen(bm25Text),
		},
		Metadata: domain.ChunkMetadata{
			IngestRunID:  e.cfg.IngestRunID,
			ChunkVersion: e.cfg.ChunkVersion,
			ConfigHash:   e.cfg.ConfigHash(),
			ChunkSize:    e.cfg.ChunkSize,
			SourcePath:   meta.SourcePath,
			Title:        meta.Title,
			SectionPath:  meta.SectionPath,
			ContentType:  meta.ContentType,
			ChunkIndex:   index,
		},
	}
}

// distribution computes p50/p95/max over token lengths.
func distribution(lens []int) domain.TokenDistribution {
	if len(lens) == 0 {
		return domain.TokenDistribution{}
	}
	sorted := make([]int, len(lens))
	copy(sorted, lens)
	sort.Ints(sorted)

	return domain.TokenDistribution{
		Count: len(sorted),
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
		Max:   sorted[len(sorted)-1],
	}
}

func percentile(sorted []int, p float64) int {
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
