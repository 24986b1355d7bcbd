package port

import "chunklock/internal/domain"

// Chunker turns one document into dual-text chunk records plus run metrics.
type Chunker interface {
	ChunkDocument(content string, meta domain.DocumentMeta) ([]domain.Chunk, domain.ChunkMetrics, error)
}
