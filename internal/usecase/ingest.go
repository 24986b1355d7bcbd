package usecase

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chunklock/internal/adapter/fs"
	"chunklock/internal/domain"
	"chunklock/internal/port"
)

// IngestUseCase runs the chunking engine over every discovered document and
// writes the resulting records as JSONL for the storage collaborator. The
// chunker itself performs no vector or BM25 I/O.
type IngestUseCase struct {
	walker port.Walker
	engine port.Chunker
	output string
}

func NewIngestUseCase(walker port.Walker, engine port.Chunker, output string) *IngestUseCase {
	return &IngestUseCase{
		walker: walker,
		engine: engine,
		output: output,
	}
}

// IngestResult aggregates one ingest run.
type IngestResult struct {
	DocsProcessed int
	DocsFailed    int
	ChunksWritten int
	OverBudget    int
	TotalTime     time.Duration
	Errors        []string
}

// ProgressFunc reports per-document progress to the CLI.
type ProgressFunc func(processed, total int, path string)

// Ingest chunks every document under root. Documents are processed
// independently; a failure on one is recorded and the run continues.
func (u *IngestUseCase) Ingest(root string, progress ProgressFunc) (*IngestResult, error) {
	docs, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	// Chunks land in a temp file first; a failed run never leaves a partial
	// chunk file at the output path.
	tmp := u.output + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to create output %s: %w", tmp, err)
	}
	discard := func(err error) (*IngestResult, error) {
		out.Close()
		os.Remove(tmp)
		return nil, err
	}

	writer := bufio.NewWriter(out)
	encoder := json.NewEncoder(writer)

	result := &IngestResult{}
	start := time.Now()

	for i, doc := range docs {
		if progress != nil {
			progress(i, len(docs), doc.RelPath)
		}

		content, err := fs.ReadFile(doc.AbsPath)
		if err != nil {
			result.DocsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("read %s: %v", doc.RelPath, err))
			continue
		}

		meta := documentMeta(doc.RelPath, content)
		chunks, metrics, err := u.engine.ChunkDocument(content, meta)
		if err != nil {
			result.DocsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("chunk %s: %v", doc.RelPath, err))
			continue
		}

		for _, chunk := range chunks {
			if err := encoder.Encode(chunk); err != nil {
				return discard(fmt.Errorf("failed to write chunk record: %w", err))
			}
		}

		result.DocsProcessed++
		result.ChunksWritten += len(chunks)
		result.OverBudget += metrics.OverBudget
	}

	if progress != nil {
		progress(len(docs), len(docs), "")
	}

	if err := writer.Flush(); err != nil {
		return discard(fmt.Errorf("failed to flush output: %w", err))
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(tmp, u.output); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to finalize output: %w", err)
	}

	result.TotalTime = time.Since(start)
	return result, nil
}

// documentMeta derives chunk-facing metadata from the document itself:
// title from the first heading (else the file name), section path from the
// directory, content type from the extension.
func documentMeta(relPath, content string) domain.DocumentMeta {
	title := firstHeading(content)
	if title == "" {
		base := filepath.Base(relPath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	sectionPath := ""
	if dir := filepath.Dir(relPath); dir != "." {
		sectionPath = strings.ReplaceAll(filepath.ToSlash(dir), "/", " > ")
	}

	return domain.DocumentMeta{
		SourcePath:  relPath,
		Title:       title,
		SectionPath: sectionPath,
		ContentType: contentType(relPath),
	}
}

func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	return ""
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "markdown"
	case ".rst":
		return "restructuredtext"
	case ".html", ".htm":
		return "html"
	case ".txt":
		return "text"
	default:
		return "text"
	}
}
