package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// ErrNoContent is returned when an upload batch yields no extractable text.
var ErrNoContent = errors.New("no text content extracted from uploaded files")

// Pipeline runs the ingestion flow: extract text per file, chunk it, and add
// the combined chunks to the vector index as one batch.
type Pipeline struct {
	extractor *extract.Extractor
	chunker   *Chunker
	index     *vector.Index
	logger    *zap.Logger
}

// NewPipeline creates a pipeline. logger may be nil.
func NewPipeline(extractor *extract.Extractor, chunker *Chunker, index *vector.Index, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{extractor: extractor, chunker: chunker, index: index, logger: logger}
}

// Ingest processes a batch of files. Files that are unsupported, unreadable,
// or yield no text are skipped without failing the batch. The batch fails
// only when nothing at all could be extracted, or when indexing the combined
// chunks fails; in that case nothing from the batch is kept.
func (p *Pipeline) Ingest(ctx context.Context, paths []string) (models.UploadResult, error) {
	var all []*models.Chunk
	documents := 0
	for _, path := range paths {
		source := filepath.Base(path)
		format := extract.DetectFormat(path)
		text, err := p.extractor.Extract(path, format)
		if err != nil {
			if errors.Is(err, extract.ErrUnsupportedFormat) {
				p.logger.Warn("skipping unsupported file", zap.String("source", source))
			} else {
				p.logger.Error("extraction failed", zap.String("source", source), zap.Error(err))
			}
			continue
		}
		if strings.TrimSpace(text) == "" {
			p.logger.Warn("no text extracted", zap.String("source", source))
			continue
		}
		chunks := p.chunker.Split(models.Document{SourceName: source, Text: text})
		documents++
		all = append(all, chunks...)
		p.logger.Info("document extracted",
			zap.String("source", source),
			zap.String("format", string(format)),
			zap.Int("characters", len(text)),
			zap.Int("chunks", len(chunks)),
		)
	}
	if len(all) == 0 {
		return models.UploadResult{}, ErrNoContent
	}
	count, err := p.index.Add(ctx, all)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("index chunks: %w", err)
	}
	p.logger.Info("batch ingested", zap.Int("documents", documents), zap.Int("chunks", count))
	return models.UploadResult{DocumentsProcessed: documents, ChunksCount: count}, nil
}
