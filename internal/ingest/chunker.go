// Package ingest turns uploaded files into indexed chunks.
package ingest

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits document text into overlapping rune windows. Sizes are in
// runes, not bytes, so multi-byte characters are never split.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker with the given window size and overlap.
func NewChunker(chunkSize, overlap int) *Chunker {
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split cuts a document's text into chunks of at most chunkSize runes, each
// window starting chunkSize-overlap runes after the previous one so adjacent
// chunks share overlap runes of context. Every rune of text appears in at
// least one chunk, SequenceIndex starts at 0 and increases by one, and text
// no longer than chunkSize yields exactly one chunk. Empty text yields none.
func (c *Chunker) Split(doc models.Document) []*models.Chunk {
	sourceName := doc.SourceName
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.chunkSize {
		return []*models.Chunk{newChunk(sourceName, 0, doc.Text)}
	}
	step := c.chunkSize - c.overlap
	if step <= 0 {
		step = 1
	}
	var chunks []*models.Chunk
	seq := 0
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, newChunk(sourceName, seq, string(runes[start:end])))
		seq++
	}
	return chunks
}

func newChunk(sourceName string, seq int, text string) *models.Chunk {
	return &models.Chunk{
		ID:            fmt.Sprintf("%s_%d_%s", sourceName, seq, uuid.New().String()[:8]),
		SourceName:    sourceName,
		SequenceIndex: seq,
		Text:          text,
	}
}
