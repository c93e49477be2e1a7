// Package vector provides the chunk embedding index: inner-product similarity
// search over unit vectors with store-backed persistence.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrDimensionMismatch reports an embedding whose dimension disagrees with
// the index. It is structural and aborts the whole ingestion batch.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Hit is a single similarity search result.
type Hit struct {
	Chunk *models.Chunk
	Score float64
}

// Store persists chunk vectors so the index survives restarts.
type Store interface {
	AppendChunks(ctx context.Context, chunks []*models.Chunk) error
	LoadChunks(ctx context.Context) ([]*models.Chunk, error)
	Reset(ctx context.Context) error
}

// Index holds chunk embeddings in memory in ingestion order, backed by a
// durable store. Add, Reset, and Load are mutually exclusive with each other
// and with Query; Query calls may run concurrently. The embedding dimension
// is discovered from the first vector seen and enforced afterwards.
type Index struct {
	embedder llm.Embedder
	store    Store
	logger   *zap.Logger

	mu         sync.RWMutex
	chunks     []*models.Chunk
	dimensions int // 0 until the first embedding is seen
	loaded     bool
}

// NewIndex creates an index over store using embedder. logger may be nil.
func NewIndex(embedder llm.Embedder, store Store, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{embedder: embedder, store: store, logger: logger}
}

// Load replaces in-memory contents with the persisted chunks. Safe to call
// on an empty store; the index is then simply empty.
func (ix *Index) Load(ctx context.Context) error {
	chunks, err := ix.store.LoadChunks(ctx)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = chunks
	ix.dimensions = 0
	if len(chunks) > 0 {
		ix.dimensions = len(chunks[0].Embedding)
	}
	ix.loaded = true
	ix.logger.Info("vector index loaded",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimensions", ix.dimensions),
	)
	return nil
}

// Loaded reports whether Load has run since construction.
func (ix *Index) Loaded() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.loaded
}

// Add embeds chunks and appends them to the index and the store. The batch
// is all-or-nothing: an embedding failure or dimension mismatch rejects every
// chunk in it, and previously indexed entries are untouched. Returns the
// number of chunks added.
func (ix *Index) Add(ctx context.Context, chunks []*models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(chunks))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	dims := ix.dimensions
	if dims == 0 {
		dims = len(embeddings[0])
	}
	for i, emb := range embeddings {
		if len(emb) != dims {
			return 0, fmt.Errorf("%w: chunk %d has %d, index expects %d",
				ErrDimensionMismatch, i, len(emb), dims)
		}
	}
	for i, emb := range embeddings {
		utils.NormalizeL2(emb)
		chunks[i].Embedding = emb
	}
	if err := ix.store.AppendChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("persist chunks: %w", err)
	}
	ix.dimensions = dims
	ix.chunks = append(ix.chunks, chunks...)
	return len(chunks), nil
}

// Query embeds text and returns the k most similar chunks. Ordering: score
// descending; ties broken by lower SequenceIndex, then earlier ingestion.
// An empty index returns no hits and no error, without calling the embedder.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if k <= 0 || ix.Size() == 0 {
		return nil, nil
	}
	query, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	utils.NormalizeL2(query)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.chunks) == 0 {
		return nil, nil
	}
	if len(query) != ix.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index expects %d",
			ErrDimensionMismatch, len(query), ix.dimensions)
	}
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(ix.chunks))
	for i, ch := range ix.chunks {
		scores[i] = scored{pos: i, score: InnerProduct(query, ch.Embedding)}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		ci, cj := ix.chunks[scores[i].pos], ix.chunks[scores[j].pos]
		if ci.SequenceIndex != cj.SequenceIndex {
			return ci.SequenceIndex < cj.SequenceIndex
		}
		return scores[i].pos < scores[j].pos
	})
	if k > len(scores) {
		k = len(scores)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = Hit{Chunk: ix.chunks[scores[i].pos], Score: scores[i].score}
	}
	return hits, nil
}

// Reset drops all entries and the backing rows. A subsequent Add starts a
// fresh index with a freshly discovered dimension.
func (ix *Index) Reset(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	ix.chunks = nil
	ix.dimensions = 0
	ix.logger.Info("vector index reset")
	return nil
}

// Size returns the number of indexed chunks.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Dimensions returns the discovered embedding dimension, 0 when empty.
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimensions
}
