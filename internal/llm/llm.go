// Package llm defines the external language-model collaborators: an Embedder
// that turns text into fixed-dimension vectors and a Generator that produces
// an answer for a prompt. Both are invoked with a deadline and retried once.
package llm

import (
	"context"
	"time"
)

// Embedder produces vector embeddings for text. Repeated calls on identical
// text must return semantically equivalent vectors; the dimension is fixed
// per backing model and discovered by callers from the first result.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// withRetry invokes fn with a per-attempt deadline and retries exactly once
// on failure. The retry is skipped when the parent context is already done,
// so cancellation propagates promptly.
func withRetry(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(callCtx)
	}
	if err := attempt(); err == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return attempt()
}
