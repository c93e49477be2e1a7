package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetry_firstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), time.Second, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetry_retriesOnce(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), time.Second, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWithRetry_bothAttemptsFail(t *testing.T) {
	calls := 0
	wantErr := errors.New("still down")
	err := withRetry(context.Background(), time.Second, func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWithRetry_noRetryAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, time.Second, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("interrupted")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetry_attemptDeadline(t *testing.T) {
	err := withRetry(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Error("attempt context has no deadline")
		}
		if time.Until(deadline) > 10*time.Millisecond {
			t.Error("deadline further out than the configured timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
}

func TestMockEmbedder_deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	a, err := e.Embed(context.Background(), "same text")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(context.Background(), "same text")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 16 || len(b) != 16 {
		t.Fatalf("dimensions: %d, %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d", i)
		}
	}
}

func TestMockEmbedder_unitNorm(t *testing.T) {
	e := NewMockEmbedder(32)
	v, err := e.Embed(context.Background(), "norm check")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("squared norm = %f, want ~1", sum)
	}
}

func TestMockGenerator_recordsPrompts(t *testing.T) {
	g := &MockGenerator{Answer: "fixed"}
	got, err := g.Generate(context.Background(), "first prompt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "fixed" {
		t.Errorf("answer = %q", got)
	}
	if _, err := g.Generate(context.Background(), "second prompt"); err != nil {
		t.Fatal(err)
	}
	prompts := g.Prompts()
	if len(prompts) != 2 || prompts[0] != "first prompt" || prompts[1] != "second prompt" {
		t.Errorf("prompts = %v", prompts)
	}
}
