package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/assistant"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/memory"
	"github.com/hyperjump/kotae/internal/store"
	"github.com/hyperjump/kotae/internal/vector"
)

const e2eDimensions = 24

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestE2E_UploadAskResetFlow(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewSQLiteStore(filepath.Join(dir, "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	embedder := llm.NewMockEmbedder(e2eDimensions)
	index := vector.NewIndex(embedder, st, nil)
	ctx := context.Background()
	if err := index.Load(ctx); err != nil {
		t.Fatal(err)
	}
	pipeline := ingest.NewPipeline(extract.NewExtractor(), ingest.NewChunker(80, 16), index, nil)
	gen := &llm.MockGenerator{Answer: "The warranty covers two years."}
	a := assistant.New(index, memory.New(), gen, pipeline, 4, nil)

	// Cold: nothing indexed yet.
	cold := a.Ask(ctx, "what is the warranty period?")
	if !strings.Contains(cold.Answer, "No documents have been uploaded yet") {
		t.Fatalf("cold answer = %q", cold.Answer)
	}

	// Upload two documents.
	warranty := writeDoc(t, dir, "warranty.txt",
		"The product warranty lasts two years from the purchase date and covers manufacturing defects.")
	shipping := writeDoc(t, dir, "shipping.md",
		"Orders ship within three business days. International shipping takes up to two weeks.")
	result, err := a.Ingest(ctx, []string{warranty, shipping})
	if err != nil {
		t.Fatal(err)
	}
	if result.DocumentsProcessed != 2 {
		t.Fatalf("DocumentsProcessed = %d, want 2", result.DocumentsProcessed)
	}

	// Ask: the answer comes from the generator, the sources from retrieval.
	answer := a.Ask(ctx, "warranty lasts two years purchase date")
	if answer.Answer != "The warranty covers two years." {
		t.Errorf("answer = %q", answer.Answer)
	}
	if len(answer.Sources) == 0 {
		t.Fatal("no sources attributed")
	}
	if answer.Sources[0] != "shipping.md" && answer.Sources[0] != "warranty.txt" {
		t.Errorf("unexpected source %q", answer.Sources[0])
	}
	prompts := gen.Prompts()
	if len(prompts) != 1 || !strings.Contains(prompts[0], "[source:") {
		t.Errorf("prompt missing excerpts:\n%s", prompts[0])
	}

	// Follow-up carries the conversation.
	a.Ask(ctx, "and how long does shipping take?")
	prompts = gen.Prompts()
	if !strings.Contains(prompts[1], "warranty lasts two years purchase date") {
		t.Errorf("follow-up prompt missing prior question:\n%s", prompts[1])
	}

	// Reset drops everything.
	if err := a.ResetIndex(ctx); err != nil {
		t.Fatal(err)
	}
	a.ClearConversation()
	if a.IndexSize() != 0 || a.TurnCount() != 0 {
		t.Errorf("after reset: index %d, turns %d", a.IndexSize(), a.TurnCount())
	}
	cold = a.Ask(ctx, "anything left?")
	if !strings.Contains(cold.Answer, "No documents have been uploaded yet") {
		t.Errorf("post-reset answer = %q", cold.Answer)
	}
}

func TestE2E_IndexSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chunks.db")
	ctx := context.Background()

	doc := writeDoc(t, dir, "facts.txt",
		"The mainframe room is kept at sixteen degrees Celsius at all times.")

	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	index := vector.NewIndex(llm.NewMockEmbedder(e2eDimensions), st, nil)
	if err := index.Load(ctx); err != nil {
		t.Fatal(err)
	}
	pipeline := ingest.NewPipeline(extract.NewExtractor(), ingest.NewChunker(80, 16), index, nil)
	if _, err := pipeline.Ingest(ctx, []string{doc}); err != nil {
		t.Fatal(err)
	}
	size := index.Size()
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen the store, as after a process restart.
	st2, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	index2 := vector.NewIndex(llm.NewMockEmbedder(e2eDimensions), st2, nil)
	gen := &llm.MockGenerator{Answer: "Sixteen degrees."}
	a := assistant.New(index2, memory.New(), gen, nil, 4, nil)

	answer := a.Ask(ctx, "mainframe room temperature")
	if answer.Answer != "Sixteen degrees." {
		t.Errorf("answer = %q", answer.Answer)
	}
	if len(answer.Sources) != 1 || answer.Sources[0] != "facts.txt" {
		t.Errorf("sources = %v", answer.Sources)
	}
	if index2.Size() != size {
		t.Errorf("restored index size %d, want %d", index2.Size(), size)
	}
}
