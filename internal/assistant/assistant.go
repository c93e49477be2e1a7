// Package assistant answers questions from indexed documents with
// conversational context and source attribution.
package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/memory"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// coldAnswer is returned when nothing has been indexed yet.
const coldAnswer = "No documents have been uploaded yet. Please upload documents first."

// defaultTopK is how many chunks are retrieved per question.
const defaultTopK = 4

// Assistant ties together retrieval, conversation memory, and generation.
// One instance is constructed at process start and shared by all requests.
type Assistant struct {
	index     *vector.Index
	memory    *memory.Memory
	generator llm.Generator
	pipeline  *ingest.Pipeline
	topK      int
	logger    *zap.Logger
}

// New creates an assistant. topK <= 0 selects the default. logger may be nil.
func New(index *vector.Index, mem *memory.Memory, generator llm.Generator, pipeline *ingest.Pipeline, topK int, logger *zap.Logger) *Assistant {
	if topK <= 0 {
		topK = defaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		index:     index,
		memory:    mem,
		generator: generator,
		pipeline:  pipeline,
		topK:      topK,
		logger:    logger,
	}
}

// Ask answers question from the indexed documents and the conversation so
// far. With nothing indexed it returns a fixed informational answer and does
// not touch memory. Collaborator failures are reported inline in the answer
// with empty sources, and the turn is still recorded so one failed call does
// not break the conversation. The caller always gets a well-formed result.
func (a *Assistant) Ask(ctx context.Context, question string) models.AskResult {
	if !a.index.Loaded() {
		if err := a.index.Load(ctx); err != nil {
			a.logger.Error("load index", zap.Error(err))
			return a.fail(question, err)
		}
	}
	if a.index.Size() == 0 {
		return models.AskResult{Answer: coldAnswer, Sources: []string{}}
	}

	hits, err := a.index.Query(ctx, question, a.topK)
	if err != nil {
		a.logger.Error("retrieval failed", zap.Error(err))
		return a.fail(question, err)
	}
	prompt := buildPrompt(hits, a.memory.History(), question)
	answer, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		a.logger.Error("generation failed", zap.Error(err))
		return a.fail(question, err)
	}

	sources := sourceNames(hits)
	a.remember(question, answer, sources)
	a.logger.Info("question answered",
		zap.String("question", utils.Truncate(question, 120)),
		zap.Int("retrieved", len(hits)),
		zap.Strings("sources", sources),
	)
	return models.AskResult{Answer: answer, Sources: sources}
}

// fail converts a collaborator error into an inline degraded answer. The
// failed turn is recorded with no sources so the conversation stays coherent
// with what the user saw.
func (a *Assistant) fail(question string, err error) models.AskResult {
	answer := fmt.Sprintf("An error occurred: %v", err)
	a.remember(question, answer, nil)
	return models.AskResult{Answer: answer, Sources: []string{}}
}

func (a *Assistant) remember(question, answer string, sources []string) {
	a.memory.Append(models.ConversationTurn{Role: models.RoleUser, Text: question})
	a.memory.Append(models.ConversationTurn{Role: models.RoleAssistant, Text: answer, Sources: sources})
}

// Ingest runs the upload batch through the ingestion pipeline.
func (a *Assistant) Ingest(ctx context.Context, paths []string) (models.UploadResult, error) {
	return a.pipeline.Ingest(ctx, paths)
}

// ResetIndex drops every indexed chunk and its backing storage.
func (a *Assistant) ResetIndex(ctx context.Context) error {
	return a.index.Reset(ctx)
}

// ClearConversation removes every conversation turn.
func (a *Assistant) ClearConversation() {
	a.memory.Clear()
}

// History returns the conversation turns, oldest first. Read-only accessor
// for the report boundary.
func (a *Assistant) History() []models.ConversationTurn {
	return a.memory.History()
}

// IndexSize returns the number of indexed chunks.
func (a *Assistant) IndexSize() int {
	return a.index.Size()
}

// TurnCount returns the number of conversation turns.
func (a *Assistant) TurnCount() int {
	return a.memory.Len()
}

// sourceNames returns the distinct source names of hits, sorted
// lexicographically so results are reproducible.
func sourceNames(hits []vector.Hit) []string {
	seen := make(map[string]bool, len(hits))
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if !seen[h.Chunk.SourceName] {
			seen[h.Chunk.SourceName] = true
			out = append(out, h.Chunk.SourceName)
		}
	}
	sort.Strings(out)
	return out
}

// buildPrompt lays out the retrieved excerpts, the conversation so far, and
// the question for the generator.
func buildPrompt(hits []vector.Hit, history []models.ConversationTurn, question string) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant. Answer the question using only the document excerpts below. If the answer is not in them, say so.\n\n")
	b.WriteString("Document excerpts:\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "[source: %s]\n%s\n\n", h.Chunk.SourceName, h.Chunk.Text)
	}
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range history {
			switch t.Role {
			case models.RoleUser:
				b.WriteString("User: ")
			case models.RoleAssistant:
				b.WriteString("Assistant: ")
			}
			b.WriteString(t.Text)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
