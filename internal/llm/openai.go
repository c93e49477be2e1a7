package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// defaultTimeout bounds a single collaborator call when no timeout is configured.
const defaultTimeout = 30 * time.Second

// OpenAIClient implements Embedder and Generator against an OpenAI-compatible
// API (including local servers that speak the same protocol via BaseURL).
type OpenAIClient struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
	timeout        time.Duration
}

// NewOpenAIClient creates a client. baseURL may be empty for the public API.
func NewOpenAIClient(apiKey, baseURL, embeddingModel, chatModel string, timeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAIClient{
		client:         openai.NewClientWithConfig(cfg),
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
		timeout:        timeout,
	}
}

// Embed returns the embedding for a single text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request, preserving input order.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var rsp openai.EmbeddingResponse
	err := withRetry(ctx, c.timeout, func(ctx context.Context) error {
		var err error
		rsp, err = c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(rsp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(rsp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range rsp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("empty embedding for input %d", i)
		}
	}
	return out, nil
}

// Generate returns the model's completion for prompt.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	var rsp openai.ChatCompletionResponse
	err := withRetry(ctx, c.timeout, func(ctx context.Context) error {
		var err error
		rsp, err = c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(rsp.Choices) == 0 || rsp.Choices[0].Message.Content == "" {
		return "", errors.New("no response from model")
	}
	return rsp.Choices[0].Message.Content, nil
}
