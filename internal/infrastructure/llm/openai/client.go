package openai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/research-assistant/internal/infrastructure/resilience"
)

// Config holds the settings of an OpenAI-compatible provider.
type Config struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Dimensions  int
	Temperature float32
	Executor    *resilience.Executor
}

// Client talks to any OpenAI-compatible API (OpenAI, vLLM, LocalAI, Nebius).
type Client struct {
	api         *openai.Client
	chatModel   string
	embedModel  openai.EmbeddingModel
	dimensions  int
	temperature float32
	executor    *resilience.Executor
}

func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}

	return &Client{
		api:         openai.NewClientWithConfig(clientCfg),
		chatModel:   cfg.ChatModel,
		embedModel:  openai.EmbeddingModel(cfg.EmbedModel),
		dimensions:  cfg.Dimensions,
		temperature: cfg.Temperature,
		executor:    cfg.Executor,
	}
}

// Ping verifies API availability via ListModels.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", parseAPIError("list models", err))
	}
	return nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.client.embedModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.client.dimensions > 0 {
		req.Dimensions = e.client.dimensions
	}

	var resp openai.EmbeddingResponse
	err := e.client.call(ctx, "openai_embed", func(callCtx context.Context) error {
		var callErr error
		resp, callErr = e.client.api.CreateEmbeddings(callCtx, req)
		return callErr
	})
	if err != nil {
		return nil, parseAPIError("embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, 0, len(data))
	for _, item := range data {
		out = append(out, item.Embedding)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	// An empty vector is a valid answer; retrieval skips the vector branches.
	if vectors[0] == nil {
		return []float32{}, nil
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateFromPrompt(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.client.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.client.temperature,
	}

	var resp openai.ChatCompletionResponse
	err := g.client.call(ctx, "openai_chat", func(callCtx context.Context) error {
		var callErr error
		resp, callErr = g.client.api.CreateChatCompletion(callCtx, req)
		return callErr
	})
	if err != nil {
		return "", parseAPIError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyAPIError)
}
