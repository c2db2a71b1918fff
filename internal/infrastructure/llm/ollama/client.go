package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/research-assistant/internal/infrastructure/resilience"
)

type Options struct {
	BaseURL     string
	GenModel    string
	EmbedModel  string
	Temperature float64
	HTTPTimeout time.Duration
	Executor    *resilience.Executor
}

type Client struct {
	baseURL     string
	genModel    string
	embedModel  string
	temperature float64
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(opts Options) *Client {
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		genModel:    opts.GenModel,
		embedModel:  opts.EmbedModel,
		temperature: opts.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		executor:    opts.Executor,
	}
}

// Ping checks that the Ollama server answers, for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/tags", nil, nil, "ping")
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

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.call(ctx, "ollama_embed", func(callCtx context.Context) error {
		return e.client.doJSON(callCtx, http.MethodPost, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: expected %d vectors, got %d", len(texts), len(response.Embeddings))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
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
	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
	}
	if g.client.temperature > 0 {
		reqBody["options"] = map[string]any{"temperature": g.client.temperature}
	}

	var response struct {
		Response string `json:"response"`
	}
	err := g.client.call(ctx, "ollama_generate", func(callCtx context.Context) error {
		return g.client.doJSON(callCtx, http.MethodPost, "/api/generate", reqBody, &response, "generate")
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor == nil {
		err = fn(ctx)
	} else {
		err = c.executor.Execute(ctx, operation, fn, classifyOllamaError)
	}
	return resilience.MarkTemporary(operation, err, classifyOllamaError)
}
