package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/pkg/logger"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEmbedder builds the provider named in cfg. It returns
// ErrAutoLinkDisabled when no usable provider is configured.
func NewEmbedder(cfg *config.AIConfig) (Embedder, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "", "none":
		return nil, ErrAutoLinkDisabled
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" || strings.Contains(baseURL, "api.openai.com") {
			baseURL = "http://localhost:11434"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid Ollama base URL: %w", err)
		}
		return &ollamaEmbedder{client: api.NewClient(u, http.DefaultClient), model: modelOr(cfg.EmbeddingModel, "nomic-embed-text")}, nil
	}

	if cfg.APIKey == "" {
		return nil, ErrAutoLinkDisabled
	}

	switch provider {
	case "openai":
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		return &openAIEmbedder{client: openai.NewClientWithConfig(clientConfig), model: modelOr(cfg.EmbeddingModel, string(openai.SmallEmbedding3))}, nil
	case "azure":
		// BaseURL is https://{resource-name}.openai.azure.com; model is the deployment name.
		clientConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		return &openAIEmbedder{client: openai.NewClientWithConfig(clientConfig), model: cfg.EmbeddingModel}, nil
	case "gemini":
		return &geminiEmbedder{apiKey: cfg.APIKey, model: modelOr(cfg.EmbeddingModel, "text-embedding-004")}, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}

func checkCount(provider string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s returned %d embeddings for %d inputs", provider, got, want)
	}
	return nil
}

// openAIEmbedder serves OpenAI, OpenAI-compatible endpoints and Azure.
type openAIEmbedder struct {
	client *openai.Client
	model  string
}

func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		logger.Infof("[Embed] OpenAI API error: %v", err)
		return nil, fmt.Errorf("OpenAI embeddings error: %w", err)
	}
	if err := checkCount("OpenAI", len(resp.Data), len(texts)); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("OpenAI returned out of range index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

type ollamaEmbedder struct {
	client *api.Client
	model  string
}

func (e *ollamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		logger.Infof("[Embed] Ollama API error: %v", err)
		return nil, fmt.Errorf("Ollama embeddings error: %w", err)
	}
	if err := checkCount("Ollama", len(resp.Embeddings), len(texts)); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

type geminiEmbedder struct {
	apiKey string
	model  string
}

func (e *geminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini client error: %w", err)
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	resp, err := client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		logger.Infof("[Embed] Gemini API error: %v", err)
		return nil, fmt.Errorf("Gemini embeddings error: %w", err)
	}
	if err := checkCount("Gemini", len(resp.Embeddings), len(texts)); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
