package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultChatModel is the model used for chat completions
	DefaultChatModel = openai.GPT4oMini
	// DefaultEmbeddingDimensions is the expected embedding dimension of ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultMaxTokens caps the generated reply length
	DefaultMaxTokens = 1500
	// DefaultTemperature is the sampling temperature for chat completions
	DefaultTemperature = 0.7
)

var (
	// ErrNoTexts is returned when an embedding request has no input texts
	ErrNoTexts = errors.New("no texts to embed")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrNoChoices is returned when a completion comes back empty
	ErrNoChoices = errors.New("no completion choices returned")
)

// EmbeddingAPI defines the upstream surface used for embeddings
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// ChatAPI defines the upstream surface used for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds explicit client configuration. Zero values fall back to the
// package defaults.
type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	ChatModel           string
	EmbeddingDimensions int
	MaxTokens           int
	Temperature         float32
}

// Client wraps the OpenAI API for embeddings and chat completions.
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
	cfg        Config
}

// NewClient creates a new OpenAI client.
func NewClient(cfg Config) *Client {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	api := openai.NewClientWithConfig(clientCfg)

	return &Client{
		embeddings: api,
		chat:       api,
		cfg:        cfg,
	}
}

// NewClientFromEnv creates a client from the OPENAI_API_KEY environment variable.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(Config{APIKey: apiKey}), nil
}

// EmbedTexts generates one embedding per input text, order-preserving.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrNoTexts
	}

	resp, err := c.embeddings.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.cfg.EmbeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if len(d.Embedding) != c.cfg.EmbeddingDimensions {
			return nil, ErrWrongDimensions
		}
		embeddings[d.Index] = d.Embedding
	}

	return embeddings, nil
}

// EmbedText generates an embedding for a single text.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// ChatMessage is one turn of a chat completion request
type ChatMessage struct {
	Role    string
	Content string
}

// Usage reports token consumption of a completion
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the result of a chat completion call
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// Complete runs a chat completion over the given messages. Upstream errors
// keep their HTTP status in the message so callers can surface it.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        0.9,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("llm api error %d: %w", apiErr.HTTPStatusCode, err)
		}
		return nil, fmt.Errorf("llm request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	return &Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
