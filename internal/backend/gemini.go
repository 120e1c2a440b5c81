package backend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// GeminiConfig contains configuration for creating a GeminiClient.
type GeminiConfig struct {
	// BackendID is the registry id this client answers to.
	BackendID string
	// Model is the Gemini model name.
	Model string
	// APIKey is the Google API key. If empty, uses GOOGLE_API_KEY.
	APIKey string
	// MaxTokens is the default output cap when a call does not set one.
	MaxTokens int
}

// GeminiClient invokes Google Gemini models through the genai SDK.
// Gemini carries the largest practical context window of the registry,
// so large-document tasks usually land here.
type GeminiClient struct {
	id        string
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGeminiClient creates a Gemini invoker.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GOOGLE_API_KEY is not set", ErrAuthentication)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 65_535
	}

	id := cfg.BackendID
	if id == "" {
		id = model
	}

	return &GeminiClient{id: id, client: client, model: model, maxTokens: maxTokens}, nil
}

// ID returns the backend id.
func (c *GeminiClient) ID() string { return c.id }

// Invoke performs one generation call.
func (c *GeminiClient) Invoke(ctx context.Context, prompt, system string, opts Options) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", c.mapError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", &ProviderError{Backend: c.id, Err: errors.New("empty response content")}
	}
	return text, nil
}

// mapError translates SDK errors to the shared taxonomy.
func (c *GeminiClient) mapError(err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return classifyStatus(c.id, apierr.Code, err)
	}
	return &ProviderError{Backend: c.id, Err: err}
}
