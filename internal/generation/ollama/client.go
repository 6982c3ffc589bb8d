// Package ollama provides a client for a local Ollama text-generation backend.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/provider/resilience"
)

const (
	// ProviderName identifies this generation backend.
	ProviderName = "ollama"

	// DefaultBaseURL is the local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the generation model used when none is configured.
	DefaultModel = "gemma3"

	// DefaultNumPredict bounds the generated output length in tokens.
	DefaultNumPredict = 200

	// DefaultTimeout covers local model inference, which is slow compared
	// to API fetches.
	DefaultTimeout = 30 * time.Second
)

// ClientConfig holds configuration for the Ollama client.
type ClientConfig struct {
	// BaseURL overrides the backend URL (defaults to local Ollama).
	BaseURL string

	// Model is the generation model name.
	Model string

	// NumPredict bounds output length; 0 uses DefaultNumPredict.
	NumPredict int

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a circuit-breaker protected client with a 30s timeout.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client generates text through a local Ollama instance, non-streaming only.
type Client struct {
	baseURL    string
	model      string
	numPredict int
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Ollama client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	numPredict := cfg.NumPredict
	if numPredict == 0 {
		numPredict = DefaultNumPredict
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = DefaultTimeout
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		model:      model,
		numPredict: numPredict,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return ProviderName
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict int `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends the prompt to the backend and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{NumPredict: c.numPredict},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := c.baseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(snippet))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return result.Response, nil
}
