package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/IshaanNene/medfeed/internal/config"
)

// LLMProvider specifies which LLM backend to use.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
	ProviderOllama LLMProvider = "ollama"
)

var defaultEndpoints = map[LLMProvider]string{
	ProviderGemini: "https://generativelanguage.googleapis.com/v1beta",
	ProviderOpenAI: "https://api.openai.com/v1",
	ProviderOllama: "http://localhost:11434",
}

// LLMClient communicates with an LLM for answers and post writing.
type LLMClient struct {
	provider LLMProvider
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// NewLLMClient creates a client from the ai config section.
func NewLLMClient(cfg *config.AIConfig, logger *slog.Logger) (*LLMClient, error) {
	provider := LLMProvider(cfg.Provider)
	endpoint, known := defaultEndpoints[provider]
	if !known {
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
	}
	if provider != ProviderOllama && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s provider requires ai.api_key", provider)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &LLMClient{
		provider: provider,
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "llm_client", "provider", string(provider)),
	}, nil
}

// Generate sends a prompt to the LLM and returns the text of its reply.
func (c *LLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	var (
		text string
		err  error
	)
	switch c.provider {
	case ProviderGemini:
		text, err = c.generateGemini(ctx, prompt)
	case ProviderOpenAI:
		text, err = c.generateOpenAI(ctx, prompt)
	case ProviderOllama:
		text, err = c.generateOllama(ctx, prompt)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s returned an empty reply", c.provider)
	}
	c.logger.Debug("generation complete", "model", c.model, "duration", time.Since(start), "length", len(text))
	return text, nil
}

func (c *LLMClient) generateGemini(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := c.postJSON(ctx, endpoint, payload, nil, &result); err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}
	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func (c *LLMClient) generateOpenAI(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, c.endpoint+"/chat/completions", payload, headers, &result); err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *LLMClient) generateOllama(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, c.endpoint+"/api/generate", payload, nil, &result); err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	return result.Response, nil
}

func (c *LLMClient) postJSON(ctx context.Context, endpoint string, payload any, headers map[string]string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
