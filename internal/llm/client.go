// Package llm is the single textual I/O surface for every LLM consumer in
// internal/mcts, internal/priors, and internal/hybrid. It exposes one
// blocking Generate call over two backends -- a local Ollama-style server
// and a cloud proxy -- plus consecutive-failure degraded-mode tracking.
// Failed calls are not retried.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// connectTimeout bounds how long dialing a backend's TCP connection may
// take, distinct from the overall request timeout below.
const connectTimeout = 5 * time.Second

// newHTTPClient builds an http.Client with a read timeout covering the
// whole request and a separate, shorter dial timeout.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		},
	}
}

// Options configures one Generate call.
type Options struct {
	Model       string
	Temperature float64
}

// Client is the façade every consumer holds. It is not safe for concurrent
// Generate calls from the same consumer -- each agent instance should hold
// its own Client rather than sharing one across goroutines.
type Client struct {
	backend Backend
	log     zerolog.Logger

	mu                sync.Mutex
	consecutiveFails  int
	maxFailures       int
	degraded          bool
	consultations     int
	errors            int
}

// Backend is the transport-level abstraction a Client delegates to.
type Backend interface {
	generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// NewLocal builds a Client against a local Ollama-style server.
func NewLocal(host string, maxFailures int, log zerolog.Logger) *Client {
	return &Client{
		backend:     &localBackend{host: host, httpClient: newHTTPClient()},
		log:         log,
		maxFailures: maxFailuresOrDefault(maxFailures),
	}
}

// NewProxy builds a Client against a hosted, OpenAI-compatible provider.
// provider selects which environment variable holds the API key:
// "deepseek" -> DEEPSEEK_API_KEY, "openai" -> OPENAI_API_KEY,
// "openrouter" -> OPENROUTER_API_KEY.
func NewProxy(baseURL, provider string, maxFailures int, log zerolog.Logger) (*Client, error) {
	key, err := apiKeyFor(provider)
	if err != nil {
		return nil, err
	}
	return &Client{
		backend: &proxyBackend{
			baseURL:    baseURL,
			apiKey:     key,
			httpClient: newHTTPClient(),
		},
		log:         log,
		maxFailures: maxFailuresOrDefault(maxFailures),
	}, nil
}

func maxFailuresOrDefault(n int) int {
	if n <= 0 {
		return 3
	}
	return n
}

func apiKeyFor(provider string) (string, error) {
	var envVar string
	switch provider {
	case "deepseek":
		envVar = "DEEPSEEK_API_KEY"
	case "openai":
		envVar = "OPENAI_API_KEY"
	case "openrouter":
		envVar = "OPENROUTER_API_KEY"
	default:
		return "", fmt.Errorf("unknown proxy provider %q", provider)
	}
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%s not set", envVar)
	}
	return key, nil
}

// Degraded reports whether this client has stopped calling out after
// MaxFailures consecutive transport/parse failures.
func (c *Client) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// Stats renders the consultation/error/degraded counters into one line.
func (c *Client) Stats() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("consultations=%d errors=%d degraded=%t", c.consultations, c.errors, c.degraded)
}

// Generate asks the backend for one completion. If the client is already
// degraded, it returns immediately with an error so callers fall back to
// cached defaults without paying transport latency.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	c.mu.Lock()
	if c.degraded {
		c.mu.Unlock()
		return "", fmt.Errorf("llm client degraded after %d consecutive failures", c.maxFailures)
	}
	c.mu.Unlock()

	c.mu.Lock()
	c.consultations++
	c.mu.Unlock()

	text, err := c.backend.generate(ctx, prompt, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.errors++
		c.consecutiveFails++
		if c.consecutiveFails >= c.maxFailures {
			c.degraded = true
			c.log.Warn().Int("consecutive_failures", c.consecutiveFails).Msg("llm channel degraded")
		}
		return "", err
	}
	c.consecutiveFails = 0
	c.degraded = false
	return text, nil
}

type localBackend struct {
	host       string
	httpClient *http.Client
}

func (b *localBackend) generate(ctx context.Context, prompt string, opts Options) (string, error) {
	reqBody := map[string]any{
		"model":  opts.Model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	body, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling local model at %s: %w", b.host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("local model returned status %d: %s", resp.StatusCode, string(data))
	}

	var decoded struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding local model response: %w", err)
	}
	if decoded.Response == "" {
		return "", fmt.Errorf("local model returned empty response")
	}
	return decoded.Response, nil
}

type proxyBackend struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func (b *proxyBackend) generate(ctx context.Context, prompt string, opts Options) (string, error) {
	reqBody := map[string]any{
		"model":           opts.Model,
		"messages":        []map[string]string{{"role": "user", "content": prompt}},
		"stream":          false,
		"response_format": map[string]string{"type": "json_object"},
	}
	if opts.Temperature > 0 {
		reqBody["temperature"] = opts.Temperature
	}
	body, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling proxy at %s: %w", b.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("proxy returned status %d: %s", resp.StatusCode, string(data))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding proxy response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("proxy returned no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}
