package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ProxyServer is an in-process HTTP server that speaks the local /api/generate
// contract on one side and calls a hosted, OpenAI-compatible provider on the
// other. It lets an agent configured with MODEL_HOST point at a hosted model
// without knowing about provider-specific request shapes.
//
// An earlier design shelled out to an external `litellm` binary for this;
// litellm is not a Go dependency this module can import, so the proxy is
// implemented natively over net/http instead, keeping the same
// FindFreePort/Start/Stop/secrets-env-file lifecycle shape.
type ProxyServer struct {
	Port     int
	upstream *proxyBackend
	srv      *http.Server
	log      zerolog.Logger
}

// FindFreePort asks the OS for an ephemeral port.
func FindFreePort() (int, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port, nil
}

// StartProxyServer launches the proxy listening on a free local port.
func StartProxyServer(provider, baseURL string, log zerolog.Logger) (*ProxyServer, error) {
	key, err := apiKeyFor(provider)
	if err != nil {
		return nil, err
	}
	port, err := FindFreePort()
	if err != nil {
		return nil, err
	}

	p := &ProxyServer{
		Port: port,
		upstream: &proxyBackend{
			baseURL:    baseURL,
			apiKey:     key,
			httpClient: newHTTPClient(),
		},
		log: log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", p.handleGenerate)
	p.srv = &http.Server{Addr: fmt.Sprintf("localhost:%d", port), Handler: mux}

	ln, err := net.Listen("tcp", p.srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("binding proxy port: %w", err)
	}
	go func() {
		if err := p.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			p.log.Error().Err(err).Msg("proxy server stopped unexpectedly")
		}
	}()
	return p, nil
}

// URL is the base address agents should use as MODEL_HOST.
func (p *ProxyServer) URL() string {
	return fmt.Sprintf("http://localhost:%d", p.Port)
}

// Stop shuts the proxy down gracefully.
func (p *ProxyServer) Stop(ctx context.Context) error {
	if p.srv == nil {
		return nil
	}
	return p.srv.Shutdown(ctx)
}

func (p *ProxyServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	text, err := p.upstream.generate(r.Context(), req.Prompt, Options{Model: req.Model})
	if err != nil {
		p.log.Warn().Err(err).Msg("upstream proxy call failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"response": text})
}

// ParseSecretsEnvFile reads a dotenv-style file (KEY=value per line,
// optional "export " prefix, optional quoting) into a slice of "KEY=value"
// strings suitable for appending to an exec.Cmd's Env.
func ParseSecretsEnvFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		s = strings.TrimPrefix(s, "export ")
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			continue
		}
		key := s[:eq]
		val := stripQuotes(s[eq+1:])
		out = append(out, key+"="+val)
	}
	return out, nil
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
