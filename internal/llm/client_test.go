package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/signalnine/arena/internal/llm"
	"github.com/signalnine/arena/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestLocalBackendGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, "qwen2.5-coder:7b", body["model"])
		require.Equal(t, false, body["stream"])
		json.NewEncoder(w).Encode(map[string]string{"response": `{"move": 0.9}`})
	}))
	defer srv.Close()

	client := llm.NewLocal(srv.URL, 3, logging.Nop())
	text, err := client.Generate(context.Background(), "classify this unit", llm.Options{Model: "qwen2.5-coder:7b"})
	require.NoError(t, err)
	require.Contains(t, text, "move")
}

func TestClientDegradesAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := llm.NewLocal(srv.URL, 2, logging.Nop())
	_, err := client.Generate(context.Background(), "p", llm.Options{Model: "m"})
	require.Error(t, err)
	require.False(t, client.Degraded())

	_, err = client.Generate(context.Background(), "p", llm.Options{Model: "m"})
	require.Error(t, err)
	require.True(t, client.Degraded())

	_, err = client.Generate(context.Background(), "p", llm.Options{Model: "m"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "degraded")
}

func TestClientRecoversOnSuccessAfterFailure(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "{}"})
	}))
	defer srv.Close()

	client := llm.NewLocal(srv.URL, 3, logging.Nop())
	_, _ = client.Generate(context.Background(), "p", llm.Options{Model: "m"})
	fail = false
	_, err := client.Generate(context.Background(), "p", llm.Options{Model: "m"})
	require.NoError(t, err)
	require.False(t, client.Degraded())
}

func TestNewProxyRequiresAPIKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	_, err := llm.NewProxy("http://example.com", "deepseek", 3, logging.Nop())
	require.Error(t, err)
}

func TestProxyBackendGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"goal": "expand-economy"}`}},
			},
		})
	}))
	defer srv.Close()

	t.Setenv("DEEPSEEK_API_KEY", "test-key")
	client, err := llm.NewProxy(srv.URL, "deepseek", 3, logging.Nop())
	require.NoError(t, err)
	text, err := client.Generate(context.Background(), "what is the strategic goal?", llm.Options{Model: "deepseek-chat"})
	require.NoError(t, err)
	require.Contains(t, text, "expand-economy")
}
