package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newTestServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-test" {
			http.Error(w, "bad model", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-1",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	})
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// returned out of order on purpose
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *OpenAIClient {
	return NewOpenAIClient("test-key", srv.URL+"/v1", "gpt-test", "embed-test", 50, 0, 1, zap.NewNop())
}

func TestScore(t *testing.T) {
	srv := newTestServer(t, `{"phishing_probability": 0.82}`)
	c := newTestClient(srv)

	p, err := c.Score(context.Background(), "Verify your account now")
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if p != 0.82 {
		t.Errorf("p = %v, want 0.82", p)
	}
	if c.Name() != "openai:gpt-test" {
		t.Errorf("Name = %q", c.Name())
	}
}

func TestScoreRejectsBadReplies(t *testing.T) {
	for _, reply := range []string{`{"phishing_probability": 3}`, `{"verdict": "phishing"}`, `no json here`} {
		srv := newTestServer(t, reply)
		if _, err := newTestClient(srv).Score(context.Background(), "text"); err == nil {
			t.Errorf("reply %q: expected error", reply)
		}
	}
}

func TestEmbedKeepsInputOrder(t *testing.T) {
	srv := newTestServer(t, "")
	got, err := newTestClient(srv).Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if got[0][0] != 1 || got[1][1] != 1 {
		t.Errorf("embeddings out of order: %v", got)
	}
}
