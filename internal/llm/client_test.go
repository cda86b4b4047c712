package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/artyone/relaybot/internal/llm"
	"github.com/artyone/relaybot/internal/session"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionResponse(text string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "llama3-70b-8192",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": text,
				},
			},
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg llm.Config) *llm.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL + "/v1"

	client, err := llm.NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := llm.NewClient(llm.Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestClient_Complete(t *testing.T) {
	var captured capturedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionResponse("Привет"))
	}, llm.Config{Model: "llama3-70b-8192", Temperature: 0.1})

	turns := []session.Turn{
		{Role: session.RoleSystem, Content: "Always answer in Russian."},
		{Role: session.RoleUser, Content: "hello"},
	}

	reply, err := client.Complete(context.Background(), turns)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "Привет" {
		t.Errorf("reply = %q, want %q", reply, "Привет")
	}

	if captured.Model != "llama3-70b-8192" {
		t.Errorf("model = %q, want llama3-70b-8192", captured.Model)
	}
	if captured.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", captured.Temperature)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" {
		t.Errorf("first message role = %q, want system", captured.Messages[0].Role)
	}
	if captured.Messages[1].Role != "user" || captured.Messages[1].Content != "hello" {
		t.Errorf("unexpected user message: %+v", captured.Messages[1])
	}
}

func TestClient_CompleteServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	}, llm.Config{})

	_, err := client.Complete(context.Background(), []session.Turn{
		{Role: session.RoleUser, Content: "hi"},
	})
	if !errors.Is(err, llm.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestClient_CompleteTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}, llm.Config{Timeout: 50 * time.Millisecond})

	_, err := client.Complete(context.Background(), []session.Turn{
		{Role: session.RoleUser, Content: "hi"},
	})
	if !errors.Is(err, llm.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable on timeout, got %v", err)
	}
}

func TestClient_CompleteEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"choices": []any{},
		})
	}, llm.Config{})

	_, err := client.Complete(context.Background(), []session.Turn{
		{Role: session.RoleUser, Content: "hi"},
	})
	if !errors.Is(err, llm.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestClient_CompleteEmptyRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, llm.Config{})

	_, err := client.Complete(context.Background(), nil)
	if !errors.Is(err, llm.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}
