package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestOllamaGenerateMapsResponse(t *testing.T) {
	srv := newLocalServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Stream {
			t.Error("stream must be disabled")
		}
		resp := ollamaChatResponse{Done: true}
		resp.Message.Role = "assistant"
		resp.Message.Content = "68"
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 2, 10*time.Millisecond)
	resp, err := c.Generate(context.Background(), GenerateRequest{
		Model:    "llama3",
		Messages: []Message{{Role: "user", Content: "lowest moisture?"}},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Content() != "68" {
		t.Fatalf("content = %q, want 68", resp.Content())
	}
}

func TestOllamaModelNotFound(t *testing.T) {
	srv := newLocalServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'nope' not found"})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 10*time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{
		Model:    "nope",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	var nfErr *ModelNotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("err = %v, want ModelNotFoundError", err)
	}
}

func TestOllamaRequiresMessages(t *testing.T) {
	c := NewOllamaClient("http://127.0.0.1:1", time.Second, 1, time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error for empty messages")
	}
}
