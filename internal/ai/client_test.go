package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type localServer struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newLocalServer(t *testing.T, handler http.Handler) *localServer {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &localServer{URL: "http://" + ln.Addr().String(), srv: srv, ln: ln}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *localServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func sequenceServer(t *testing.T, statuses []int, headers []http.Header, bodyOK any) *localServer {
	t.Helper()
	var idx int32
	return newLocalServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&idx, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		st := statuses[i]
		if headers != nil && i < len(headers) && headers[i] != nil {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		w.WriteHeader(st)
		if st >= 200 && st < 300 {
			_ = json.NewEncoder(w).Encode(bodyOK)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "nope"}})
	}))
}

func okBody(content string) GenerateResponse {
	return GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: content}}}}
}

func TestGenerateRetriesOn429(t *testing.T) {
	srv := sequenceServer(t, []int{429, 200}, []http.Header{{"Retry-After": {"0"}}, {}}, okBody("ok"))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Content() != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGenerateRetriesOn500(t *testing.T) {
	srv := sequenceServer(t, []int{500, 200}, nil, okBody("ok"))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Content() != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGenerateAuthErrorNotRetried(t *testing.T) {
	var calls int32
	srv := newLocalServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad key"}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthError", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d, want 1 (auth errors are terminal)", n)
	}
}

func TestGenerateRateLimitErrorAfterExhaustion(t *testing.T) {
	srv := sequenceServer(t, []int{429, 429, 429}, nil, okBody("never"))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 2, 5*time.Millisecond, 20*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("err = %v, want RateLimitError", err)
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	c := NewClient("", time.Second, 1, time.Millisecond, time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestGenerateRequiresModel(t *testing.T) {
	c := NewClient("k", time.Second, 1, time.Millisecond, time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{})
	if err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestGenerateBadRequestClassified(t *testing.T) {
	srv := sequenceServer(t, []int{400}, nil, okBody(""))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var brErr *BadRequestError
	if !errors.As(err, &brErr) {
		t.Fatalf("err = %v, want BadRequestError", err)
	}
}
