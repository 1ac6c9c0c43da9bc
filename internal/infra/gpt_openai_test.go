package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vovarama1992/voicepost/internal/ports"
)

// chatRequest is the subset of the wire request the tests inspect.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func newChatServer(t *testing.T, status int, body string, inspect func(r *http.Request, req chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if inspect != nil {
			inspect(r, req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func TestChatClient_Rewrite(t *testing.T) {
	t.Run("returns first choice", func(t *testing.T) {
		srv := newChatServer(t, http.StatusOK, completion("  polished post \n"), func(r *http.Request, req chatRequest) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
				t.Errorf("Authorization = %q", got)
			}
			if req.Model != "gpt-4o" {
				t.Errorf("model = %q", req.Model)
			}
			if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
				t.Errorf("unexpected messages: %+v", req.Messages)
			}
			if req.ResponseFormat != nil {
				t.Error("free-text rewrite must not request json mode")
			}
		})
		c := NewChatClient(ChatConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4o", Timeout: 5 * time.Second})

		got, err := c.Rewrite(context.Background(), "system", "user text")
		if err != nil {
			t.Fatalf("Rewrite() error = %v", err)
		}
		if got != "polished post" {
			t.Errorf("Rewrite() = %q", got)
		}
	})

	t.Run("provider error carries status and type", func(t *testing.T) {
		srv := newChatServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`, nil)
		c := NewChatClient(ChatConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})

		_, err := c.Rewrite(context.Background(), "s", "u")
		var pe *ports.ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ProviderError, got %v", err)
		}
		if pe.StatusCode != http.StatusTooManyRequests || pe.Type != "rate_limit_exceeded" || pe.Message != "slow down" {
			t.Errorf("unexpected provider error: %+v", pe)
		}
		if !errors.Is(err, ports.ErrProvider) {
			t.Error("ProviderError does not unwrap to ErrProvider")
		}
	})

	t.Run("non json error body", func(t *testing.T) {
		srv := newChatServer(t, http.StatusBadGateway, "", nil)
		c := NewChatClient(ChatConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})

		_, err := c.Rewrite(context.Background(), "s", "u")
		var pe *ports.ProviderError
		if !errors.As(err, &pe) || pe.StatusCode != http.StatusBadGateway || pe.Message != "Bad Gateway" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("expired context is not a provider fault", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		t.Cleanup(srv.Close)
		c := NewChatClient(ChatConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: 5 * time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		_, err := c.Rewrite(ctx, "s", "u")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want deadline exceeded", err)
		}
		if errors.Is(err, ports.ErrProvider) {
			t.Error("deadline reported as provider error")
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		srv := newChatServer(t, http.StatusOK, `{"choices":[]}`, nil)
		c := NewChatClient(ChatConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})

		if _, err := c.Rewrite(context.Background(), "s", "u"); !errors.Is(err, ports.ErrProvider) {
			t.Errorf("expected provider error, got %v", err)
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		c := NewChatClient(ChatConfig{BaseURL: "http://127.0.0.1:0", Model: "m"})
		if _, err := c.Rewrite(context.Background(), "s", "u"); !errors.Is(err, ports.ErrProvider) {
			t.Errorf("expected provider error, got %v", err)
		}
	})

	t.Run("rate limiter respects context", func(t *testing.T) {
		var calls atomic.Int32
		srv := newChatServer(t, http.StatusOK, completion("ok"), func(*http.Request, chatRequest) { calls.Add(1) })
		c := NewChatClient(ChatConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", RateLimit: 0.001})

		if _, err := c.Rewrite(context.Background(), "s", "u"); err != nil {
			t.Fatalf("first call: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if _, err := c.Rewrite(ctx, "s", "u"); err == nil {
			t.Fatal("second call should be throttled past the deadline")
		}
		if calls.Load() != 1 {
			t.Errorf("server calls = %d, want 1", calls.Load())
		}
	})
}

func TestChatClient_RewriteStructured(t *testing.T) {
	t.Run("valid json", func(t *testing.T) {
		content := `{"optimizedContent":"Big news","hashtags":["#ai","#voice"],"tone":"upbeat","targetAudience":"founders"}`
		srv := newChatServer(t, http.StatusOK, completion(content), func(_ *http.Request, req chatRequest) {
			if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
				t.Errorf("response_format = %+v", req.ResponseFormat)
			}
		})
		c := NewChatClient(ChatConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})

		post, err := c.RewriteStructured(context.Background(), "s", "u")
		if err != nil {
			t.Fatalf("RewriteStructured() error = %v", err)
		}
		if post.OptimizedContent != "Big news" || len(post.Hashtags) != 2 || post.Tone != "upbeat" || post.TargetAudience != "founders" {
			t.Errorf("unexpected post: %+v", post)
		}
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		srv := newChatServer(t, http.StatusOK, completion("Sure! Here is your post: Big news"), nil)
		c := NewChatClient(ChatConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})

		_, err := c.RewriteStructured(context.Background(), "s", "u")
		if !errors.Is(err, ports.ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})
}

func TestParseStructuredPost(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", `{"optimizedContent":"x","hashtags":[],"tone":"t","targetAudience":"a"}`, false},
		{"fenced", "```json\n{\"optimizedContent\":\"x\",\"hashtags\":[\"#a\"],\"tone\":\"t\",\"targetAudience\":\"a\"}\n```", false},
		{"missing hashtags", `{"optimizedContent":"x","tone":"t","targetAudience":"a"}`, true},
		{"null hashtags", `{"optimizedContent":"x","hashtags":null,"tone":"t","targetAudience":"a"}`, true},
		{"missing tone", `{"optimizedContent":"x","hashtags":[],"targetAudience":"a"}`, true},
		{"missing target audience", `{"optimizedContent":"x","hashtags":[],"tone":"t"}`, true},
		{"content only", `{"optimizedContent":"x"}`, true},
		{"missing content", `{"hashtags":[],"tone":"t","targetAudience":"a"}`, true},
		{"empty content", `{"optimizedContent":"","hashtags":[],"tone":"t","targetAudience":"a"}`, true},
		{"unknown field", `{"optimizedContent":"x","hashtags":[],"tone":"t","targetAudience":"a","mood":"happy"}`, true},
		{"wrong type", `{"optimizedContent":"x","hashtags":"#a","tone":"t","targetAudience":"a"}`, true},
		{"trailing text", `{"optimizedContent":"x","hashtags":[],"tone":"t","targetAudience":"a"} and more`, true},
		{"two objects", `{"optimizedContent":"x","hashtags":[],"tone":"t","targetAudience":"a"}{}`, true},
		{"prose", "here you go", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, err := ParseStructuredPost(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStructuredPost() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ports.ErrMalformedResponse) {
				t.Errorf("error %v is not ErrMalformedResponse", err)
			}
			if err == nil && (post.OptimizedContent != "x" || post.Tone != "t" || post.TargetAudience != "a" || post.Hashtags == nil) {
				t.Errorf("unexpected post: %+v", post)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize("ok\xffok"); got != "okok" {
		t.Errorf("sanitize() = %q", got)
	}
}
