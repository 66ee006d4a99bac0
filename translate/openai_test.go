package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func chatResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func testBackend(t *testing.T, handler http.HandlerFunc) *openAIBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newOpenAIBackend("sk-test", Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestOpenAITranslate(t *testing.T) {
	var gotBody []byte
	b := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		gotBody = make([]byte, r.ContentLength)
		r.Body.Read(gotBody)
		fmt.Fprint(w, chatResponse(`["Bonjour", "Monde"]`))
	})

	out, err := b.Translate(context.Background(), []string{"Hello", "World"}, "en", "fr")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(out) != 2 || out[0] != "Bonjour" || out[1] != "Monde" {
		t.Errorf("Translate = %v", out)
	}

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req.Model != defaultOpenAIModel {
		t.Errorf("model = %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", req.Messages)
	}
	// Target language resolves to its display name in the prompt.
	if !strings.Contains(req.Messages[0].Content, "Français") {
		t.Errorf("system prompt missing target language:\n%s", req.Messages[0].Content)
	}
	if !strings.Contains(req.Messages[1].Content, "exactly 2 translated strings") {
		t.Errorf("user prompt missing count:\n%s", req.Messages[1].Content)
	}
}

func TestOpenAITranslateEmptyBatch(t *testing.T) {
	b := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty batch reached the API")
	})
	out, err := b.Translate(context.Background(), nil, "en", "fr")
	if err != nil || out != nil {
		t.Errorf("empty batch = %v, %v", out, err)
	}
}

func TestOpenAITranslateAuthError(t *testing.T) {
	b := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := b.Translate(context.Background(), []string{"x"}, "en", "fr")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
	if authErr.Backend != EngineOpenAI {
		t.Errorf("Backend = %q", authErr.Backend)
	}
}

func TestOpenAITranslateRateLimited(t *testing.T) {
	b := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := b.Translate(context.Background(), []string{"x"}, "en", "fr")
	var rateErr *RateLimitedError
	if !errors.As(err, &rateErr) {
		t.Fatalf("err = %v, want *RateLimitedError", err)
	}
	if rateErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %s, want 7s", rateErr.RetryAfter)
	}
}

func TestOpenAITranslateCountMismatch(t *testing.T) {
	b := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse(`["only one"]`))
	})

	_, err := b.Translate(context.Background(), []string{"a", "b"}, "en", "fr")
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want *MalformedResponseError", err)
	}
	if malformed.Expected != 2 || malformed.Got != 1 {
		t.Errorf("Expected/Got = %d/%d", malformed.Expected, malformed.Got)
	}
}

func TestOpenAIVerify(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		b := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/models" {
				t.Errorf("path = %q", r.URL.Path)
			}
			fmt.Fprint(w, `{"data": []}`)
		})
		if err := b.Verify(context.Background()); err != nil {
			t.Errorf("Verify failed: %v", err)
		}
	})

	t.Run("bad key", func(t *testing.T) {
		b := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		var authErr *AuthError
		if err := b.Verify(context.Background()); !errors.As(err, &authErr) {
			t.Errorf("Verify = %v, want *AuthError", err)
		}
	})
}

func TestParseBatch(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		expected int
		want     []string
		wantErr  bool
	}{
		{"plain array", `["a", "b"]`, 2, []string{"a", "b"}, false},
		{"fenced", "```json\n[\"a\"]\n```", 1, []string{"a"}, false},
		{"fence no lang", "```\n[\"a\"]\n```", 1, []string{"a"}, false},
		{"leading chatter", `Here you go: ["a", "b"]`, 2, []string{"a", "b"}, false},
		{"count mismatch", `["a"]`, 3, nil, true},
		{"not an array", `{"a": 1}`, 1, nil, true},
		{"garbage", `sorry, I can't`, 1, nil, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := parseBatch(c.content, c.expected)
			if c.wantErr {
				var malformed *MalformedResponseError
				if !errors.As(err, &malformed) {
					t.Fatalf("err = %v, want *MalformedResponseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseBatch failed: %v", err)
			}
			if len(got) != len(c.want) {
				t.Fatalf("got %v, want %v", got, c.want)
			}
			for i := range c.want {
				if got[i] != c.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Run("header", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", "2.5")
		if got := parseRetryAfter(h, nil); got != 2500*time.Millisecond {
			t.Errorf("parseRetryAfter = %s", got)
		}
	})

	t.Run("retry info body", func(t *testing.T) {
		body := []byte(`{"error": {"details": [{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "30s"}]}}`)
		if got := parseRetryAfter(http.Header{}, body); got != 30*time.Second {
			t.Errorf("parseRetryAfter = %s", got)
		}
	})

	t.Run("no hint", func(t *testing.T) {
		if got := parseRetryAfter(http.Header{}, []byte(`{}`)); got != 0 {
			t.Errorf("parseRetryAfter = %s, want 0", got)
		}
	})
}

func TestEscapeForPrompt(t *testing.T) {
	if got := escapeForPrompt("a\r\nb\nc"); got != `a\nb\nc` {
		t.Errorf("escapeForPrompt = %q", got)
	}
}
