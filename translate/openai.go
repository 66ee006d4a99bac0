package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Arean82/jsontrans/langs"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// openAISystemPrompt instructs verbatim batch translation. The response
// contract (a bare JSON array, same length, same order) is what the count
// validation in parseBatch relies on.
const openAISystemPrompt = `You are a professional translator. You translate content fields extracted from JSON documents.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in {{targetLang}}, not word-for-word
- Preserve the original tone and intent
- Keep brand names and proper nouns unchanged
- Preserve punctuation patterns, quotes, and leading/trailing whitespace

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Do not add commentary, explanations, or markdown code blocks.
- Never merge, split, or reorder entries.`

// openAIBackend is the completion-based translation backend. It speaks the
// OpenAI chat/completions protocol, so any compatible endpoint works via
// Options.BaseURL.
type openAIBackend struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	log     *logrus.Logger
}

func newOpenAIBackend(apiKey string, opts Options) *openAIBackend {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIBackend{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  makeHTTPClient(opts.Proxy, opts.effectiveTimeout()),
		log:     opts.logger(),
	}
}

func (b *openAIBackend) Name() string { return EngineOpenAI }

// Verify lists models, the cheapest authenticated call the API offers.
func (b *openAIBackend) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("verifying openai credentials: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Backend: EngineOpenAI, Reason: fmt.Sprintf("key rejected (status %d)", resp.StatusCode)}
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai verification returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
}

func (b *openAIBackend) Translate(ctx context.Context, batch []string, sourceLang, targetLang string) ([]string, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	start := time.Now()
	out, err := b.translate(ctx, batch, sourceLang, targetLang)
	observeRequest(EngineOpenAI, time.Since(start), err, len(batch))
	return out, err
}

func (b *openAIBackend) translate(ctx context.Context, batch []string, sourceLang, targetLang string) ([]string, error) {
	body, err := buildChatRequest(b.model, b.systemPrompt(targetLang), userPrompt(batch, sourceLang, targetLang))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	b.log.WithFields(logrus.Fields{
		"backend": EngineOpenAI,
		"model":   b.model,
		"batch":   len(batch),
		"target":  targetLang,
	}).Debug("Sending translation request")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Backend: EngineOpenAI, Reason: fmt.Sprintf("key rejected (status %d)", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitedError{
			Backend:    EngineOpenAI,
			RetryAfter: parseRetryAfter(resp.Header, respBody),
			Detail:     truncate(string(respBody), 200),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 300))
	}

	text, err := extractChatContent(respBody)
	if err != nil {
		return nil, &MalformedResponseError{Backend: EngineOpenAI, Expected: len(batch), Detail: err.Error()}
	}
	return parseBatch(text, len(batch))
}

func (b *openAIBackend) systemPrompt(targetLang string) string {
	return strings.ReplaceAll(openAISystemPrompt, "{{targetLang}}", langs.Resolve(targetLang).Name)
}

// userPrompt numbers the entries and restates the count so the model keeps
// the array aligned with the input.
func userPrompt(batch []string, sourceLang, targetLang string) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "Translate these entries from %s to %s:\n\n", sourceLang, targetLang)
	for i, text := range batch {
		fmt.Fprintf(&msg, "%d. %s\n", i+1, escapeForPrompt(text))
	}
	fmt.Fprintf(&msg, "\nReturn a JSON array with exactly %d translated strings.", len(batch))
	return msg.String()
}

func buildChatRequest(model, systemPrompt, userPrompt string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
		Stream:      false,
	}
	return json.Marshal(req)
}

// extractChatContent pulls choices[0].message.content from a chat
// completion response, surfacing API-level errors first.
func extractChatContent(body []byte) (string, error) {
	var raw struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if raw.Error != nil {
		return "", fmt.Errorf("API error: %s", raw.Error.Message)
	}
	if len(raw.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return raw.Choices[0].Message.Content, nil
}

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseBatch parses the model's reply into exactly expected translations.
// Models wrap replies in markdown fences or prepend chatter often enough
// that we strip fences and isolate the outermost JSON array before
// unmarshalling. A count mismatch is a MalformedResponseError.
func parseBatch(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, &MalformedResponseError{
			Backend:  EngineOpenAI,
			Expected: expected,
			Detail:   fmt.Sprintf("not a JSON string array: %v (response: %s)", err, truncate(content, 200)),
		}
	}
	if len(translations) != expected {
		return nil, &MalformedResponseError{Backend: EngineOpenAI, Expected: expected, Got: len(translations)}
	}
	return translations, nil
}

// parseRetryAfter extracts a throttle delay hint: the Retry-After header
// when present, otherwise a RetryInfo detail in the body.
func parseRetryAfter(header http.Header, body []byte) time.Duration {
	if ra := header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.ParseFloat(ra, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		for _, detail := range errResp.Error.Details {
			if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
				d := strings.TrimSuffix(detail.RetryDelay, "s")
				if secs, err := strconv.ParseFloat(d, 64); err == nil {
					return time.Duration(secs * float64(time.Second))
				}
			}
		}
	}
	return 0
}

func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\\n")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
