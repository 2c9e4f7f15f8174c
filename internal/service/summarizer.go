package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Summarizer is the narrow capability the note handlers consume to
// derive a summary for a note body. The call is made, with a bounded
// timeout owned by the caller, before any store transaction opens, so
// a slow or failing upstream never holds a transaction.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// NoopSummarizer is used when no summarization endpoint is configured.
// Notes are then stored without a summary.
type NoopSummarizer struct{}

func (NoopSummarizer) Summarize(context.Context, string) (string, error) { return "", nil }

// HTTPSummarizer calls a Gemini-style generateContent endpoint over
// HTTP. The request honors the deadline on ctx.
type HTTPSummarizer struct {
	URL    string
	APIKey string
	Client *http.Client
}

func NewHTTPSummarizer(url, apiKey string) *HTTPSummarizer {
	return &HTTPSummarizer{URL: url, APIKey: apiKey, Client: &http.Client{}}
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// Summarize posts the note text to the configured endpoint and returns
// the first candidate's text. Upstream failures come back as plain
// errors for the handler to map; a ctx deadline surfaces through the
// HTTP client as a context error.
func (s *HTTPSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	prompt := "Summarize the following note in one or two sentences:\n\n" + text
	body, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("x-goog-api-key", s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for a readable error message.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("summarizer: upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summarizer: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("summarizer: empty response")
	}
	return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
}
