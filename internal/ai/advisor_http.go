package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPAdvisor asks a remote advisory service (an LLM gateway or similar)
// for a suggestion. It is strictly fire-and-ask: the service sees a
// situation summary, never the Game, and its answer goes through the same
// validation as any other suggestion.
type HTTPAdvisor struct {
	url    string
	client *http.Client
}

// NewHTTPAdvisor creates an advisor against the given endpoint.
func NewHTTPAdvisor(url string) *HTTPAdvisor {
	return &HTTPAdvisor{
		url: url,
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

// Suggest POSTs the situation and decodes one suggestion.
func (h *HTTPAdvisor) Suggest(ctx context.Context, sit Situation) (*Suggestion, error) {
	body, err := json.Marshal(sit)
	if err != nil {
		return nil, fmt.Errorf("advisor: encode situation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("advisor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advisor: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisor: status %d", resp.StatusCode)
	}

	var sug Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&sug); err != nil {
		return nil, fmt.Errorf("advisor: decode suggestion: %w", err)
	}
	return &sug, nil
}
