package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jongan69/threadiverse/internal/model"
)

// HTTPPublisher implements Publisher against the social-protocol gateway's
// JSON endpoint. One POST per thread; the response carries the new thread's
// identifier.
type HTTPPublisher struct {
	client   *http.Client
	endpoint string
}

func NewHTTPPublisher(endpoint string) *HTTPPublisher {
	return &HTTPPublisher{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: endpoint,
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, payload Payload) (model.ThreadID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling publish payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error building publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error calling publish endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("publish endpoint returned status %d", resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error decoding publish response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("publish endpoint returned an empty thread id")
	}

	publishLogger.Info().Str("thread_id", result.ID).Msg("Thread published")
	return model.ThreadID(result.ID), nil
}
