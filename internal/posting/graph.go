package posting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/postpilothq/postpilot/internal/domain"
)

const (
	defaultGraphBaseURL = "https://graph.facebook.com/v23.0"
	requestTimeout      = 10 * time.Second
	maxResponseBytes    = 1 << 20
)

// GraphClient calls the Meta Graph API. Parameters travel as query
// values on POST, matching the API's conventions.
type GraphClient struct {
	baseURL string
	client  *http.Client
}

// NewGraphClient builds a client against baseURL; empty means the
// public Graph API.
func NewGraphClient(baseURL string) *GraphClient {
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}
	return &GraphClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// graphEnvelope mirrors the API's error payload.
type graphEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Post issues one Graph call and decodes the JSON reply into out.
// Network failures, HTTP 429 and 5xx classify transient; other error
// statuses are permanent.
func (g *GraphClient) Post(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := g.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return domain.Permanent(fmt.Errorf("posting.GraphClient.Post: %w", err))
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Transient(fmt.Errorf("posting.GraphClient.Post: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Transient(fmt.Errorf("posting.GraphClient.Post: read body: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := fmt.Errorf("posting: graph api %s: status %d: %s", path, resp.StatusCode, graphErrorMessage(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return domain.Transient(apiErr)
		}
		return domain.Permanent(apiErr)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return domain.Permanent(fmt.Errorf("posting: decode graph response: %w", err))
		}
	}
	return nil
}

// graphErrorMessage pulls the human-readable message out of an error
// body, falling back to the raw payload.
func graphErrorMessage(body []byte) string {
	var env graphEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return msg
}
