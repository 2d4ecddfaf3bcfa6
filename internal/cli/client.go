package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/nbaflow/pkg/telemetry/correlation"
)

const headerActor = "X-User"

// APIError is a non-2xx response from nbaflow.
type APIError struct {
	StatusCode int
	Type       string `json:"type"`
	Message    string `json:"message"`
	Errors     []struct {
		Field   string `json:"field"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("nbaflow returned %d %s: %s", e.StatusCode, e.Type, e.Message)
	for _, fe := range e.Errors {
		msg += fmt.Sprintf(" (%s: %s)", fe.Field, fe.Code)
	}
	return msg
}

// Client is a thin JSON client for the nbaflow HTTP API.
type Client struct {
	baseURL string
	actor   string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration, actor string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		actor:   strings.TrimSpace(actor),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) PublishEvent(ctx context.Context, event map[string]any, correlationID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/api/v1/internal/events/nba-calculation", nil, event, correlationID, &out)
	return out, err
}

func (c *Client) ListNBAs(ctx context.Context, query url.Values) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/api/v1/nba", query, nil, "", &out)
	return out, err
}

func (c *Client) RegisterAction(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	path := "/api/v1/nba/" + url.PathEscape(id) + "/actions"
	err := c.do(ctx, http.MethodPost, path, nil, body, "", &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, correlationID string, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if correlationID != "" {
		req.Header.Set(correlation.HeaderName, correlationID)
	}
	if c.actor != "" {
		req.Header.Set(headerActor, c.actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error APIError `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		apiErr := envelope.Error
		apiErr.StatusCode = resp.StatusCode
		if apiErr.Type == "" {
			apiErr.Type = http.StatusText(resp.StatusCode)
		}
		return &apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
