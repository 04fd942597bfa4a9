package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/callable"
	"github.com/dmitrijs2005/pocketbank/internal/common"
)

// Client is a callable.Transport over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ callable.Transport = (*Client)(nil)

// NewClient calls the gateway at baseURL, e.g. "http://localhost:8080".
// A nil hc gets a client with a 10s timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) Call(ctx context.Context, procedure string, data any, token string) (callable.Envelope, error) {
	if data == nil {
		data = struct{}{}
	}
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/callable/"+procedure, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http call %s: %w", procedure, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", callable.ErrUnknownProcedure, procedure)
	case http.StatusTooManyRequests:
		return nil, callable.ErrRateLimited
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("http call %s: status %d: %w", procedure, resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if err := out.Result.Err(); err != nil {
			return nil, err
		}
		return nil, common.ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK || out.Result == nil {
		return nil, fmt.Errorf("http call %s: unexpected status %d", procedure, resp.StatusCode)
	}
	return out.Result, nil
}
