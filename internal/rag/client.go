package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUnavailable means the AI service could not be reached or returned a
// response that is not JSON. Callers surface it as a bad-gateway condition
// instead of leaking the transport error.
var ErrUnavailable = errors.New("ai service unavailable")

// Config holds the external AI service endpoint configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a thin pass-through to the external RAG/AI service. It performs
// no retries and keeps no state beyond the HTTP client; availability of the
// service is entirely the collaborator's concern.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Chat forwards a chat request body verbatim and returns the upstream status
// and JSON body.
func (c *Client) Chat(ctx context.Context, body []byte) (int, json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.relay(req)
}

// Search forwards a case-law search and returns the upstream status and JSON
// body.
func (c *Client) Search(ctx context.Context, query string, limit int) (int, json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create search request: %w", err)
	}
	return c.relay(req)
}

// Document fetches the full text of a single case document by id.
func (c *Client) Document(ctx context.Context, docID string) (int, json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/document/"+url.PathEscape(docID), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create document request: %w", err)
	}
	return c.relay(req)
}

// Healthy reports whether the service answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) relay(req *http.Request) (int, json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if !json.Valid(body) {
		return 0, nil, fmt.Errorf("%w: non-JSON response", ErrUnavailable)
	}
	return resp.StatusCode, json.RawMessage(body), nil
}
