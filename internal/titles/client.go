// Package titles obtains AI-suggested headlines for an in-progress
// article, tolerating the remote endpoint not yet having an answer.
package titles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// maxResponseSize bounds the endpoint response body.
const maxResponseSize = 1 * 1024 * 1024 // 1MB

// TitlesResponse is the endpoint's GET reply.
type TitlesResponse struct {
	Titulos   []string `json:"titulos"`
	ArticleID string   `json:"article_id,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// StoreResponse is the endpoint's POST reply.
type StoreResponse struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Titles  []string `json:"titles"`
}

// Client talks to the hosted title suggestion function. Auth is a
// static API key header; every request carries a cache-busting query
// parameter and a hard client timeout.
type Client struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a title endpoint client.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// SetHTTPClient overrides the underlying HTTP client (tests).
func (c *Client) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// Fetch GETs the current suggestions, passing the article ID when known.
func (c *Client) Fetch(ctx context.Context, articleID string) (*TitlesResponse, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid titles endpoint: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(time.Now().UnixNano(), 10)) // cache buster
	if articleID != "" {
		q.Set("article_id", articleID)
	}
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch titles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, fmt.Errorf("titles endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out TitlesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode titles: %w", err)
	}
	return &out, nil
}

// Store POSTs a new title set to the endpoint.
func (c *Client) Store(ctx context.Context, titles []string) (*StoreResponse, error) {
	body, err := json.Marshal(map[string][]string{"titulos": titles})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store titles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, fmt.Errorf("titles endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out StoreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode store response: %w", err)
	}
	return &out, nil
}

// Clear DELETEs the stored titles.
func (c *Client) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint, nil)
	if err != nil {
		return err
	}
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clear titles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("titles endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}
