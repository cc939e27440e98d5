// Package rest implements the row store over PostgREST conventions, as
// exposed by hosted backends like Supabase: one resource per table,
// filters in query parameters, apikey plus bearer auth headers.
package rest

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

	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// maxResponseSize bounds row-store response bodies.
const maxResponseSize = 8 * 1024 * 1024 // 8MB

// Store talks to the hosted row store. It implements ports.ArticleStore
// and carries the news-source and transcription tables from the same
// backend.
type Store struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) StoreOption {
	return func(s *Store) { s.httpClient = hc }
}

// New creates a row-store client. baseURL is the REST root, e.g.
// https://project.supabase.co/rest/v1.
func New(baseURL, apiKey string, timeout time.Duration, opts ...StoreOption) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert creates a new article row and returns it with the assigned ID.
func (s *Store) Insert(ctx context.Context, a *domain.Article) (*domain.Article, error) {
	var rows []domain.Article
	if err := s.do(ctx, http.MethodPost, "articles", nil, a, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert article: empty representation returned")
	}
	return &rows[0], nil
}

// Update patches an existing article row in place.
func (s *Store) Update(ctx context.Context, id string, a *domain.Article) error {
	var rows []domain.Article
	filters := url.Values{"id": []string{"eq." + id}}
	if err := s.do(ctx, http.MethodPatch, "articles", filters, a, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

// Get fetches an article row scoped to its owner.
func (s *Store) Get(ctx context.Context, id, userID string) (*domain.Article, error) {
	var rows []domain.Article
	filters := url.Values{
		"id":      []string{"eq." + id},
		"user_id": []string{"eq." + userID},
	}
	if err := s.do(ctx, http.MethodGet, "articles", filters, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrArticleNotFound
	}
	return &rows[0], nil
}

// ListByUser returns the user's article rows.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.Article, error) {
	var rows []domain.Article
	filters := url.Values{"user_id": []string{"eq." + userID}}
	if err := s.do(ctx, http.MethodGet, "articles", filters, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes an article row scoped to its owner.
func (s *Store) Delete(ctx context.Context, id, userID string) error {
	var rows []domain.Article
	filters := url.Values{
		"id":      []string{"eq." + id},
		"user_id": []string{"eq." + userID},
	}
	if err := s.do(ctx, http.MethodDelete, "articles", filters, nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

// ListNewsSources returns the user's configured feeds.
func (s *Store) ListNewsSources(ctx context.Context, userID string) ([]domain.NewsSource, error) {
	var rows []domain.NewsSource
	filters := url.Values{"user_id": []string{"eq." + userID}}
	if err := s.do(ctx, http.MethodGet, "news_sources", filters, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveNewsSource inserts or updates a feed depending on the ID.
func (s *Store) SaveNewsSource(ctx context.Context, src *domain.NewsSource) (*domain.NewsSource, error) {
	var rows []domain.NewsSource
	if src.ID == "" {
		if err := s.do(ctx, http.MethodPost, "news_sources", nil, src, &rows); err != nil {
			return nil, err
		}
	} else {
		filters := url.Values{"id": []string{"eq." + src.ID}}
		if err := s.do(ctx, http.MethodPatch, "news_sources", filters, src, &rows); err != nil {
			return nil, err
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("save news source: empty representation returned")
	}
	return &rows[0], nil
}

// InsertTranscription creates a transcription job row.
func (s *Store) InsertTranscription(ctx context.Context, tr *domain.Transcription) (*domain.Transcription, error) {
	var rows []domain.Transcription
	if err := s.do(ctx, http.MethodPost, "transcriptions", nil, tr, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert transcription: empty representation returned")
	}
	return &rows[0], nil
}

// ListTranscriptions returns the user's transcription jobs.
func (s *Store) ListTranscriptions(ctx context.Context, userID string) ([]domain.Transcription, error) {
	var rows []domain.Transcription
	filters := url.Values{"user_id": []string{"eq." + userID}}
	if err := s.do(ctx, http.MethodGet, "transcriptions", filters, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// do issues one REST call. Writes request Prefer: return=representation
// so mutations answer with the affected rows, which is how missing rows
// are detected.
func (s *Store) do(ctx context.Context, method, table string, filters url.Values, body, out any) error {
	endpoint := s.baseURL + "/" + table
	if len(filters) > 0 {
		endpoint += "?" + filters.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s row: %w", table, err)
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read %s response: %w", table, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("row store returned %d for %s %s: %s", resp.StatusCode, method, table, strings.TrimSpace(string(raw)))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s response: %w", table, err)
		}
	}
	return nil
}
