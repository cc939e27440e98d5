package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dev-Ruco/pressflow/internal/logging"
	"github.com/Dev-Ruco/pressflow/internal/metrics"
	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// maxResponseSize limits the webhook response body read into memory.
const maxResponseSize = 4 * 1024 * 1024 // 4MB

// ChunkPayload is the wire format of one chunked POST to the webhook.
type ChunkPayload struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // "text", "file" or "link"
	MimeType    string `json:"mimeType,omitempty"`
	Data        string `json:"data"`
	AuthMethod  string `json:"authMethod,omitempty"`
	ChunkIndex  *int   `json:"chunkIndex,omitempty"`
	TotalChunks *int   `json:"totalChunks,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	FileSize    int64  `json:"fileSize,omitempty"`
	FileID      string `json:"fileId,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
}

// Submission is the consolidated payload POSTed once every file has
// been delivered.
type Submission struct {
	Content     string                  `json:"content"`
	ArticleType *domain.ArticleType     `json:"articleType,omitempty"`
	Files       []domain.FileDescriptor `json:"files"`
	Links       []string                `json:"links"`
}

// WebhookResponse is the webhook's reply envelope.
type WebhookResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// WebhookError carries the HTTP status and body text of a failed call
// for diagnostics.
type WebhookError struct {
	Status int
	Body   string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook returned %d: %s", e.Status, e.Body)
}

// WebhookConfig bounds the client's retry and concurrency behavior.
type WebhookConfig struct {
	URL              string
	AuthMethod       string
	Timeout          time.Duration
	ChunkSize        int64
	ChunkConcurrency int
	ChunkRetries     int
	ChunkBackoff     time.Duration
}

// WebhookClient delivers chunks and consolidated submissions to the
// automation webhook. Every request takes the caller's context, so
// cancelling a submission aborts the requests actually in flight.
type WebhookClient struct {
	cfg        WebhookConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// WebhookOption configures a WebhookClient.
type WebhookOption func(*WebhookClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *WebhookClient) { w.httpClient = c }
}

// WithWebhookLogger sets the logger.
func WithWebhookLogger(logger *slog.Logger) WebhookOption {
	return func(w *WebhookClient) { w.logger = logger }
}

// NewWebhookClient creates a webhook client.
func NewWebhookClient(cfg WebhookConfig, opts ...WebhookOption) *WebhookClient {
	if cfg.ChunkConcurrency <= 0 {
		cfg.ChunkConcurrency = 3
	}
	if cfg.ChunkRetries <= 0 {
		cfg.ChunkRetries = 3
	}
	if cfg.ChunkBackoff <= 0 {
		cfg.ChunkBackoff = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.AuthMethod == "" {
		cfg.AuthMethod = "session"
	}
	w := &WebhookClient{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SendFile splits the file into chunks and delivers them in bounded
// batches: at most ChunkConcurrency chunks in flight, the next batch
// starting only after the previous one fully resolves. Each chunk gets
// ChunkRetries attempts with exponentially growing delays before the
// whole operation fails. onProgress, when set, receives the percentage
// of chunks delivered.
func (w *WebhookClient) SendFile(ctx context.Context, sessionID string, file domain.FileDescriptor, data []byte, onProgress func(int)) error {
	chunks, err := Split(file.ID, data, w.cfg.ChunkSize)
	if err != nil {
		return err
	}

	sent := 0
	for start := 0; start < len(chunks); start += w.cfg.ChunkConcurrency {
		end := start + w.cfg.ChunkConcurrency
		if end > len(chunks) {
			end = len(chunks)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, chunk := range chunks[start:end] {
			chunk := chunk
			g.Go(func() error {
				return w.sendChunk(gctx, sessionID, file, chunk)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("upload %s: %w", file.FileName, err)
		}

		sent = end
		if onProgress != nil {
			onProgress(sent * 100 / len(chunks))
		}
	}
	return nil
}

// sendChunk posts one chunk, retrying on failure with exponential backoff.
func (w *WebhookClient) sendChunk(ctx context.Context, sessionID string, file domain.FileDescriptor, chunk Chunk) error {
	idx := chunk.Index
	total := chunk.Total
	payload := ChunkPayload{
		ID:          uuid.NewString(),
		Type:        "file",
		MimeType:    file.MimeType,
		Data:        base64.StdEncoding.EncodeToString(chunk.Data),
		AuthMethod:  w.cfg.AuthMethod,
		ChunkIndex:  &idx,
		TotalChunks: &total,
		FileName:    file.FileName,
		FileSize:    file.FileSize,
		FileID:      chunk.FileID,
		SessionID:   sessionID,
	}

	var lastErr error
	delay := w.cfg.ChunkBackoff
	for attempt := 1; attempt <= w.cfg.ChunkRetries; attempt++ {
		if attempt > 1 {
			metrics.ChunkRetries.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if _, lastErr = w.post(ctx, sessionID, payload); lastErr == nil {
			metrics.ChunksSent.WithLabelValues("ok").Inc()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("chunk upload failed",
			"file", file.FileName,
			"chunk", chunk.Index,
			"attempt", attempt,
			"err", lastErr,
		)
	}
	metrics.ChunksSent.WithLabelValues("error").Inc()
	return fmt.Errorf("chunk %d/%d failed after %d attempts: %w", chunk.Index+1, total, w.cfg.ChunkRetries, lastErr)
}

// SendLink delivers a source link to the webhook.
func (w *WebhookClient) SendLink(ctx context.Context, sessionID, link string) error {
	_, err := w.post(ctx, sessionID, ChunkPayload{
		ID:         uuid.NewString(),
		Type:       "link",
		Data:       link,
		AuthMethod: w.cfg.AuthMethod,
		SessionID:  sessionID,
	})
	return err
}

// SendText delivers pasted source text to the webhook.
func (w *WebhookClient) SendText(ctx context.Context, sessionID, text string) error {
	_, err := w.post(ctx, sessionID, ChunkPayload{
		ID:         uuid.NewString(),
		Type:       "text",
		MimeType:   "text/plain",
		Data:       text,
		AuthMethod: w.cfg.AuthMethod,
		SessionID:  sessionID,
	})
	return err
}

// Submit posts the consolidated payload. It refuses to start when the
// session has no authenticated user or when any completed file carries
// a non-HTTP URL, reporting how many files are invalid.
func (w *WebhookClient) Submit(ctx context.Context, sessionID, userID string, sub Submission) (*WebhookResponse, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}

	invalid := 0
	for _, f := range sub.Files {
		if f.URL != "" && !strings.HasPrefix(f.URL, "http://") && !strings.HasPrefix(f.URL, "https://") {
			invalid++
		}
	}
	if invalid > 0 {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%d file(s) have invalid URLs; re-upload them before submitting", invalid)
	}

	started := time.Now()
	resp, err := w.postJSON(ctx, sessionID, sub)
	metrics.SubmissionDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || err == context.DeadlineExceeded {
			metrics.Submissions.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("submission timed out after %s", w.cfg.Timeout)
		}
		metrics.Submissions.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Submissions.WithLabelValues("ok").Inc()
	return resp, nil
}

func (w *WebhookClient) post(ctx context.Context, sessionID string, payload ChunkPayload) (*WebhookResponse, error) {
	return w.postJSON(ctx, sessionID, payload)
}

func (w *WebhookClient) postJSON(ctx context.Context, sessionID string, payload any) (*WebhookResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", sessionID)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &WebhookError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	out := &WebhookResponse{Success: true}
	if len(raw) > 0 {
		// Tolerate non-JSON bodies from loosely configured workflows.
		if err := json.Unmarshal(raw, out); err != nil {
			out.Success = true
			out.Message = strings.TrimSpace(string(raw))
		}
	}
	return out, nil
}
