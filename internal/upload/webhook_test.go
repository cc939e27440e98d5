package upload_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-Ruco/pressflow/internal/upload"
	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// chunkRecorder collects every chunk payload the fake webhook receives
// and tracks the maximum number of requests in flight at once.
type chunkRecorder struct {
	mu        sync.Mutex
	payloads  []upload.ChunkPayload
	inFlight  int
	maxSeen   int
	failFirst int // reject this many requests before succeeding
	failed    int
}

func (r *chunkRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.inFlight++
		if r.inFlight > r.maxSeen {
			r.maxSeen = r.inFlight
		}
		reject := r.failed < r.failFirst
		if reject {
			r.failed++
		}
		r.mu.Unlock()

		// Hold the request briefly so overlapping chunks are observable.
		time.Sleep(10 * time.Millisecond)

		var payload upload.ChunkPayload
		_ = json.NewDecoder(req.Body).Decode(&payload)

		r.mu.Lock()
		r.inFlight--
		if !reject {
			r.payloads = append(r.payloads, payload)
		}
		r.mu.Unlock()

		if reject {
			http.Error(w, "temporarily unavailable", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(upload.WebhookResponse{Success: true})
	}
}

func newClient(url string, rec *chunkRecorder) *upload.WebhookClient {
	return upload.NewWebhookClient(upload.WebhookConfig{
		URL:              url,
		Timeout:          5 * time.Second,
		ChunkSize:        1024,
		ChunkConcurrency: 3,
		ChunkRetries:     3,
		ChunkBackoff:     time.Millisecond,
	})
}

func TestSendFile_DeliversEveryChunk(t *testing.T) {
	rec := &chunkRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	data := bytes.Repeat([]byte("x"), 5*1024) // 5 chunks of 1KiB
	file := domain.FileDescriptor{ID: "f1", FileName: "fonte.pdf", MimeType: "application/pdf", FileSize: int64(len(data))}

	var progress []int
	client := newClient(srv.URL, rec)
	err := client.SendFile(context.Background(), "s1", file, data, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	require.Len(t, rec.payloads, 5)

	var indices []int
	for _, p := range rec.payloads {
		require.NotNil(t, p.ChunkIndex)
		require.NotNil(t, p.TotalChunks)
		assert.Equal(t, 5, *p.TotalChunks)
		assert.Equal(t, "file", p.Type)
		assert.Equal(t, "f1", p.FileID)
		assert.Equal(t, "s1", p.SessionID)
		assert.Equal(t, "session", p.AuthMethod)
		indices = append(indices, *p.ChunkIndex)
	}
	sort.Ints(indices)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, indices)

	// Real transfer progress ends at 100.
	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
}

func TestSendFile_ConcurrencyIsBounded(t *testing.T) {
	rec := &chunkRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	data := bytes.Repeat([]byte("x"), 10*1024) // 10 chunks
	file := domain.FileDescriptor{ID: "f1", FileName: "video.mp4", FileSize: int64(len(data))}

	client := newClient(srv.URL, rec)
	require.NoError(t, client.SendFile(context.Background(), "s1", file, data, nil))

	assert.LessOrEqual(t, rec.maxSeen, 3)
	assert.Len(t, rec.payloads, 10)
}

func TestSendFile_RetriesTransientFailures(t *testing.T) {
	rec := &chunkRecorder{failFirst: 2}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	data := bytes.Repeat([]byte("x"), 2*1024)
	file := domain.FileDescriptor{ID: "f1", FileName: "audio.mp3", FileSize: int64(len(data))}

	client := newClient(srv.URL, rec)
	require.NoError(t, client.SendFile(context.Background(), "s1", file, data, nil))
	assert.Len(t, rec.payloads, 2)
}

func TestSendFile_GivesUpAfterRetryBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	data := bytes.Repeat([]byte("x"), 512)
	file := domain.FileDescriptor{ID: "f1", FileName: "doc.txt", FileSize: int64(len(data))}

	client := newClient(srv.URL, nil)
	err := client.SendFile(context.Background(), "s1", file, data, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestSendFile_CancellationAbortsInFlight(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client
		// disconnect and cancel the request context.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case started <- struct{}{}:
		default:
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	data := bytes.Repeat([]byte("x"), 512)
	file := domain.FileDescriptor{ID: "f1", FileName: "doc.txt", FileSize: int64(len(data))}

	client := newClient(srv.URL, nil)
	err := client.SendFile(ctx, "s1", file, data, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmit_RequiresAuthenticatedUser(t *testing.T) {
	client := newClient("http://unused.invalid", nil)
	_, err := client.Submit(context.Background(), "s1", "", upload.Submission{})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestSubmit_RejectsInvalidFileURLs(t *testing.T) {
	client := newClient("http://unused.invalid", nil)
	_, err := client.Submit(context.Background(), "s1", "user-1", upload.Submission{
		Files: []domain.FileDescriptor{
			{ID: "f1", URL: "blob:abc123"},
			{ID: "f2", URL: "https://cdn.example.com/ok.pdf"},
			{ID: "f3", URL: "data:application/pdf;base64,xyz"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 file(s)")
}

func TestSubmit_TimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client
		// disconnect and cancel the request context.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := upload.NewWebhookClient(upload.WebhookConfig{
		URL:     srv.URL,
		Timeout: 50 * time.Millisecond,
	})
	_, err := client.Submit(context.Background(), "s1", "user-1", upload.Submission{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out after")
}

func TestSubmit_ToleratesNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Workflow was started"))
	}))
	defer srv.Close()

	client := newClient(srv.URL, nil)
	resp, err := client.Submit(context.Background(), "s1", "user-1", upload.Submission{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Workflow was started", resp.Message)
}
