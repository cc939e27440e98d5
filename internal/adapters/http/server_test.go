package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pfhttp "github.com/Dev-Ruco/pressflow/internal/adapters/http"
	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

type fakeEngine struct {
	states map[string]*domain.WorkflowState
	events chan domain.WorkflowState

	advanceErr error
	updateErr  error
	titles     []string

	sources        []domain.NewsSource
	transcriptions []domain.Transcription
	storeErr       error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		states: make(map[string]*domain.WorkflowState),
		events: make(chan domain.WorkflowState, 4),
	}
}

func (f *fakeEngine) StartSession(_ context.Context, sessionID, userID string) (*domain.WorkflowState, error) {
	s := domain.NewWorkflowState(userID)
	f.states[sessionID] = s
	return s, nil
}

func (f *fakeEngine) State(_ context.Context, sessionID string) (*domain.WorkflowState, error) {
	s, ok := f.states[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeEngine) Advance(_ context.Context, sessionID string) (domain.Step, error) {
	if f.advanceErr != nil {
		return "", f.advanceErr
	}
	s, ok := f.states[sessionID]
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	s.Step = s.Step.Next()
	return s.Step, nil
}

func (f *fakeEngine) Update(_ context.Context, sessionID string, patch domain.Patch) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	s, ok := f.states[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	patch.Apply(s)
	return nil
}

func (f *fakeEngine) AddFiles(_ context.Context, sessionID string, files []domain.FileDescriptor, _ map[string][]byte) error {
	s, ok := f.states[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Files = append(s.Files, files...)
	return nil
}

func (f *fakeEngine) Submit(_ context.Context, sessionID string) error {
	if _, ok := f.states[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (f *fakeEngine) Titles(_ context.Context, sessionID string) ([]string, error) {
	if _, ok := f.states[sessionID]; !ok {
		return nil, domain.ErrSessionNotFound
	}
	return f.titles, nil
}

func (f *fakeEngine) Watch(sessionID string) (<-chan domain.WorkflowState, func(), error) {
	if _, ok := f.states[sessionID]; !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	return f.events, func() {}, nil
}

func (f *fakeEngine) EndSession(_ context.Context, sessionID string) error {
	if _, ok := f.states[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(f.states, sessionID)
	return nil
}

func (f *fakeEngine) NewsSources(_ context.Context, userID string) ([]domain.NewsSource, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	var out []domain.NewsSource
	for _, src := range f.sources {
		if src.UserID == userID {
			out = append(out, src)
		}
	}
	return out, nil
}

func (f *fakeEngine) SaveNewsSource(_ context.Context, src *domain.NewsSource) (*domain.NewsSource, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	saved := *src
	if saved.ID == "" {
		saved.ID = "src-1"
	}
	f.sources = append(f.sources, saved)
	return &saved, nil
}

func (f *fakeEngine) Transcriptions(_ context.Context, userID string) ([]domain.Transcription, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	var out []domain.Transcription
	for _, tr := range f.transcriptions {
		if tr.UserID == userID {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (f *fakeEngine) CreateTranscription(_ context.Context, tr *domain.Transcription) (*domain.Transcription, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	created := *tr
	created.ID = "tr-1"
	created.Status = domain.TranscriptionPending
	f.transcriptions = append(f.transcriptions, created)
	return &created, nil
}

func TestStartSession(t *testing.T) {
	handler := pfhttp.NewHandler(newFakeEngine())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions",
		strings.NewReader(`{"sessionId":"s1","userId":"u1"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var state domain.WorkflowState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, domain.StepUpload, state.Step)
}

func TestStartSession_MissingFields(t *testing.T) {
	handler := pfhttp.NewHandler(newFakeEngine())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions",
		strings.NewReader(`{"sessionId":"s1"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetState_NotFound(t *testing.T) {
	handler := pfhttp.NewHandler(newFakeEngine())

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "session")
}

func TestAdvance_RejectionIs422(t *testing.T) {
	engine := newFakeEngine()
	_, err := engine.StartSession(context.Background(), "s1", "u1")
	require.NoError(t, err)
	engine.advanceErr = &domain.TransitionError{
		From:    domain.StepUpload,
		To:      domain.StepTypeSelection,
		Message: "Adicione conteúdo antes de avançar.",
	}

	handler := pfhttp.NewHandler(engine)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/advance", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Adicione conteúdo antes de avançar.", body["error"])
}

func TestAdvance_ReturnsNewStep(t *testing.T) {
	engine := newFakeEngine()
	_, err := engine.StartSession(context.Background(), "s1", "u1")
	require.NoError(t, err)

	handler := pfhttp.NewHandler(engine)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/advance", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(domain.StepTypeSelection), body["step"])
}

func TestUpdateState_PatchApplied(t *testing.T) {
	engine := newFakeEngine()
	_, err := engine.StartSession(context.Background(), "s1", "u1")
	require.NoError(t, err)

	handler := pfhttp.NewHandler(engine)
	req := httptest.NewRequest(http.MethodPatch, "/api/sessions/s1",
		strings.NewReader(`{"title":"Eleições autárquicas 2026"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var state domain.WorkflowState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "Eleições autárquicas 2026", state.Title)
}

func TestGetTitles(t *testing.T) {
	engine := newFakeEngine()
	_, err := engine.StartSession(context.Background(), "s1", "u1")
	require.NoError(t, err)
	engine.titles = []string{"Título A", "Título B"}

	handler := pfhttp.NewHandler(engine)
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/titles", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Título A", "Título B"}, body["titulos"])
}

func TestEndSession(t *testing.T) {
	engine := newFakeEngine()
	_, err := engine.StartSession(context.Background(), "s1", "u1")
	require.NoError(t, err)

	handler := pfhttp.NewHandler(engine)
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/s1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, engine.states)
}

func TestWatch_StreamsSnapshots(t *testing.T) {
	engine := newFakeEngine()
	_, err := engine.StartSession(context.Background(), "s1", "u1")
	require.NoError(t, err)

	srv := httptest.NewServer(pfhttp.NewHandler(engine))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/s1/watch", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	snap := *domain.NewWorkflowState("u1")
	snap.Step = domain.StepTitleSelection
	engine.events <- snap

	scanner := bufio.NewScanner(resp.Body)
	var payload string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: {") {
			payload = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.NotEmpty(t, payload)

	var got domain.WorkflowState
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	assert.Equal(t, domain.StepTitleSelection, got.Step)
}

func TestNewsSources_CreateAndList(t *testing.T) {
	engine := newFakeEngine()
	handler := pfhttp.NewHandler(engine)

	req := httptest.NewRequest(http.MethodPost, "/api/news-sources",
		strings.NewReader(`{"name":"Lusa","url":"https://lusa.pt/feed","kind":"rss","active":true,"user_id":"u1"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.NewsSource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/news-sources?userId=u1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var listed []domain.NewsSource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Lusa", listed[0].Name)
}

func TestNewsSources_RequiresUserID(t *testing.T) {
	handler := pfhttp.NewHandler(newFakeEngine())

	req := httptest.NewRequest(http.MethodGet, "/api/news-sources", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscriptions_CreateAndList(t *testing.T) {
	engine := newFakeEngine()
	handler := pfhttp.NewHandler(engine)

	req := httptest.NewRequest(http.MethodPost, "/api/transcriptions",
		strings.NewReader(`{"file_name":"entrevista.mp3","audio_url":"https://cdn/entrevista.mp3","user_id":"u1"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Transcription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.TranscriptionPending, created.Status)

	req = httptest.NewRequest(http.MethodGet, "/api/transcriptions?userId=u1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var listed []domain.Transcription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "entrevista.mp3", listed[0].FileName)
}

func TestNewsSources_UnsupportedStoreIs501(t *testing.T) {
	engine := newFakeEngine()
	engine.storeErr = domain.ErrUnsupportedStore
	handler := pfhttp.NewHandler(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/news-sources?userId=u1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHealthz(t *testing.T) {
	handler := pfhttp.NewHandler(newFakeEngine())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
