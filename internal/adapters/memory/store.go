// Package memory provides in-memory adapter implementations used by
// tests and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// StateStore implements ports.StateStore with a mutex-guarded map.
type StateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WorkflowState
}

// NewStateStore creates an empty in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{data: make(map[string]*domain.WorkflowState)}
}

// Save stores a deep-enough copy to simulate serialization.
func (s *StateStore) Save(ctx context.Context, sessionID string, state *domain.WorkflowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = state.Clone()
	return nil
}

// Load returns a copy of the stored state.
func (s *StateStore) Load(ctx context.Context, sessionID string) (*domain.WorkflowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Clone(), nil
}

// Delete removes the session.
func (s *StateStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns session IDs in deterministic order.
func (s *StateStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ArticleStore implements ports.ArticleStore in memory with sequential IDs.
type ArticleStore struct {
	mu             sync.RWMutex
	rows           map[string]*domain.Article
	sources        map[string]*domain.NewsSource
	transcriptions map[string]*domain.Transcription
	seq            atomic.Int64

	// InsertCalls and UpdateCalls let tests assert the create-once,
	// update-thereafter persistence policy.
	InsertCalls atomic.Int64
	UpdateCalls atomic.Int64
}

// NewArticleStore creates an empty in-memory article store.
func NewArticleStore() *ArticleStore {
	return &ArticleStore{
		rows:           make(map[string]*domain.Article),
		sources:        make(map[string]*domain.NewsSource),
		transcriptions: make(map[string]*domain.Transcription),
	}
}

// Insert assigns an ID and stores the row.
func (s *ArticleStore) Insert(ctx context.Context, a *domain.Article) (*domain.Article, error) {
	s.InsertCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *a
	row.ID = fmt.Sprintf("art-%d", s.seq.Add(1))
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	s.rows[row.ID] = &row

	out := row
	return &out, nil
}

// Update patches an existing row in place.
func (s *ArticleStore) Update(ctx context.Context, id string, a *domain.Article) error {
	s.UpdateCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rows[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	row := *a
	row.ID = id
	row.CreatedAt = existing.CreatedAt
	row.UpdatedAt = time.Now().UTC()
	s.rows[id] = &row
	return nil
}

// Get fetches a row scoped to its owner.
func (s *ArticleStore) Get(ctx context.Context, id, userID string) (*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok || row.UserID != userID {
		return nil, domain.ErrArticleNotFound
	}
	out := *row
	return &out, nil
}

// ListByUser returns the user's rows ordered by ID.
func (s *ArticleStore) ListByUser(ctx context.Context, userID string) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Article
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes the row if the owner matches.
func (s *ArticleStore) Delete(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.UserID != userID {
		return domain.ErrArticleNotFound
	}
	delete(s.rows, id)
	return nil
}

// ListNewsSources returns the user's feeds ordered by ID.
func (s *ArticleStore) ListNewsSources(ctx context.Context, userID string) ([]domain.NewsSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.NewsSource
	for _, src := range s.sources {
		if src.UserID == userID {
			out = append(out, *src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveNewsSource inserts or updates a feed depending on the ID.
func (s *ArticleStore) SaveNewsSource(ctx context.Context, src *domain.NewsSource) (*domain.NewsSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := *src
	if row.ID == "" {
		row.ID = fmt.Sprintf("src-%d", s.seq.Add(1))
	}
	s.sources[row.ID] = &row
	out := row
	return &out, nil
}

// InsertTranscription assigns an ID and stores the job row.
func (s *ArticleStore) InsertTranscription(ctx context.Context, tr *domain.Transcription) (*domain.Transcription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := *tr
	row.ID = fmt.Sprintf("tr-%d", s.seq.Add(1))
	if row.Status == "" {
		row.Status = domain.TranscriptionPending
	}
	row.CreatedAt = time.Now().UTC()
	s.transcriptions[row.ID] = &row
	out := row
	return &out, nil
}

// ListTranscriptions returns the user's job rows ordered by ID.
func (s *ArticleStore) ListTranscriptions(ctx context.Context, userID string) ([]domain.Transcription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transcription
	for _, tr := range s.transcriptions {
		if tr.UserID == userID {
			out = append(out, *tr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
