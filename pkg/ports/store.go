package ports

import (
	"context"

	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// StateStore persists workflow session state, enabling an editor to
// stop and resume an article-creation session.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.WorkflowState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.WorkflowState, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of active sessions.
	List(ctx context.Context) ([]string, error)
}

// ArticleStore is the row store behind workflow sessions. Rows are
// created once and updated in place keyed by article ID.
type ArticleStore interface {
	// Insert creates a new article row and returns it with the
	// assigned ID and timestamps.
	Insert(ctx context.Context, a *domain.Article) (*domain.Article, error)

	// Update patches an existing row. Returns domain.ErrArticleNotFound
	// if the ID does not exist.
	Update(ctx context.Context, id string, a *domain.Article) error

	// Get fetches a row by ID, scoped to its owning user.
	Get(ctx context.Context, id, userID string) (*domain.Article, error)

	// ListByUser returns all article rows owned by the user.
	ListByUser(ctx context.Context, userID string) ([]domain.Article, error)

	// Delete removes a row.
	Delete(ctx context.Context, id, userID string) error
}

// NewsSourceStore manages the feeds a user ingests raw items from.
type NewsSourceStore interface {
	// ListNewsSources returns the user's configured feeds.
	ListNewsSources(ctx context.Context, userID string) ([]domain.NewsSource, error)

	// SaveNewsSource inserts the feed when it has no ID yet, updates
	// it otherwise, and returns the stored row.
	SaveNewsSource(ctx context.Context, src *domain.NewsSource) (*domain.NewsSource, error)
}

// TranscriptionStore manages audio-to-text job rows.
type TranscriptionStore interface {
	// InsertTranscription creates a job row and returns it with the
	// assigned ID.
	InsertTranscription(ctx context.Context, tr *domain.Transcription) (*domain.Transcription, error)

	// ListTranscriptions returns the user's jobs.
	ListTranscriptions(ctx context.Context, userID string) ([]domain.Transcription, error)
}
