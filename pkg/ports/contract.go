package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// RunStateStoreContract verifies that a StateStore implementation
// adheres to the interface contract. Every adapter's test suite should
// call it.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewWorkflowState("user-1")
		state.Content = "rascunho"
		state.Files = append(state.Files, domain.FileDescriptor{
			ID: "f1", FileName: "audio.mp3", MimeType: "audio/mpeg", FileSize: 1024, Status: domain.FileCompleted,
		})

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.StepUpload, loaded.Step)
		assert.Equal(t, "rascunho", loaded.Content)
		require.Len(t, loaded.Files, 1)
		assert.Equal(t, "audio.mp3", loaded.Files[0].FileName)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewWorkflowState("user-1"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewWorkflowState("user-1"))
		_ = store.Save(ctx, id2, domain.NewWorkflowState("user-2"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunArticleStoreContract verifies an ArticleStore implementation.
func RunArticleStoreContract(t *testing.T, store ArticleStore) {
	ctx := context.Background()
	const userID = "user-contract"

	t.Run("Insert assigns ID", func(t *testing.T) {
		row, err := store.Insert(ctx, &domain.Article{
			Title:        domain.DefaultArticleTitle,
			WorkflowStep: domain.StepUpload,
			UserID:       userID,
		})
		require.NoError(t, err)
		require.NotEmpty(t, row.ID)

		got, err := store.Get(ctx, row.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultArticleTitle, got.Title)
	})

	t.Run("Update keeps the same row", func(t *testing.T) {
		row, err := store.Insert(ctx, &domain.Article{
			Title: domain.DefaultArticleTitle, WorkflowStep: domain.StepUpload, UserID: userID,
		})
		require.NoError(t, err)

		row.Title = "Eleições autárquicas"
		row.WorkflowStep = domain.StepTypeSelection
		require.NoError(t, store.Update(ctx, row.ID, row))

		got, err := store.Get(ctx, row.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, "Eleições autárquicas", got.Title)
		assert.Equal(t, domain.StepTypeSelection, got.WorkflowStep)
	})

	t.Run("Update non-existent", func(t *testing.T) {
		err := store.Update(ctx, "missing-id", &domain.Article{Title: "x", UserID: userID})
		assert.ErrorIs(t, err, domain.ErrArticleNotFound)
	})

	t.Run("ListByUser filters owner", func(t *testing.T) {
		mine, err := store.Insert(ctx, &domain.Article{Title: "a", UserID: userID, WorkflowStep: domain.StepUpload})
		require.NoError(t, err)
		_, err = store.Insert(ctx, &domain.Article{Title: "b", UserID: "someone-else", WorkflowStep: domain.StepUpload})
		require.NoError(t, err)

		rows, err := store.ListByUser(ctx, userID)
		require.NoError(t, err)

		ids := make([]string, 0, len(rows))
		for _, r := range rows {
			assert.Equal(t, userID, r.UserID)
			ids = append(ids, r.ID)
		}
		assert.Contains(t, ids, mine.ID)
	})

	t.Run("Delete", func(t *testing.T) {
		row, err := store.Insert(ctx, &domain.Article{Title: "tmp", UserID: userID, WorkflowStep: domain.StepUpload})
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, row.ID, userID))

		_, err = store.Get(ctx, row.ID, userID)
		assert.ErrorIs(t, err, domain.ErrArticleNotFound)
	})
}

// RunTitleCacheContract verifies a TitleCache implementation.
func RunTitleCacheContract(t *testing.T, cache TitleCache) {
	ctx := context.Background()
	titles := []string{"Governo aprova orçamento", "Oposição contesta medida"}

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, "art-1", titles, time.Minute))

		got, ok, err := cache.Get(ctx, "art-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, titles, got)
	})

	t.Run("Get absent", func(t *testing.T) {
		_, ok, err := cache.Get(ctx, "art-absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, "art-2", titles, time.Minute))
		require.NoError(t, cache.Invalidate(ctx, "art-2"))

		_, ok, err := cache.Get(ctx, "art-2")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
