package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-Ruco/pressflow/internal/adapters/memory"
	"github.com/Dev-Ruco/pressflow/internal/runtime"
	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// readyState builds a session that satisfies every guard up to the
// requested step.
func readyState(step domain.Step) *domain.WorkflowState {
	s := domain.NewWorkflowState("user-1")
	s.Step = step
	s.Links = []string{"https://example.com/fonte"}
	s.AgentConfirmed = true
	s.ArticleType = domain.ArticleTypeByID("noticia")
	s.Title = "Título escolhido"
	s.Content = "Corpo do artigo."
	return s
}

func TestAdvanceIfValid_RejectedWithoutAgentConfirmation(t *testing.T) {
	state := domain.NewWorkflowState("user-1")
	state.Links = []string{"https://example.com/fonte"}

	ctrl := runtime.NewController("s1", state)
	defer ctrl.Close(context.Background())

	_, err := ctrl.AdvanceIfValid(context.Background())
	require.Error(t, err)

	te, ok := domain.IsTransitionError(err)
	require.True(t, ok)
	assert.Contains(t, te.Message, "agente")
	assert.Equal(t, domain.StepUpload, ctrl.State().Step)
}

func TestAdvanceIfValid_PersistsOnStepChange(t *testing.T) {
	articles := memory.NewArticleStore()
	ctrl := runtime.NewController("s1", readyState(domain.StepUpload),
		runtime.WithSyncer(runtime.NewSyncer(articles)))
	defer ctrl.Close(context.Background())

	next, err := ctrl.AdvanceIfValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StepTypeSelection, next)

	// The step change flushes synchronously and creates the row.
	assert.EqualValues(t, 1, articles.InsertCalls.Load())
	assert.NotEmpty(t, ctrl.State().ArticleID)
}

func TestAdvanceIfValid_CreateOnceUpdateThereafter(t *testing.T) {
	articles := memory.NewArticleStore()
	ctrl := runtime.NewController("s1", readyState(domain.StepUpload),
		runtime.WithSyncer(runtime.NewSyncer(articles)))
	defer ctrl.Close(context.Background())

	_, err := ctrl.AdvanceIfValid(context.Background())
	require.NoError(t, err)
	articleID := ctrl.State().ArticleID

	_, err = ctrl.AdvanceIfValid(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, articles.InsertCalls.Load())
	assert.EqualValues(t, 1, articles.UpdateCalls.Load())
	assert.Equal(t, articleID, ctrl.State().ArticleID)
}

func TestUpdate_DebouncesFieldPatches(t *testing.T) {
	articles := memory.NewArticleStore()
	ctrl := runtime.NewController("s1", readyState(domain.StepContentEditing),
		runtime.WithSyncer(runtime.NewSyncer(articles)),
		runtime.WithFlushDelay(20*time.Millisecond))
	defer ctrl.Close(context.Background())

	for _, content := range []string{"A", "Ab", "Abc"} {
		c := content
		require.NoError(t, ctrl.Update(context.Background(), domain.Patch{Content: &c}))
	}

	// Keystroke patches apply locally at once but are not yet stored.
	assert.Equal(t, "Abc", ctrl.State().Content)
	assert.EqualValues(t, 0, articles.InsertCalls.Load())

	require.Eventually(t, func() bool {
		return articles.InsertCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// Coalesced into a single write.
	assert.EqualValues(t, 0, articles.UpdateCalls.Load())
}

func TestUpdate_StepPatchRunsValidator(t *testing.T) {
	ctrl := runtime.NewController("s1", readyState(domain.StepUpload))
	defer ctrl.Close(context.Background())

	to := domain.StepContentEditing
	err := ctrl.Update(context.Background(), domain.Patch{Step: &to})
	require.Error(t, err)

	_, ok := domain.IsTransitionError(err)
	assert.True(t, ok)
	assert.Equal(t, domain.StepUpload, ctrl.State().Step)
}

type failingArticleStore struct {
	*memory.ArticleStore
	fail bool
}

func (f *failingArticleStore) Insert(ctx context.Context, a *domain.Article) (*domain.Article, error) {
	if f.fail {
		return nil, errors.New("row store unavailable")
	}
	return f.ArticleStore.Insert(ctx, a)
}

func TestFlush_FailureKeepsStateDirtyAndRetries(t *testing.T) {
	store := &failingArticleStore{ArticleStore: memory.NewArticleStore(), fail: true}
	ctrl := runtime.NewController("s1", readyState(domain.StepTypeSelection),
		runtime.WithSyncer(runtime.NewSyncer(store)))
	defer ctrl.Close(context.Background())

	title := "Novo título"
	require.NoError(t, ctrl.Update(context.Background(), domain.Patch{Title: &title}))

	err := ctrl.Flush(context.Background())
	require.Error(t, err)

	// Local edits survive; the session reports the storage problem.
	state := ctrl.State()
	assert.Equal(t, "Novo título", state.Title)
	assert.Equal(t, domain.StageError, state.ProcessingStage)
	assert.Equal(t, "Não foi possível guardar o artigo.", state.ProcessingMessage)

	// The next flush retries the same write and succeeds.
	store.fail = false
	require.NoError(t, ctrl.Flush(context.Background()))
	assert.NotEmpty(t, ctrl.State().ArticleID)
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	ctrl := runtime.NewController("s1", domain.NewWorkflowState("user-1"))
	defer ctrl.Close(context.Background())

	updates, cancel := ctrl.Subscribe()
	defer cancel()

	content := "novo conteúdo"
	require.NoError(t, ctrl.Update(context.Background(), domain.Patch{Content: &content}))

	select {
	case snap := <-updates:
		assert.Equal(t, "novo conteúdo", snap.Content)
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}
}

func TestClose_FlushesAndClosesSubscriptions(t *testing.T) {
	articles := memory.NewArticleStore()
	ctrl := runtime.NewController("s1", readyState(domain.StepContentEditing),
		runtime.WithSyncer(runtime.NewSyncer(articles)),
		runtime.WithFlushDelay(time.Hour))

	updates, cancel := ctrl.Subscribe()
	defer cancel()

	content := "edição final"
	require.NoError(t, ctrl.Update(context.Background(), domain.Patch{Content: &content}))
	require.NoError(t, ctrl.Close(context.Background()))

	// The pending edit was flushed despite the debounce window.
	assert.EqualValues(t, 1, articles.InsertCalls.Load())

	// Drain: the update snapshot first, then the closed channel.
	for range updates {
	}
}
