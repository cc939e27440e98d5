package runtime

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/Dev-Ruco/pressflow/pkg/domain"
	"github.com/Dev-Ruco/pressflow/pkg/ports"
)

// Syncer reconciles a workflow session with its article row: the row is
// created lazily the first time the session has material worth keeping,
// then always updated in place keyed by the article ID.
type Syncer struct {
	store ports.ArticleStore
}

// NewSyncer wraps an article store with the create-once policy.
func NewSyncer(store ports.ArticleStore) *Syncer {
	return &Syncer{store: store}
}

// Sync mirrors the state to the row store. It returns the article ID,
// which is empty when the session is still too empty to persist.
func (s *Syncer) Sync(ctx context.Context, state *domain.WorkflowState) (string, error) {
	if s == nil || s.store == nil {
		return state.ArticleID, nil
	}

	row, err := rowFromState(state)
	if err != nil {
		return state.ArticleID, err
	}

	if state.ArticleID != "" {
		if err := s.store.Update(ctx, state.ArticleID, row); err != nil {
			return state.ArticleID, fmt.Errorf("update article %s: %w", state.ArticleID, err)
		}
		return state.ArticleID, nil
	}

	// Lazy creation: nothing to keep yet.
	if !state.HasInput() && state.Step == domain.StepUpload {
		return "", nil
	}

	created, err := s.store.Insert(ctx, row)
	if err != nil {
		return "", fmt.Errorf("insert article: %w", err)
	}
	return created.ID, nil
}

// rowFromState builds the persisted row. Workflow metadata that has no
// dedicated column travels in the workflow_data JSON map.
func rowFromState(state *domain.WorkflowState) (*domain.Article, error) {
	title := state.Title
	if title == "" {
		title = domain.DefaultArticleTitle
	}

	data, err := workflowData(state)
	if err != nil {
		return nil, err
	}

	row := &domain.Article{
		ID:           state.ArticleID,
		Title:        title,
		Content:      state.Content,
		WorkflowStep: state.Step,
		WorkflowData: data,
		UserID:       state.UserID,
	}
	if state.ArticleType != nil {
		row.ArticleTypeID = state.ArticleType.ID
	}
	return row, nil
}

// workflowData flattens the session extras into a map for the JSON
// column. mapstructure keeps the field naming consistent with the
// descriptors' JSON tags.
func workflowData(state *domain.WorkflowState) (map[string]any, error) {
	extras := struct {
		Files           []domain.FileDescriptor `mapstructure:"files"`
		Links           []string                `mapstructure:"links"`
		SuggestedTitles []string                `mapstructure:"suggested_titles"`
		SelectedImage   string                  `mapstructure:"selected_image"`
		AgentConfirmed  bool                    `mapstructure:"agent_confirmed"`
	}{
		Files:           state.Files,
		Links:           state.Links,
		SuggestedTitles: state.SuggestedTitles,
		SelectedImage:   state.SelectedImage,
		AgentConfirmed:  state.AgentConfirmed,
	}

	var out map[string]any
	if err := mapstructure.Decode(&extras, &out); err != nil {
		return nil, fmt.Errorf("encode workflow data: %w", err)
	}
	return out, nil
}

// StateExtras restores the workflow_data portion of a row into a state.
// Used when resuming a session from a persisted article.
func StateExtras(row *domain.Article, state *domain.WorkflowState) error {
	if row.WorkflowData == nil {
		return nil
	}
	var extras struct {
		Files           []domain.FileDescriptor `mapstructure:"files"`
		Links           []string                `mapstructure:"links"`
		SuggestedTitles []string                `mapstructure:"suggested_titles"`
		SelectedImage   string                  `mapstructure:"selected_image"`
		AgentConfirmed  bool                    `mapstructure:"agent_confirmed"`
	}
	if err := mapstructure.Decode(row.WorkflowData, &extras); err != nil {
		return fmt.Errorf("decode workflow data: %w", err)
	}
	state.Files = extras.Files
	state.Links = extras.Links
	state.SuggestedTitles = extras.SuggestedTitles
	state.SelectedImage = extras.SelectedImage
	state.AgentConfirmed = extras.AgentConfirmed
	return nil
}
