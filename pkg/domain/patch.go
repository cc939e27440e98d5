package domain

// Patch is a partial update to a WorkflowState. Nil fields are left
// untouched; AppendFiles adds to the file list instead of replacing it.
type Patch struct {
	Step *Step `json:"step,omitempty"`

	AppendFiles []FileDescriptor  `json:"appendFiles,omitempty"`
	Files       *[]FileDescriptor `json:"files,omitempty"`
	Links       *[]string         `json:"links,omitempty"`
	Content     *string           `json:"content,omitempty"`

	ArticleTypeID   *string   `json:"articleTypeId,omitempty"`
	Title           *string   `json:"title,omitempty"`
	SuggestedTitles *[]string `json:"suggestedTitles,omitempty"`
	SelectedImage   *string   `json:"selectedImage,omitempty"`

	IsProcessing       *bool            `json:"isProcessing,omitempty"`
	AgentConfirmed     *bool            `json:"agentConfirmed,omitempty"`
	ProcessingStage    *ProcessingStage `json:"processingStage,omitempty"`
	ProcessingProgress *int             `json:"processingProgress,omitempty"`
	ProcessingMessage  *string          `json:"processingMessage,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.Step == nil && len(p.AppendFiles) == 0 && p.Files == nil &&
		p.Links == nil && p.Content == nil && p.ArticleTypeID == nil &&
		p.Title == nil && p.SuggestedTitles == nil && p.SelectedImage == nil &&
		p.IsProcessing == nil && p.AgentConfirmed == nil &&
		p.ProcessingStage == nil && p.ProcessingProgress == nil &&
		p.ProcessingMessage == nil
}

// Apply merges the patch into the state in place. Step changes are the
// caller's responsibility to validate first; Apply itself is dumb.
func (p Patch) Apply(s *WorkflowState) {
	if p.Step != nil {
		s.Step = *p.Step
	}
	if p.Files != nil {
		s.Files = append([]FileDescriptor(nil), (*p.Files)...)
	}
	if len(p.AppendFiles) > 0 {
		s.Files = append(s.Files, p.AppendFiles...)
	}
	if p.Links != nil {
		s.Links = append([]string(nil), (*p.Links)...)
	}
	if p.Content != nil {
		s.Content = *p.Content
	}
	if p.ArticleTypeID != nil {
		s.ArticleType = ArticleTypeByID(*p.ArticleTypeID)
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.SuggestedTitles != nil {
		s.SuggestedTitles = append([]string(nil), (*p.SuggestedTitles)...)
	}
	if p.SelectedImage != nil {
		s.SelectedImage = *p.SelectedImage
	}
	if p.IsProcessing != nil {
		s.IsProcessing = *p.IsProcessing
	}
	if p.AgentConfirmed != nil {
		s.AgentConfirmed = *p.AgentConfirmed
	}
	if p.ProcessingStage != nil {
		s.ProcessingStage = *p.ProcessingStage
	}
	if p.ProcessingProgress != nil {
		s.ProcessingProgress = *p.ProcessingProgress
	}
	if p.ProcessingMessage != nil {
		s.ProcessingMessage = *p.ProcessingMessage
	}
}
