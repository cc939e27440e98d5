package domain

// ProcessingStage describes the phase of in-flight asynchronous work.
type ProcessingStage string

const (
	StageIdle       ProcessingStage = ""
	StageUploading  ProcessingStage = "uploading"
	StageAnalyzing  ProcessingStage = "analyzing"
	StageExtracting ProcessingStage = "extracting"
	StageOrganizing ProcessingStage = "organizing"
	StageCompleted  ProcessingStage = "completed"
	StageError      ProcessingStage = "error"
)

// FileStatus tracks the upload lifecycle of a single file.
type FileStatus string

const (
	FilePending   FileStatus = "pending"
	FileUploading FileStatus = "uploading"
	FileCompleted FileStatus = "completed"
	FileError     FileStatus = "error"
)

// FileDescriptor is one source file attached to the workflow.
// Files are accumulated in order and never reordered.
type FileDescriptor struct {
	ID       string     `json:"id"`
	URL      string     `json:"url,omitempty"`
	FileName string     `json:"fileName"`
	MimeType string     `json:"mimeType"`
	FileType string     `json:"fileType"`
	FileSize int64      `json:"fileSize"`
	Status   FileStatus `json:"status"`
	Progress int        `json:"progress"`
}

// WorkflowState is the full snapshot of one article-creation session.
// It is owned by the session for its lifetime and mutated only through
// the navigation controller's Update path.
type WorkflowState struct {
	Step Step `json:"step"`

	Files   []FileDescriptor `json:"files"`
	Links   []string         `json:"links"`
	Content string           `json:"content"`

	ArticleType     *ArticleType `json:"articleType,omitempty"`
	Title           string       `json:"title"`
	SuggestedTitles []string     `json:"suggestedTitles"`
	SelectedImage   string       `json:"selectedImage,omitempty"`

	IsProcessing       bool            `json:"isProcessing"`
	AgentConfirmed     bool            `json:"agentConfirmed"`
	ProcessingStage    ProcessingStage `json:"processingStage,omitempty"`
	ProcessingProgress int             `json:"processingProgress"`
	ProcessingMessage  string          `json:"processingMessage,omitempty"`

	// ArticleID is empty until the article row is first persisted,
	// then stable for the rest of the session.
	ArticleID string `json:"articleId,omitempty"`

	// UserID identifies the owning editor. Submission requires it.
	UserID string `json:"userId,omitempty"`

	// Dirty marks local changes not yet flushed to the article store.
	Dirty bool `json:"-"`
}

// NewWorkflowState creates a fresh session state at the upload step.
func NewWorkflowState(userID string) *WorkflowState {
	return &WorkflowState{
		Step:            StepUpload,
		Files:           []FileDescriptor{},
		Links:           []string{},
		SuggestedTitles: []string{},
		UserID:          userID,
	}
}

// Clone returns a copy safe for concurrent readers. Slices are copied;
// the article type pointer is shared (the catalogue is immutable).
func (s *WorkflowState) Clone() *WorkflowState {
	if s == nil {
		return nil
	}
	next := *s
	next.Files = append([]FileDescriptor(nil), s.Files...)
	next.Links = append([]string(nil), s.Links...)
	next.SuggestedTitles = append([]string(nil), s.SuggestedTitles...)
	return &next
}

// HasInput reports whether the session has accumulated any source
// material (files, links or pasted content).
func (s *WorkflowState) HasInput() bool {
	return len(s.Files) > 0 || len(s.Links) > 0 || s.Content != ""
}

// Projection is the minimal slice of state the transition validator
// consults. Keeping it small makes the guard rules testable without
// building full sessions.
type Projection struct {
	Files           []FileDescriptor
	Links           []string
	Content         string
	AgentConfirmed  bool
	IsProcessing    bool
	SuggestedTitles []string
	ArticleType     *ArticleType
	Title           string
}

// Project extracts the validator's view of the state.
func (s *WorkflowState) Project() Projection {
	return Projection{
		Files:           s.Files,
		Links:           s.Links,
		Content:         s.Content,
		AgentConfirmed:  s.AgentConfirmed,
		IsProcessing:    s.IsProcessing,
		SuggestedTitles: s.SuggestedTitles,
		ArticleType:     s.ArticleType,
		Title:           s.Title,
	}
}
