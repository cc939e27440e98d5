package domain

import "time"

// ArticleType describes one of the editorial formats an article can
// take. The structure is advisory metadata for the editor UI; it does
// not gate workflow transitions.
type ArticleType struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Structure []string `json:"structure"`
}

// ArticleTypes is the closed catalogue of editorial formats.
var ArticleTypes = []ArticleType{
	{ID: "noticia", Label: "Notícia", Structure: []string{"Lead", "Corpo", "Contexto"}},
	{ID: "reportagem", Label: "Reportagem", Structure: []string{"Abertura", "Desenvolvimento", "Personagens", "Desfecho"}},
	{ID: "entrevista", Label: "Entrevista", Structure: []string{"Introdução", "Perguntas e Respostas", "Perfil"}},
	{ID: "opiniao", Label: "Opinião", Structure: []string{"Tese", "Argumentação", "Conclusão"}},
	{ID: "cronica", Label: "Crónica", Structure: []string{"Cena", "Reflexão", "Remate"}},
}

// ArticleTypeByID looks up a catalogue entry. Returns nil if unknown.
func ArticleTypeByID(id string) *ArticleType {
	for i := range ArticleTypes {
		if ArticleTypes[i].ID == id {
			return &ArticleTypes[i]
		}
	}
	return nil
}

// DefaultArticleTitle is the fallback title for rows created before the
// editor has chosen one.
const DefaultArticleTitle = "Novo artigo"

// Article is the persisted row behind a workflow session. Created
// lazily the first time the session has material worth keeping, then
// updated in place keyed by ID.
type Article struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	ArticleTypeID string         `json:"article_type_id,omitempty"`
	WorkflowStep  Step           `json:"workflow_step"`
	WorkflowData  map[string]any `json:"workflow_data,omitempty"`
	UserID        string         `json:"user_id"`
	CreatedAt     time.Time      `json:"created_at,omitzero"`
	UpdatedAt     time.Time      `json:"updated_at,omitzero"`
}

// NewsSource is a feed the newsroom ingests raw items from.
type NewsSource struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
	UserID string `json:"user_id"`
}

// TranscriptionStatus tracks server-side audio transcription.
type TranscriptionStatus string

const (
	TranscriptionPending    TranscriptionStatus = "pending"
	TranscriptionProcessing TranscriptionStatus = "processing"
	TranscriptionCompleted  TranscriptionStatus = "completed"
	TranscriptionFailed     TranscriptionStatus = "failed"
)

// Transcription is one audio-to-text job row.
type Transcription struct {
	ID        string              `json:"id"`
	FileName  string              `json:"file_name"`
	AudioURL  string              `json:"audio_url"`
	Text      string              `json:"text,omitempty"`
	Status    TranscriptionStatus `json:"status"`
	UserID    string              `json:"user_id"`
	CreatedAt time.Time           `json:"created_at,omitzero"`
}
