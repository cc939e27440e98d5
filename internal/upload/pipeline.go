package upload

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dev-Ruco/pressflow/internal/logging"
	"github.com/Dev-Ruco/pressflow/internal/runtime"
	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// Strategy names one of the two delivery paths for file payloads.
type Strategy string

const (
	// StrategyChunkedWebhook pushes file bytes through the webhook in
	// base64 chunks.
	StrategyChunkedWebhook Strategy = "chunked-webhook"
	// StrategyObjectStorage uploads whole files to bucket storage and
	// sends only their URLs.
	StrategyObjectStorage Strategy = "object-storage"
)

// Pipeline runs a full submission for one session: deliver every file
// via the selected strategy, then POST the consolidated payload, while
// mirroring processing stage and progress into the session state.
//
// The whole run hangs off the caller's context; cancelling it aborts
// the requests in flight, not just a local flag.
type Pipeline struct {
	webhook  *WebhookClient
	direct   *DirectUploader
	strategy Strategy
	logger   *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithDirectUploader enables the object-storage strategy.
func WithDirectUploader(d *DirectUploader) PipelineOption {
	return func(p *Pipeline) { p.direct = d }
}

// WithStrategy selects a delivery path (default chunked webhook).
func WithStrategy(s Strategy) PipelineOption {
	return func(p *Pipeline) { p.strategy = s }
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline creates a submission pipeline around the webhook client.
func NewPipeline(webhook *WebhookClient, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		webhook:  webhook,
		strategy: StrategyChunkedWebhook,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.strategy == StrategyObjectStorage && p.direct == nil {
		p.strategy = StrategyChunkedWebhook
	}
	return p
}

// Run submits the session's accumulated material. payloads maps file ID
// to raw bytes for files not yet delivered. Failures land in the error
// processing stage with a message; the editor retries by calling Run
// again from scratch.
func (p *Pipeline) Run(ctx context.Context, ctrl *runtime.Controller, sessionID string, payloads map[string][]byte) error {
	state := ctrl.State()
	if state.UserID == "" {
		return domain.ErrNotAuthenticated
	}
	if !state.HasInput() {
		return domain.ErrNoMaterial
	}

	if err := p.setStage(ctx, ctrl, domain.StageUploading, "A enviar ficheiros...", 0); err != nil {
		return err
	}

	files, err := p.deliverFiles(ctx, ctrl, sessionID, state.Files, payloads)
	if err != nil {
		return p.fail(ctx, ctrl, "Falha no envio dos ficheiros.", err)
	}
	if err := ctrl.Update(ctx, domain.Patch{Files: &files}); err != nil {
		return err
	}

	for _, link := range state.Links {
		if err := p.webhook.SendLink(ctx, sessionID, link); err != nil {
			return p.fail(ctx, ctrl, "Falha no envio dos links.", err)
		}
	}
	if state.Content != "" {
		if err := p.webhook.SendText(ctx, sessionID, state.Content); err != nil {
			return p.fail(ctx, ctrl, "Falha no envio do texto.", err)
		}
	}

	if err := p.setStage(ctx, ctrl, domain.StageAnalyzing, "A analisar o material...", 0); err != nil {
		return err
	}

	// Progress here is a UX simulation: it creeps to 95 until the
	// webhook answers, then jumps to 100.
	progress := StartSyntheticProgress(500*time.Millisecond, 3, func(v int) {
		_ = ctrl.Update(context.WithoutCancel(ctx), domain.Patch{ProcessingProgress: &v})
	})

	resp, err := p.webhook.Submit(ctx, sessionID, state.UserID, Submission{
		Content:     state.Content,
		ArticleType: state.ArticleType,
		Files:       files,
		Links:       state.Links,
	})
	if err != nil {
		progress.Abort()
		return p.fail(ctx, ctrl, "O processamento falhou. Tente novamente.", err)
	}
	progress.Finish(func(v int) {
		_ = ctrl.Update(context.WithoutCancel(ctx), domain.Patch{ProcessingProgress: &v})
	})

	p.logger.Info("submission accepted", "session_id", sessionID, "message", resp.Message)

	confirmed := true
	notProcessing := false
	stage := domain.StageCompleted
	return ctrl.Update(ctx, domain.Patch{
		AgentConfirmed:  &confirmed,
		IsProcessing:    &notProcessing,
		ProcessingStage: &stage,
	})
}

// deliverFiles runs the selected strategy over the pending files.
func (p *Pipeline) deliverFiles(ctx context.Context, ctrl *runtime.Controller, sessionID string, files []domain.FileDescriptor, payloads map[string][]byte) ([]domain.FileDescriptor, error) {
	if p.strategy == StrategyObjectStorage {
		return p.direct.UploadAll(ctx, files, payloads)
	}

	out := make([]domain.FileDescriptor, len(files))
	copy(out, files)
	for i := range out {
		f := &out[i]
		if f.Status == domain.FileCompleted {
			continue
		}
		data, ok := payloads[f.ID]
		if !ok {
			continue // already delivered in a previous attempt
		}
		f.Status = domain.FileUploading
		err := p.webhook.SendFile(ctx, sessionID, *f, data, func(pct int) {
			f.Progress = pct
			_ = ctrl.Update(context.WithoutCancel(ctx), domain.Patch{ProcessingProgress: &pct})
		})
		if err != nil {
			f.Status = domain.FileError
			return out, err
		}
		f.Status = domain.FileCompleted
		f.Progress = 100
	}
	return out, nil
}

func (p *Pipeline) setStage(ctx context.Context, ctrl *runtime.Controller, stage domain.ProcessingStage, msg string, pct int) error {
	processing := stage != domain.StageCompleted && stage != domain.StageError
	return ctrl.Update(ctx, domain.Patch{
		IsProcessing:       &processing,
		ProcessingStage:    &stage,
		ProcessingMessage:  &msg,
		ProcessingProgress: &pct,
	})
}

// fail records the error stage. The state write uses a detached context
// so a cancelled submission still surfaces its outcome.
func (p *Pipeline) fail(ctx context.Context, ctrl *runtime.Controller, msg string, cause error) error {
	p.logger.Error("submission failed", "err", cause)
	stage := domain.StageError
	notProcessing := false
	_ = ctrl.Update(context.WithoutCancel(ctx), domain.Patch{
		IsProcessing:      &notProcessing,
		ProcessingStage:   &stage,
		ProcessingMessage: &msg,
	})
	return cause
}
