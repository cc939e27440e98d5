package runtime

import (
	"context"
	"log/slog"

	"github.com/Dev-Ruco/pressflow/internal/logging"
	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// AutoAdvance watches a session and moves it off the upload step as
// soon as the external agent reports back: when agentConfirmed flips
// true or suggested titles first arrive, and the session is not
// processing. The advance goes through the validator like any other
// transition; once the step leaves upload the watcher disarms itself.
func AutoAdvance(ctx context.Context, ctrl *Controller, logger *slog.Logger) func() {
	if logger == nil {
		logger = logging.NewNop()
	}

	updates, cancel := ctrl.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		monitoring := ctrl.State().Step == domain.StepUpload
		hadTitles := len(ctrl.State().SuggestedTitles) > 0

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-updates:
				if !ok {
					return
				}
				if snap.Step != domain.StepUpload {
					monitoring = false
					continue
				}
				if !monitoring || snap.IsProcessing {
					continue
				}

				titlesArrived := !hadTitles && len(snap.SuggestedTitles) > 0
				hadTitles = hadTitles || len(snap.SuggestedTitles) > 0

				if !snap.AgentConfirmed && !titlesArrived {
					continue
				}

				next, err := ctrl.AdvanceIfValid(ctx)
				if err != nil {
					if te, ok := domain.IsTransitionError(err); ok {
						logger.Debug("auto-advance not ready", "reason", te.Message)
						continue
					}
					logger.Warn("auto-advance failed", "err", err)
					continue
				}
				// Disarm before the next snapshot arrives; the step has
				// moved and a second advance would double-fire.
				monitoring = false
				logger.Info("auto-advanced workflow", "step", next)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
