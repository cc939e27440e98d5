package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Dev-Ruco/pressflow/internal/logging"
	"github.com/Dev-Ruco/pressflow/internal/metrics"
	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// Controller is the single authorized entry point for mutating one
// workflow session. Every change funnels through Update, which runs the
// transition validator for step changes and mirrors accepted state to
// the article store.
//
// Local commit is decoupled from persistence: accepted updates are
// applied immediately and marked dirty, then flushed after a short
// delay so keystroke-level patches coalesce into one row write. Step
// changes flush synchronously.
type Controller struct {
	sessionID string

	mu    sync.Mutex
	state *domain.WorkflowState

	syncer     *Syncer
	logger     *slog.Logger
	flushDelay time.Duration
	flushTimer *time.Timer

	subs    map[int]chan domain.WorkflowState
	nextSub int
	closed  bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithSyncer attaches the article persistence policy.
func WithSyncer(s *Syncer) ControllerOption {
	return func(c *Controller) { c.syncer = s }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithFlushDelay overrides the debounce window for non-step updates.
func WithFlushDelay(d time.Duration) ControllerOption {
	return func(c *Controller) { c.flushDelay = d }
}

// NewController wraps an existing session state. The controller takes
// ownership; callers must not mutate the state afterwards.
func NewController(sessionID string, state *domain.WorkflowState, opts ...ControllerOption) *Controller {
	c := &Controller{
		sessionID:  sessionID,
		state:      state,
		logger:     logging.NewNop(),
		flushDelay: 2 * time.Second,
		subs:       make(map[int]chan domain.WorkflowState),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("session_id", sessionID)
	return c
}

// State returns a snapshot safe for concurrent readers.
func (c *Controller) State() *domain.WorkflowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// NextStep returns the step that would follow the current one. At the
// terminal step it returns the same step.
func (c *Controller) NextStep() domain.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Step.Next()
}

// AdvanceIfValid computes the candidate next step, asks the validator,
// and on approval applies the step change. On rejection it returns a
// *domain.TransitionError carrying the editor-facing message and leaves
// the state untouched.
func (c *Controller) AdvanceIfValid(ctx context.Context) (domain.Step, error) {
	c.mu.Lock()
	next := c.state.Step.Next()
	c.mu.Unlock()

	if err := c.Update(ctx, domain.Patch{Step: &next}); err != nil {
		return "", err
	}
	return next, nil
}

// Update merges a partial patch into the session. A step change inside
// the patch re-runs the validator even when the caller is not
// AdvanceIfValid; this path is reachable directly over the API.
func (c *Controller) Update(ctx context.Context, patch domain.Patch) error {
	if patch.IsZero() {
		return nil
	}

	c.mu.Lock()
	stepChanged := patch.Step != nil && *patch.Step != c.state.Step
	if stepChanged {
		res := CanTransition(c.state.Step, *patch.Step, c.state.Project())
		if !res.Valid {
			from := c.state.Step
			c.mu.Unlock()
			metrics.Transitions.WithLabelValues("rejected").Inc()
			c.logger.Debug("transition rejected", "from", from, "to", *patch.Step, "reason", res.Message)
			return &domain.TransitionError{From: from, To: *patch.Step, Message: res.Message}
		}
		metrics.Transitions.WithLabelValues("accepted").Inc()
	}

	patch.Apply(c.state)
	c.state.Dirty = true
	snapshot := *c.state.Clone()
	c.mu.Unlock()

	c.notify(snapshot)

	if stepChanged {
		return c.Flush(ctx)
	}
	c.scheduleFlush()
	return nil
}

// Flush writes the dirty state to the article store. On failure the
// processing flags move to the error stage and the state stays dirty so
// the next flush retries; the field values themselves are kept.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if !c.state.Dirty {
		c.mu.Unlock()
		return nil
	}
	snapshot := c.state.Clone()
	c.mu.Unlock()

	id, err := c.syncer.Sync(ctx, snapshot)
	c.mu.Lock()
	if err != nil {
		c.state.ProcessingStage = domain.StageError
		c.state.ProcessingMessage = "Não foi possível guardar o artigo."
		errSnap := *c.state.Clone()
		c.mu.Unlock()
		c.logger.Error("article sync failed", "err", err)
		c.notify(errSnap)
		return err
	}
	if id != "" {
		c.state.ArticleID = id
	}
	c.state.Dirty = false
	c.mu.Unlock()
	return nil
}

// scheduleFlush arms (or re-arms) the debounce timer.
func (c *Controller) scheduleFlush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.flushTimer != nil {
		c.flushTimer.Stop()
	}
	c.flushTimer = time.AfterFunc(c.flushDelay, func() {
		if err := c.Flush(context.Background()); err != nil {
			c.logger.Warn("deferred flush failed", "err", err)
		}
	})
}

// Subscribe returns a channel receiving a snapshot after every accepted
// update, plus a cancel function. Slow receivers drop snapshots rather
// than block the controller.
func (c *Controller) Subscribe() (<-chan domain.WorkflowState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan domain.WorkflowState, 8)
	c.subs[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (c *Controller) notify(snapshot domain.WorkflowState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// Close stops the debounce timer and closes all subscriptions. A final
// flush is attempted so a session teardown does not lose edits.
func (c *Controller) Close(ctx context.Context) error {
	err := c.Flush(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return err
	}
	c.closed = true
	if c.flushTimer != nil {
		c.flushTimer.Stop()
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	return err
}
