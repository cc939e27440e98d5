package pressflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Dev-Ruco/pressflow/internal/adapters/memory"
	"github.com/Dev-Ruco/pressflow/internal/config"
	"github.com/Dev-Ruco/pressflow/internal/logging"
	"github.com/Dev-Ruco/pressflow/internal/runtime"
	"github.com/Dev-Ruco/pressflow/internal/titles"
	"github.com/Dev-Ruco/pressflow/internal/upload"
	"github.com/Dev-Ruco/pressflow/pkg/domain"
	"github.com/Dev-Ruco/pressflow/pkg/ports"
	"github.com/Dev-Ruco/pressflow/pkg/session"
)

// Version is the engine release, stamped at build time.
var Version = "dev"

// Engine is the high-level entry point for the pressflow library. It
// owns the live workflow sessions and wires navigation, uploads, title
// polling and persistence together.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions *session.Manager

	articles   ports.ArticleStore
	stateStore ports.StateStore
	titleCache ports.TitleCache
	objects    ports.ObjectStore
	locker     ports.DistributedLocker
	strategy   upload.Strategy

	webhook  *upload.WebhookClient
	pipeline *upload.Pipeline
	titlesC  *titles.Client

	mu     sync.Mutex
	active map[string]*liveSession
	closed bool
}

// liveSession groups everything running on behalf of one session.
type liveSession struct {
	ctrl       *runtime.Controller
	poller     *titles.Poller
	stopWatch  func()
	stopPoll   func()
	cancelSync func()

	mu       sync.Mutex
	payloads map[string][]byte
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithArticleStore injects the article row store.
func WithArticleStore(store ports.ArticleStore) Option {
	return func(e *Engine) { e.articles = store }
}

// WithStateStore injects the session state store.
func WithStateStore(store ports.StateStore) Option {
	return func(e *Engine) { e.stateStore = store }
}

// WithTitleCache injects the title fallback cache.
func WithTitleCache(cache ports.TitleCache) Option {
	return func(e *Engine) { e.titleCache = cache }
}

// WithObjectStore enables the object-storage upload strategy.
func WithObjectStore(store ports.ObjectStore) Option {
	return func(e *Engine) {
		e.objects = store
		e.strategy = upload.StrategyObjectStorage
	}
}

// WithLocker enables distributed session locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = locker }
}

// New initializes a pressflow Engine. Adapters default to in-memory
// implementations; production deployments inject Redis and REST stores
// through options.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logging.NewNop(),
		strategy: upload.StrategyChunkedWebhook,
		active:   make(map[string]*liveSession),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.stateStore == nil {
		e.stateStore = memory.NewStateStore()
	}
	if e.articles == nil {
		e.articles = memory.NewArticleStore()
	}
	if e.titleCache == nil {
		e.titleCache = memory.NewTitleCache()
	}

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.stateStore, sessionOpts...)

	e.webhook = upload.NewWebhookClient(upload.WebhookConfig{
		URL:              cfg.Webhook.URL,
		AuthMethod:       cfg.Webhook.AuthMethod,
		Timeout:          cfg.Webhook.Timeout,
		ChunkSize:        cfg.Webhook.ChunkSize,
		ChunkConcurrency: cfg.Webhook.ChunkConcurrency,
		ChunkRetries:     cfg.Webhook.ChunkRetries,
		ChunkBackoff:     cfg.Webhook.ChunkBackoff,
	}, upload.WithWebhookLogger(e.logger))

	pipelineOpts := []upload.PipelineOption{
		upload.WithPipelineLogger(e.logger),
		upload.WithStrategy(e.strategy),
	}
	if e.objects != nil {
		pipelineOpts = append(pipelineOpts, upload.WithDirectUploader(
			upload.NewDirectUploader(e.objects, true, cfg.Storage.SignedURLTTL),
		))
	}
	e.pipeline = upload.NewPipeline(e.webhook, pipelineOpts...)

	e.titlesC = titles.NewClient(cfg.Titles.Endpoint, cfg.Titles.APIKey, cfg.Titles.Timeout)

	return e, nil
}

// StartSession loads or creates the workflow session and starts its
// auto-advance watcher and title poller.
func (e *Engine) StartSession(ctx context.Context, sessionID, userID string) (*domain.WorkflowState, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine is closed")
	}
	if live, ok := e.active[sessionID]; ok {
		e.mu.Unlock()
		return live.ctrl.State(), nil
	}
	e.mu.Unlock()

	state, err := e.sessions.LoadOrStart(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	ctrl := runtime.NewController(sessionID, state,
		runtime.WithSyncer(runtime.NewSyncer(e.articles)),
		runtime.WithLogger(e.logger),
		runtime.WithFlushDelay(e.cfg.Server.FlushDelay),
	)

	live := &liveSession{ctrl: ctrl, payloads: make(map[string][]byte)}

	// Mirror accepted updates back into the session store.
	updates, cancelSync := ctrl.Subscribe()
	go func() {
		for snap := range updates {
			if err := e.sessions.Save(context.Background(), sessionID, &snap); err != nil {
				e.logger.Warn("session mirror failed", "session_id", sessionID, "err", err)
			}
		}
	}()
	live.cancelSync = cancelSync

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	stopWatch := runtime.AutoAdvance(watchCtx, ctrl, e.logger)
	live.stopWatch = func() {
		cancelWatch()
		stopWatch()
	}

	poller := titles.NewPoller(e.titlesC, func(ts []string) {
		patch := domain.Patch{SuggestedTitles: &ts}
		if err := ctrl.Update(context.Background(), patch); err != nil {
			e.logger.Warn("title update rejected", "session_id", sessionID, "err", err)
		}
	},
		titles.WithCache(e.titleCache),
		titles.WithPollConfig(titles.PollConfig{
			Initial:     e.cfg.Titles.PollInitial,
			Steady:      e.cfg.Titles.PollSteady,
			Errored:     e.cfg.Titles.PollErrored,
			MinInterval: e.cfg.Titles.MinInterval,
			CacheTTL:    e.cfg.Titles.CacheTTL,
		}),
		titles.WithPollerLogger(e.logger),
	)
	if state.ArticleID != "" {
		poller.SetArticleID(state.ArticleID)
	}
	live.poller = poller
	live.stopPoll = poller.Start(context.Background())

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.discard(ctx, live)
		return nil, fmt.Errorf("engine is closed")
	}
	if winner, ok := e.active[sessionID]; ok {
		// Lost a concurrent start for the same ID; the winner's
		// controller is the single source of truth.
		e.mu.Unlock()
		e.discard(ctx, live)
		return winner.ctrl.State(), nil
	}
	e.active[sessionID] = live
	e.mu.Unlock()

	e.logger.Info("session started", "session_id", sessionID, "step", state.Step)
	return ctrl.State(), nil
}

// discard stops a liveSession that never became the active instance
// for its ID. Nothing is persisted; the winning instance owns that.
func (e *Engine) discard(ctx context.Context, live *liveSession) {
	live.stopPoll()
	live.stopWatch()
	_ = live.ctrl.Close(ctx)
	live.cancelSync()
}

// State returns the current session snapshot.
func (e *Engine) State(ctx context.Context, sessionID string) (*domain.WorkflowState, error) {
	if live, ok := e.session(sessionID); ok {
		return live.ctrl.State(), nil
	}
	return e.sessions.Load(ctx, sessionID)
}

// Advance moves the session to the next step when the validator allows.
func (e *Engine) Advance(ctx context.Context, sessionID string) (domain.Step, error) {
	live, ok := e.session(sessionID)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	step, err := live.ctrl.AdvanceIfValid(ctx)
	if err == nil {
		live.poller.SetArticleID(live.ctrl.State().ArticleID)
	}
	return step, err
}

// Update applies a partial patch to the session.
func (e *Engine) Update(ctx context.Context, sessionID string, patch domain.Patch) error {
	live, ok := e.session(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return live.ctrl.Update(ctx, patch)
}

// AddFiles registers file descriptors and their raw payloads for the
// next submission.
func (e *Engine) AddFiles(ctx context.Context, sessionID string, files []domain.FileDescriptor, payloads map[string][]byte) error {
	live, ok := e.session(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}

	live.mu.Lock()
	for id, data := range payloads {
		live.payloads[id] = data
	}
	live.mu.Unlock()

	return live.ctrl.Update(ctx, domain.Patch{AppendFiles: files})
}

// Submit runs the upload pipeline for the session. Cancelling ctx
// aborts the network calls in flight.
func (e *Engine) Submit(ctx context.Context, sessionID string) error {
	live, ok := e.session(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}

	live.mu.Lock()
	payloads := make(map[string][]byte, len(live.payloads))
	for id, data := range live.payloads {
		payloads[id] = data
	}
	live.mu.Unlock()

	if err := e.pipeline.Run(ctx, live.ctrl, sessionID, payloads); err != nil {
		return err
	}

	// Delivered payloads are no longer needed in memory.
	live.mu.Lock()
	live.payloads = make(map[string][]byte)
	live.mu.Unlock()

	live.poller.SetArticleID(live.ctrl.State().ArticleID)
	return nil
}

// Titles returns the latest suggested titles, forcing a refresh poll
// (bounded by the poller's minimum interval).
func (e *Engine) Titles(ctx context.Context, sessionID string) ([]string, error) {
	live, ok := e.session(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	live.poller.Poll(ctx)
	return live.ctrl.State().SuggestedTitles, nil
}

// Watch returns a channel of session snapshots plus a cancel function.
func (e *Engine) Watch(sessionID string) (<-chan domain.WorkflowState, func(), error) {
	live, ok := e.session(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := live.ctrl.Subscribe()
	return ch, cancel, nil
}

// EndSession stops the session's background work, flushes pending
// writes and removes it from the active set. The persisted state
// remains loadable.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	live, ok := e.active[sessionID]
	if ok {
		delete(e.active, sessionID)
	}
	e.mu.Unlock()
	if !ok {
		return nil
	}
	return e.teardown(ctx, sessionID, live)
}

// Close ends every active session.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	active := e.active
	e.active = make(map[string]*liveSession)
	e.mu.Unlock()

	var firstErr error
	for id, live := range active {
		if err := e.teardown(ctx, id, live); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *Engine) teardown(ctx context.Context, sessionID string, live *liveSession) error {
	live.stopPoll()
	live.stopWatch()
	err := live.ctrl.Close(ctx)
	live.cancelSync()
	if saveErr := e.sessions.Save(ctx, sessionID, live.ctrl.State()); saveErr != nil && err == nil {
		err = saveErr
	}
	return err
}

func (e *Engine) session(sessionID string) (*liveSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	live, ok := e.active[sessionID]
	return live, ok
}

// Sessions lists the persisted session IDs.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// NewsSources lists the user's configured feeds. The article store must
// implement ports.NewsSourceStore.
func (e *Engine) NewsSources(ctx context.Context, userID string) ([]domain.NewsSource, error) {
	store, ok := e.articles.(ports.NewsSourceStore)
	if !ok {
		return nil, domain.ErrUnsupportedStore
	}
	return store.ListNewsSources(ctx, userID)
}

// SaveNewsSource creates or updates a feed for the user.
func (e *Engine) SaveNewsSource(ctx context.Context, src *domain.NewsSource) (*domain.NewsSource, error) {
	store, ok := e.articles.(ports.NewsSourceStore)
	if !ok {
		return nil, domain.ErrUnsupportedStore
	}
	if src.UserID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return store.SaveNewsSource(ctx, src)
}

// Transcriptions lists the user's audio transcription jobs. The article
// store must implement ports.TranscriptionStore.
func (e *Engine) Transcriptions(ctx context.Context, userID string) ([]domain.Transcription, error) {
	store, ok := e.articles.(ports.TranscriptionStore)
	if !ok {
		return nil, domain.ErrUnsupportedStore
	}
	return store.ListTranscriptions(ctx, userID)
}

// CreateTranscription registers an audio-to-text job row in the
// pending status.
func (e *Engine) CreateTranscription(ctx context.Context, tr *domain.Transcription) (*domain.Transcription, error) {
	store, ok := e.articles.(ports.TranscriptionStore)
	if !ok {
		return nil, domain.ErrUnsupportedStore
	}
	if tr.UserID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if tr.Status == "" {
		tr.Status = domain.TranscriptionPending
	}
	return store.InsertTranscription(ctx, tr)
}
