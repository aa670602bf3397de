package capture

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/pitabwire/frame/workerpool"

	"github.com/voxpense/voxpense/internal/ledger"
	"github.com/voxpense/voxpense/pkg/command"
	"github.com/voxpense/voxpense/pkg/events"
	"github.com/voxpense/voxpense/pkg/session"
	"github.com/voxpense/voxpense/pkg/transcript"
)

var (
	// ErrNotFound means no capture exists with the given ID.
	ErrNotFound = errors.New("capture not found")
	// ErrClientBusy means the client already has a live capture.
	ErrClientBusy = errors.New("client already has an active capture")
	// ErrCapacity means the manager is at its capture limit.
	ErrCapacity = errors.New("capture capacity reached")
	// ErrClientKeyRequired means the create request named no client.
	ErrClientKeyRequired = errors.New("client key required")
	// ErrUnknownProfile means the requested vocabulary profile is not loaded.
	ErrUnknownProfile = errors.New("unknown vocabulary profile")
)

// ManagerConfig holds capture defaults applied when a create request
// leaves them unset.
type ManagerConfig struct {
	DefaultLanguage string
	Continuous      bool
	InterimResults  bool
	DefaultProfile  string
	MaxCaptures     int
}

// ProfileSource resolves named vocabulary profiles.
type ProfileSource interface {
	Get(name string) (*transcript.Profile, bool)
}

// CreateRequest describes a new capture. Nil booleans inherit the
// manager defaults.
type CreateRequest struct {
	ClientKey      string
	Language       string
	Continuous     *bool
	InterimResults *bool
	Profile        string
}

// View is a read-only snapshot of one capture.
type View struct {
	ID         string
	ClientKey  string
	Profile    string
	State      session.State
	Config     session.Config
	Transcript string
	LastError  *session.RecognitionError
	CreatedAt  time.Time
}

// Capture bundles one client's session with its bridge and pipeline.
type Capture struct {
	ID        string
	ClientKey string
	Profile   string
	CreatedAt time.Time

	continuous bool

	bridge   *BridgeRecognizer
	session  *session.Session
	pipeline *command.Pipeline

	stopRequested atomic.Bool
}

// Manager owns the live captures and wires their sessions into the
// command pipeline and event publisher.
type Manager struct {
	cfg      ManagerConfig
	pub      *events.Publisher
	pool     workerpool.WorkerPool
	profiles ProfileSource
	adder    command.RecordAdder
	fallback *transcript.Parser
	baseCtx  context.Context

	mu       sync.Mutex
	captures map[string]*Capture
	byClient map[string]string
}

// NewManager creates a capture manager. The context outlives individual
// API requests and bounds all background processing.
func NewManager(ctx context.Context, cfg ManagerConfig, pub *events.Publisher, pool workerpool.WorkerPool, profiles ProfileSource, adder command.RecordAdder) (*Manager, error) {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en-US"
	}
	if cfg.MaxCaptures <= 0 {
		cfg.MaxCaptures = 256
	}

	fallback, err := transcript.NewParser(nil)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:      cfg,
		pub:      pub,
		pool:     pool,
		profiles: profiles,
		adder:    adder,
		fallback: fallback,
		baseCtx:  ctx,
		captures: make(map[string]*Capture),
		byClient: make(map[string]string),
	}, nil
}

// resolveParser picks the parser for a capture. An explicitly requested
// profile must exist; the configured default silently falls back to the
// built-in vocabulary when missing.
func (m *Manager) resolveParser(requested string) (*transcript.Parser, string, error) {
	name := requested
	if name == "" {
		name = m.cfg.DefaultProfile
	}
	if name != "" && m.profiles != nil {
		if p, ok := m.profiles.Get(name); ok {
			return p.Parser, name, nil
		}
	}
	if requested != "" {
		return nil, "", ErrUnknownProfile
	}
	return m.fallback, "", nil
}

// Create registers a new capture for a client and starts listening.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (View, error) {
	if req.ClientKey == "" {
		return View{}, ErrClientKeyRequired
	}

	parser, profileName, err := m.resolveParser(req.Profile)
	if err != nil {
		return View{}, err
	}

	scfg := session.Config{
		Language:       req.Language,
		Continuous:     m.cfg.Continuous,
		InterimResults: m.cfg.InterimResults,
	}
	if scfg.Language == "" {
		scfg.Language = m.cfg.DefaultLanguage
	}
	if req.Continuous != nil {
		scfg.Continuous = *req.Continuous
	}
	if req.InterimResults != nil {
		scfg.InterimResults = *req.InterimResults
	}

	m.mu.Lock()
	if _, busy := m.byClient[req.ClientKey]; busy {
		m.mu.Unlock()
		return View{}, ErrClientBusy
	}
	if len(m.captures) >= m.cfg.MaxCaptures {
		m.mu.Unlock()
		return View{}, ErrCapacity
	}

	id := xid.New().String()
	bridge := &BridgeRecognizer{}
	c := &Capture{
		ID:         id,
		ClientKey:  req.ClientKey,
		Profile:    profileName,
		CreatedAt:  time.Now().UTC(),
		continuous: scfg.Continuous,
		bridge:     bridge,
		pipeline:   command.NewPipeline(parser, m.adder, warnSink{m: m, id: id}),
	}
	c.session = session.NewSession(id, bridge, scfg, session.Callbacks{
		Transcript: func(text string) { m.onTranscript(c, text) },
		Failure:    func(rerr session.RecognitionError) { m.onFailure(c, rerr) },
		Transition: func(from, to session.State, cause string) { m.onTransition(c, from, to, cause) },
	})

	m.captures[id] = c
	m.byClient[req.ClientKey] = id
	m.mu.Unlock()

	if err := c.session.Start(); err != nil {
		m.mu.Lock()
		delete(m.captures, id)
		delete(m.byClient, req.ClientKey)
		m.mu.Unlock()
		return View{}, err
	}

	slog.InfoContext(ctx, "capture: created",
		slog.String("capture_id", id),
		slog.String("client_key", req.ClientKey),
		slog.String("language", scfg.Language),
		slog.Bool("continuous", scfg.Continuous),
		slog.String("profile", profileName))

	m.emit(ctx, events.CaptureStarted, id, events.CaptureStartedData{
		ClientKey:  req.ClientKey,
		Language:   scfg.Language,
		Continuous: scfg.Continuous,
		Profile:    profileName,
	})

	return m.viewOf(c), nil
}

// Get returns a snapshot of one capture.
func (m *Manager) Get(id string) (View, error) {
	c, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	return m.viewOf(c), nil
}

// List returns snapshots of all live captures, oldest first.
func (m *Manager) List() []View {
	m.mu.Lock()
	captures := make([]*Capture, 0, len(m.captures))
	for _, c := range m.captures {
		captures = append(captures, c)
	}
	m.mu.Unlock()

	sort.Slice(captures, func(i, j int) bool {
		if captures[i].CreatedAt.Equal(captures[j].CreatedAt) {
			return captures[i].ID < captures[j].ID
		}
		return captures[i].CreatedAt.Before(captures[j].CreatedAt)
	})

	views := make([]View, 0, len(captures))
	for _, c := range captures {
		views = append(views, m.viewOf(c))
	}
	return views
}

// Count returns the number of live captures.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.captures)
}

// Start re-arms a capture for another recognition turn.
func (m *Manager) Start(ctx context.Context, id string) (View, error) {
	c, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	c.stopRequested.Store(false)
	if err := c.session.Start(); err != nil {
		return View{}, err
	}
	return m.viewOf(c), nil
}

// Stop requests a graceful stop. The capture keeps listening until the
// client's end event arrives.
func (m *Manager) Stop(ctx context.Context, id string) (View, error) {
	c, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	c.stopRequested.Store(true)
	if err := c.session.Stop(); err != nil {
		return m.viewOf(c), err
	}
	return m.viewOf(c), nil
}

// Deliver forwards one relayed recognition event to a capture.
func (m *Manager) Deliver(ctx context.Context, id string, ev Event) (View, error) {
	c, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	if err := c.bridge.Deliver(ev); err != nil {
		return m.viewOf(c), err
	}
	return m.viewOf(c), nil
}

// Close disposes a capture and detaches its session.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	c, ok := m.captures[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.captures, id)
	delete(m.byClient, c.ClientKey)
	m.mu.Unlock()

	if err := c.session.Close(); err != nil {
		slog.WarnContext(ctx, "capture: close",
			slog.String("capture_id", id),
			slog.String("error", err.Error()))
	}

	slog.InfoContext(ctx, "capture: closed", slog.String("capture_id", id))
	m.emit(ctx, events.CaptureStopped, id, events.CaptureStoppedData{Reason: "closed"})
	return nil
}

// CloseAll disposes every live capture; used at shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.captures))
	for id := range m.captures {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Close(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			slog.WarnContext(ctx, "capture: close all",
				slog.String("capture_id", id),
				slog.String("error", err.Error()))
		}
	}
}

func (m *Manager) lookup(id string) (*Capture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.captures[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *Manager) viewOf(c *Capture) View {
	state := c.session.State()
	if c.pipeline.Busy() {
		state = session.StateProcessing
	}
	return View{
		ID:         c.ID,
		ClientKey:  c.ClientKey,
		Profile:    c.Profile,
		State:      state,
		Config:     c.session.Config(),
		Transcript: c.session.Transcript(),
		LastError:  c.session.LastError(),
		CreatedAt:  c.CreatedAt,
	}
}

func (m *Manager) emit(ctx context.Context, et events.EventType, captureID string, data interface{}) {
	if m.pub == nil {
		return
	}
	if err := m.pub.Emit(ctx, et, captureID, data); err != nil {
		slog.WarnContext(ctx, "capture: emit failed",
			slog.String("event_type", string(et)),
			slog.String("capture_id", captureID),
			slog.String("error", err.Error()))
	}
}

// onTranscript runs the command pipeline for one finalized utterance.
// Processing uses the manager's base context so it is not abandoned when
// the relaying HTTP request completes.
func (m *Manager) onTranscript(c *Capture, text string) {
	m.emit(m.baseCtx, events.TranscriptFinal, c.ID, events.TranscriptFinalData{Transcript: text})

	task := func() {
		ctx := ledger.WithProvenance(m.baseCtx, ledger.Provenance{
			CaptureID:  c.ID,
			Transcript: text,
		})
		if _, err := c.pipeline.Process(ctx, text); err != nil {
			// Already classified and reported through the warning sink.
			slog.DebugContext(ctx, "capture: utterance not recorded",
				slog.String("capture_id", c.ID),
				slog.String("error", err.Error()))
		}
	}

	if m.pool != nil {
		if err := m.pool.Submit(m.baseCtx, task); err != nil {
			slog.WarnContext(m.baseCtx, "capture: pool full, processing inline",
				slog.String("capture_id", c.ID))
			task()
		}
	} else {
		// Without a pool the work runs inline.
		task()
	}
}

func (m *Manager) onFailure(c *Capture, rerr session.RecognitionError) {
	slog.WarnContext(m.baseCtx, "capture: recognition error",
		slog.String("capture_id", c.ID),
		slog.String("category", string(rerr.Category)),
		slog.String("code", rerr.Code))
	m.emit(m.baseCtx, events.CaptureError, c.ID, events.CaptureErrorData{
		Category: string(rerr.Category),
		Code:     rerr.Code,
	})
}

func (m *Manager) onTransition(c *Capture, from, to session.State, cause string) {
	slog.DebugContext(m.baseCtx, "capture: state changed",
		slog.String("capture_id", c.ID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("cause", cause))

	if to != session.StateIdle {
		return
	}

	switch cause {
	case "end":
		if c.continuous && !c.stopRequested.Load() {
			m.rearm(c)
			return
		}
		m.emit(m.baseCtx, events.CaptureStopped, c.ID, events.CaptureStoppedData{Reason: "end"})
	case "stop_failed":
		m.emit(m.baseCtx, events.CaptureStopped, c.ID, events.CaptureStoppedData{Reason: "stop_failed"})
	}
}

// rearm restarts a continuous capture after a turn ends. It must run
// off the delivery path: the bridge holds its dispatch lock while the
// transition callback fires.
func (m *Manager) rearm(c *Capture) {
	restart := func() {
		if err := c.session.Start(); err != nil {
			if !errors.Is(err, session.ErrClosed) {
				slog.WarnContext(m.baseCtx, "capture: rearm failed",
					slog.String("capture_id", c.ID),
					slog.String("error", err.Error()))
			}
		}
	}
	if m.pool != nil {
		if err := m.pool.Submit(m.baseCtx, restart); err != nil {
			go restart()
		}
	} else {
		go restart()
	}
}

// warnSink reports pipeline warnings as parse.failed events.
type warnSink struct {
	m  *Manager
	id string
}

func (w warnSink) Report(ctx context.Context, category, message string) {
	slog.WarnContext(ctx, "capture: utterance rejected",
		slog.String("capture_id", w.id),
		slog.String("category", category),
		slog.String("message", message))
	w.m.emit(ctx, events.ParseFailed, w.id, events.ParseFailedData{
		Category:   category,
		Message:    message,
		Transcript: ledger.ProvenanceFrom(ctx).Transcript,
	})
}
