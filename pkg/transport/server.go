package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/editstream/pkg/journal"
	"github.com/vango-dev/editstream/pkg/protocol"
	"github.com/vango-dev/editstream/pkg/scheduler"
)

// ModelFactory creates the model for a new session.
type ModelFactory func(sessionID string) (scheduler.Model, error)

// TaskPoster is implemented by models that accept tasks from outside the
// scheduler loop. The server's task endpoint uses it.
type TaskPoster interface {
	Post(t scheduler.Task) bool
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Link configures every session's connection.
	Link LinkConfig

	// Codec encodes outgoing streams. Default: protocol.CodecBinary.
	Codec protocol.Codec

	// AckTimeout bounds how long a session waits for the renderer to
	// acknowledge a stream. Default: 10s.
	AckTimeout time.Duration

	// EventBuffer is the per-session event queue size. Default: 64.
	EventBuffer int

	// HistoryCapacity bounds each session's journal. Default:
	// journal.DefaultCapacity.
	HistoryCapacity int

	// Sink archives every applied stream when set.
	Sink journal.Sink

	// CheckOrigin is passed to the WebSocket upgrader.
	CheckOrigin func(*http.Request) bool

	// SchedulerObserver is attached to every session's scheduler.
	SchedulerObserver scheduler.Observer

	// Gatherer backs /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Logger. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Link:        DefaultLinkConfig(),
		Codec:       protocol.CodecBinary,
		AckTimeout:  10 * time.Second,
		EventBuffer: 64,
		Gatherer:    prometheus.DefaultGatherer,
		Logger:      slog.Default(),
	}
}

// Session is one connected renderer.
type Session struct {
	ID        string
	CreatedAt time.Time

	link     *Link
	renderer *RemoteRenderer
	sched    *scheduler.Scheduler
	journal  *journal.Journal
	model    scheduler.Model
	events   chan protocol.Event
	logger   *slog.Logger
}

// SessionInfo is the JSON view of a session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	State     string    `json:"state"`
	LatestSeq uint64    `json:"latest_seq"`
}

// JournalEntry is the JSON view of a journal entry.
type JournalEntry struct {
	Seq       uint64    `json:"seq"`
	Edits     int       `json:"edits"`
	Bytes     int       `json:"bytes"`
	AppliedAt time.Time `json:"applied_at"`
}

// Server accepts renderer connections and runs one model per connection.
type Server struct {
	cfg      ServerConfig
	factory  ModelFactory
	upgrader websocket.Upgrader
	router   chi.Router

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewServer creates a server.
func NewServer(factory ModelFactory, cfg ServerConfig) *Server {
	def := DefaultServerConfig()
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = def.AckTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = def.Gatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.Link.Logger == nil {
		cfg.Link.Logger = cfg.Logger
	}
	cfg.Link = cfg.Link.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		factory:  factory,
		upgrader: websocket.Upgrader{CheckOrigin: cfg.CheckOrigin},
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/ws", s.HandleWebSocket)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleSessions)
		r.Get("/{id}/journal", s.handleJournal)
		r.Post("/{id}/tasks/{name}", s.handleTask)
		r.Post("/{id}/rebuild", s.handleRebuild)
	})
	s.router = r
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Session returns a connected session.
func (s *Server) Session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Sessions returns the connected sessions ordered by id, which is also
// creation order.
func (s *Server) Sessions() []SessionInfo {
	s.mu.RLock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown closes every session and waits for their loops to stop or ctx
// to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.RLock()
	for _, sess := range s.sessions {
		_ = sess.link.Close(protocol.CloseServerShutdown, "")
	}
	s.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleWebSocket upgrades the request and runs a session until the
// connection ends.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.cfg.Logger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := ulid.Make().String()
	logger := s.cfg.Logger.With("session", id)
	linkCfg := s.cfg.Link
	linkCfg.Logger = logger
	link := NewLink(conn, linkCfg)

	model, err := s.factory(id)
	if err != nil {
		logger.Error("model factory failed", "error", err)
		_ = link.SendError(protocol.CodeInternal, "model unavailable")
		_ = link.Close(protocol.CloseError, err.Error())
		return
	}

	sess := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		link:      link,
		renderer:  NewRemoteRenderer(link, s.cfg.Codec, s.cfg.AckTimeout),
		journal: journal.New(journal.Config{
			Session:  id,
			Capacity: s.cfg.HistoryCapacity,
			Codec:    s.cfg.Codec,
			Sink:     s.cfg.Sink,
			Logger:   logger,
		}),
		model:  model,
		events: make(chan protocol.Event, s.cfg.EventBuffer),
		logger: logger,
	}
	opts := []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithJournal(sess.journal),
	}
	if s.cfg.SchedulerObserver != nil {
		opts = append(opts, scheduler.WithObserver(s.cfg.SchedulerObserver))
	}
	sess.sched = scheduler.New(model, sess.renderer, opts...)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.wg.Add(1)
	s.cfg.Link.Observer.ObserveSession(true)
	logger.Info("session started", "remote", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		s.cfg.Link.Observer.ObserveSession(false)
		s.wg.Done()
		logger.Info("session closed")
	}()

	ctx, cancel := context.WithCancel(s.ctx)
	runDone := make(chan error, 1)
	go func() {
		runDone <- sess.sched.Run(ctx, sess.events)
	}()
	go link.Heartbeat()

	if err := link.ReadLoop(sess.handleFrame); err != nil {
		logger.Warn("read loop ended", "error", err)
	}
	cancel()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("scheduler stopped", "error", err)
	}
}

func (sess *Session) info() SessionInfo {
	return SessionInfo{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		State:     sess.sched.State().String(),
		LatestSeq: sess.journal.History().Latest(),
	}
}

// Journal returns the session's journal.
func (sess *Session) Journal() *journal.Journal {
	return sess.journal
}

// Scheduler returns the session's scheduler.
func (sess *Session) Scheduler() *scheduler.Scheduler {
	return sess.sched
}

func (sess *Session) handleFrame(f *protocol.Frame) error {
	switch f.Type {
	case protocol.FrameAck:
		ack, err := protocol.DecodeAck(f.Payload)
		if err != nil {
			sess.logger.Warn("ack decode error", "error", err)
			return nil
		}
		if !sess.renderer.HandleAck(ack) {
			sess.logger.Debug("unexpected ack", "seq", ack.Seq)
		}

	case protocol.FrameEvent:
		ev, err := protocol.CodecFromFlags(f.Flags).DecodeEvent(f.Payload)
		if err != nil {
			sess.logger.Warn("event decode error", "error", err)
			_ = sess.link.SendError(protocol.CodeInvalidFrame, "invalid event")
			return nil
		}
		select {
		case sess.events <- *ev:
		default:
			sess.logger.Warn("event dropped", "seq", ev.Seq, "error", ErrQueueFull)
			_ = sess.link.SendError(protocol.CodeInternal, ErrQueueFull.Error())
		}

	case protocol.FrameControl:
		ct, data, err := protocol.DecodeControl(f.Payload)
		if err != nil {
			return nil
		}
		if ct == protocol.ControlRebuildRequest {
			if rr, ok := data.(*protocol.RebuildRequest); ok {
				sess.logger.Info("rebuild requested", "failed_seq", rr.FailedSeq, "code", rr.Code)
			}
			sess.sched.RequestRebuild()
		}

	case protocol.FrameError:
		if em, err := protocol.DecodeErrorMessage(f.Payload); err == nil {
			sess.logger.Warn("renderer error", "code", em.Code, "message", em.Message)
		}

	default:
		sess.logger.Warn("unknown frame type", "type", f.Type)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Sessions())
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.Session(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	entries := sess.journal.History().Entries()
	out := make([]JournalEntry, len(entries))
	for i, e := range entries {
		out[i] = JournalEntry{Seq: e.Seq, Edits: e.Edits, Bytes: len(e.Data), AppliedAt: e.AppliedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.Session(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	poster, ok := sess.model.(TaskPoster)
	if !ok {
		http.Error(w, "model does not accept tasks", http.StatusNotImplemented)
		return
	}
	if !poster.Post(scheduler.Task{Name: chi.URLParam(r, "name")}) {
		http.Error(w, "task queue full", http.StatusTooManyRequests)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.Session(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	sess.sched.RequestRebuild()
	w.WriteHeader(http.StatusAccepted)
}
