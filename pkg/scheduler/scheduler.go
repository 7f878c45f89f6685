package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// Scheduler errors.
var (
	ErrRunning   = errors.New("scheduler: already running")
	ErrNoRebuild = errors.New("scheduler: renderer cannot be reset or model cannot rebuild")
	ErrPanic     = errors.New("scheduler: model panicked")
)

// Task is a unit of model-internal work: a timer firing, an async result.
type Task struct {
	Name    string
	Payload any
}

// Model produces edit streams in response to input.
type Model interface {
	// Internal returns the model's own work source. It may return nil.
	Internal() <-chan Task

	// HandleEvent and HandleTask update model state. dirty reports that
	// the rendered output is stale and a diff is needed.
	HandleEvent(ctx context.Context, ev protocol.Event) (dirty bool, err error)
	HandleTask(ctx context.Context, t Task) (dirty bool, err error)

	// Diff computes the edits that bring the renderer up to date. It runs
	// on its own goroutine, must return promptly once ctx is done, and must
	// not touch renderer state. A cancelled Diff's result is discarded.
	Diff(ctx context.Context) (protocol.EditStream, error)
}

// Rebuilder is implemented by models that can emit their whole tree from
// scratch with fresh ids.
type Rebuilder interface {
	Rebuild(ctx context.Context) (protocol.EditStream, error)
}

// Renderer applies edit streams. *interp.Interpreter implements it.
type Renderer interface {
	Apply(ctx context.Context, s protocol.EditStream) error
}

// Resetter is implemented by renderers that can drop everything but their
// mounted roots.
type Resetter interface {
	Reset(ctx context.Context) error
}

type result struct {
	stream protocol.EditStream
	err    error
}

type generation struct {
	cancel context.CancelFunc
	done   chan result
}

// Scheduler runs the event/diff/apply loop for one model.
type Scheduler struct {
	model    Model
	renderer Renderer
	cfg      config

	state   stateBox
	rebuild chan struct{}
	wg      sync.WaitGroup
}

// New creates a scheduler.
func New(model Model, renderer Renderer, opts ...Option) *Scheduler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scheduler{
		model:    model,
		renderer: renderer,
		cfg:      cfg,
		rebuild:  make(chan struct{}, 1),
	}
}

// State returns the current loop state.
func (s *Scheduler) State() State {
	return s.state.load()
}

// RequestRebuild asks the loop to reset the renderer and apply a full
// rebuild. Requests made before the loop gets to them coalesce.
func (s *Scheduler) RequestRebuild() {
	select {
	case s.rebuild <- struct{}{}:
	default:
	}
}

// Run drives the loop until events is closed (returning nil) or ctx is done
// (returning ctx.Err()). A Scheduler runs once.
func (s *Scheduler) Run(ctx context.Context, events <-chan protocol.Event) error {
	if !s.state.transition(StateIdle, StateAwaitingEvent) {
		return ErrRunning
	}
	defer s.state.store(StateStopped)

	internal := s.model.Internal()
	var gen *generation
	dirty := false

	defer func() {
		if gen != nil {
			s.abandon(gen)
		}
		s.wg.Wait()
	}()

	if s.cfg.mountOnStart {
		if _, ok := s.model.(Rebuilder); ok {
			if err := s.rebuildNow(ctx); err != nil {
				s.cfg.logger.Error("initial mount failed", "error", err)
			}
		}
	}

	for {
		if gen == nil && dirty {
			gen = s.generate(ctx)
			dirty = false
		}
		var done chan result
		if gen != nil {
			done = gen.done
		} else {
			s.state.store(StateAwaitingEvent)
		}

		// The same first-ready, no-priority race as Race, widened to the
		// rebuild and generation channels.
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if gen != nil {
				s.abandon(gen)
				gen = nil
				dirty = true
			}
			if s.deliverEvent(ctx, ev) {
				dirty = true
			}

		case t, ok := <-internal:
			if !ok {
				internal = nil
				continue
			}
			if gen != nil {
				s.abandon(gen)
				gen = nil
				dirty = true
			}
			if s.deliverTask(ctx, t) {
				dirty = true
			}

		case <-s.rebuild:
			if gen != nil {
				s.abandon(gen)
				gen = nil
			}
			dirty = false
			if err := s.rebuildNow(ctx); err != nil {
				s.cfg.logger.Error("rebuild failed", "error", err)
			}

		case r := <-done:
			gen = nil
			if r.err != nil {
				if ctx.Err() == nil {
					s.cfg.logger.Error("diff failed", "error", r.err)
				}
				continue
			}
			s.applyStream(ctx, r.stream)
		}
	}
}

// generate starts Diff on its own goroutine.
func (s *Scheduler) generate(ctx context.Context) *generation {
	gctx, cancel := context.WithCancel(ctx)
	g := &generation{cancel: cancel, done: make(chan result, 1)}

	s.state.store(StateGenerating)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var r result
		defer func() {
			if rec := recover(); rec != nil {
				r = result{err: s.panicked("diff", rec)}
			}
			g.done <- r
		}()
		r.stream, r.err = s.model.Diff(gctx)
	}()
	return g
}

// abandon cancels a generation and waits for it so that a stale Diff never
// overlaps the model handling newer input.
func (s *Scheduler) abandon(g *generation) {
	s.state.store(StateCancelling)
	g.cancel()
	<-g.done
	s.state.store(StateAwaitingEvent)
	s.cfg.observer.ObserveCancel()
	s.cfg.logger.Debug("diff generation cancelled")
}

func (s *Scheduler) deliverEvent(ctx context.Context, ev protocol.Event) (dirty bool) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = s.panicked("event handler", rec)
			}
		}()
		dirty, err = s.model.HandleEvent(ctx, ev)
	}()

	s.cfg.observer.ObserveDelivery("event", err)
	if err != nil {
		s.cfg.logger.Warn("event handler failed",
			"seq", ev.Seq, "kind", ev.Kind, "target", ev.Target, "error", err)
	}
	return dirty
}

func (s *Scheduler) deliverTask(ctx context.Context, t Task) (dirty bool) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = s.panicked("task handler", rec)
			}
		}()
		dirty, err = s.model.HandleTask(ctx, t)
	}()

	s.cfg.observer.ObserveDelivery("task", err)
	if err != nil {
		s.cfg.logger.Warn("task handler failed", "task", t.Name, "error", err)
	}
	return dirty
}

func (s *Scheduler) panicked(where string, rec any) error {
	s.cfg.logger.Error("model panic", "in", where, "panic", rec, "stack", string(debug.Stack()))
	return fmt.Errorf("%w in %s: %v", ErrPanic, where, rec)
}

// applyStream applies a generated stream. A failed apply falls back to a
// full rebuild when both sides support it.
func (s *Scheduler) applyStream(ctx context.Context, stream protocol.EditStream) {
	if stream.Empty() {
		return
	}
	err := s.apply(ctx, stream, false)
	if err == nil {
		return
	}

	s.cfg.logger.Warn("apply failed", "seq", stream.Seq(), "error", err)
	if err := s.rebuildNow(ctx); err != nil {
		if errors.Is(err, ErrNoRebuild) {
			return
		}
		s.cfg.logger.Error("rebuild after failed apply failed", "error", err)
	}
}

// rebuildNow resets the renderer and applies a fresh full stream.
func (s *Scheduler) rebuildNow(ctx context.Context) error {
	rb, ok := s.model.(Rebuilder)
	if !ok {
		return ErrNoRebuild
	}
	rs, ok := s.renderer.(Resetter)
	if !ok {
		return ErrNoRebuild
	}

	s.state.store(StateApplying)
	if err := rs.Reset(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	stream, err := rb.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	if stream.Empty() {
		return nil
	}
	return s.apply(ctx, stream, true)
}

// apply runs the renderer to completion. Cancellation of ctx is not
// propagated: a half-applied stream would leave the renderer inconsistent.
func (s *Scheduler) apply(ctx context.Context, stream protocol.EditStream, rebuild bool) error {
	s.state.store(StateApplying)
	actx := context.WithoutCancel(ctx)

	actx, span := s.cfg.tracer.Start(actx, "scheduler.Apply",
		trace.WithAttributes(
			attribute.Int64("editstream.seq", int64(stream.Seq())),
			attribute.Int("editstream.edits", stream.Len()),
			attribute.Bool("editstream.rebuild", rebuild),
		),
	)
	defer span.End()

	start := time.Now()
	err := s.renderer.Apply(actx, stream)
	s.cfg.observer.ObserveCycle(stream.Len(), time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")

	if s.cfg.recorder != nil {
		if err := s.cfg.recorder.Record(actx, stream); err != nil {
			s.cfg.logger.Warn("journal record failed", "seq", stream.Seq(), "error", err)
		}
	}
	return nil
}
