package interp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/editstream/pkg/protocol"
	"github.com/vango-dev/editstream/pkg/registry"
)

// Interpreter applies edit streams to a Host.
//
// At most one Apply runs at a time; concurrent callers are serialized. The
// registry may be shared with readers such as an event bridge.
type Interpreter[H comparable] struct {
	mu    sync.Mutex
	host  Host[H]
	reg   *registry.Registry[H]
	stack []H
	roots map[protocol.NodeID]struct{}
	cfg   config
}

// New creates an Interpreter. A nil reg creates a private registry.
func New[H comparable](host Host[H], reg *registry.Registry[H], opts ...Option) *Interpreter[H] {
	if reg == nil {
		reg = registry.New[H]()
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Interpreter[H]{
		host:  host,
		reg:   reg,
		roots: make(map[protocol.NodeID]struct{}),
		cfg:   cfg,
	}
}

// Mount registers a renderer-owned node, typically the document root, under
// id. Mounted nodes are never released by ReplaceWith, Remove, or Reset.
func (in *Interpreter[H]) Mount(id protocol.NodeID, h H) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.reg.Register(id, h); err != nil {
		return err
	}
	in.roots[id] = struct{}{}
	return nil
}

// Registry returns the registry the interpreter writes to.
func (in *Interpreter[H]) Registry() *registry.Registry[H] {
	return in.reg
}

// Depth returns the current operand stack depth. It is zero between
// well-formed streams.
func (in *Interpreter[H]) Depth() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.stack)
}

// Apply interprets s. ctx only carries trace context: once started, an
// apply runs to completion or failure and never observes cancellation.
func (in *Interpreter[H]) Apply(ctx context.Context, s protocol.EditStream) (err error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	_, span := in.cfg.tracer.Start(ctx, "interp.Apply",
		trace.WithAttributes(
			attribute.Int64("editstream.seq", int64(s.Seq())),
			attribute.Int("editstream.edits", s.Len()),
		),
	)
	start := in.cfg.clock()
	base := len(in.stack)

	defer func() {
		elapsed := in.cfg.clock().Sub(start)
		if err != nil {
			clear(in.stack[base:])
			in.stack = in.stack[:base]
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			in.cfg.logger.Warn("apply failed",
				"seq", s.Seq(),
				"edits", s.Len(),
				"error", err)
		} else {
			span.SetStatus(codes.Ok, "")
			in.cfg.logger.Debug("applied stream",
				"seq", s.Seq(),
				"edits", s.Len(),
				"duration", elapsed)
		}
		in.cfg.observer.ObserveApply(s.Len(), elapsed, err)
		span.End()
	}()

	for i := 0; i < s.Len(); i++ {
		e := s.At(i)
		if stepErr := in.step(base, e); stepErr != nil {
			return renderError(s.Seq(), i, e, stepErr)
		}
		if in.cfg.budget > 0 && in.cfg.clock().Sub(start) > in.cfg.budget {
			return &protocol.RenderError{Seq: s.Seq(), Index: i, Op: e.Op, Err: protocol.ErrBudgetExceeded}
		}
	}
	if depth := len(in.stack) - base; depth != 0 {
		return &protocol.RenderError{
			Seq:   s.Seq(),
			Index: s.Len(),
			Err:   fmt.Errorf("%w: trailing depth %d", protocol.ErrMalformedStream, depth),
		}
	}
	return nil
}

func renderError(seq uint64, i int, e protocol.Edit, err error) *protocol.RenderError {
	re := &protocol.RenderError{Seq: seq, Index: i, Op: e.Op, Err: err}
	if _, ok := e.References(); ok || e.Introduces() {
		re.ID = e.ID
	}
	return re
}

func (in *Interpreter[H]) step(base int, e protocol.Edit) error {
	if !e.Op.Valid() {
		return fmt.Errorf("%w: unknown op 0x%02x", protocol.ErrMalformedStream, uint8(e.Op))
	}
	_, pushes, needs := e.StackEffect()
	if depth := len(in.stack) - base; depth < needs {
		return fmt.Errorf("%w: stack underflow: depth %d, need %d", protocol.ErrMalformedStream, depth, needs)
	}
	if pushes > 0 && len(in.stack) >= protocol.MaxStackDepth {
		return fmt.Errorf("%w: stack depth exceeds %d", protocol.ErrMalformedStream, protocol.MaxStackDepth)
	}

	switch e.Op {
	case protocol.OpPushRoot:
		h, err := in.reg.Lookup(e.ID)
		if err != nil {
			return err
		}
		in.stack = append(in.stack, h)
		return nil

	case protocol.OpCreateElement:
		h, err := in.host.CreateElement(e.Tag)
		return in.create(e.ID, h, err)

	case protocol.OpCreateElementNs:
		h, err := in.host.CreateElementNS(e.Tag, e.NS)
		return in.create(e.ID, h, err)

	case protocol.OpCreateTextNode:
		h, err := in.host.CreateText(e.Text)
		return in.create(e.ID, h, err)

	case protocol.OpCreatePlaceholder:
		h, err := in.host.CreatePlaceholder()
		return in.create(e.ID, h, err)

	case protocol.OpAppendChildren:
		children := in.popN(int(e.Count))
		parent := in.top()
		for _, c := range children {
			if err := in.host.AppendChild(parent, c); err != nil {
				return err
			}
		}
		return nil

	case protocol.OpReplaceWith:
		nodes := in.popN(int(e.Count))
		old := in.popN(1)[0]
		if in.encloses(nodes, old) {
			return fmt.Errorf("%w: replaced node is among its replacements", protocol.ErrMalformedStream)
		}
		if err := in.host.ReplaceWith(old, nodes); err != nil {
			return err
		}
		in.releaseSubtree(old)
		return nil

	case protocol.OpInsertAfter:
		nodes := in.popN(int(e.Count))
		return in.host.InsertAfter(in.top(), nodes)

	case protocol.OpInsertBefore:
		nodes := in.popN(int(e.Count))
		return in.host.InsertBefore(in.top(), nodes)

	case protocol.OpRemove:
		h := in.popN(1)[0]
		if err := in.host.Detach(h); err != nil {
			return err
		}
		in.releaseSubtree(h)
		return nil

	case protocol.OpSetText:
		return in.host.SetText(in.top(), e.Text)

	case protocol.OpSetAttribute:
		ns := ""
		if e.HasNS {
			ns = e.NS
		}
		return in.host.SetAttribute(in.top(), e.Name, e.Value, ns)

	case protocol.OpRemoveAttribute:
		return in.host.RemoveAttribute(in.top(), e.Name)

	case protocol.OpNewEventListener:
		h, err := in.listenerTarget(e.ID)
		if err != nil {
			return err
		}
		return in.host.AddListener(h, e.EventKind, e.Handler)

	case protocol.OpRemoveEventListener:
		h, err := in.listenerTarget(e.ID)
		if err != nil {
			return err
		}
		return in.host.RemoveListener(h, e.EventKind)

	case protocol.OpPop:
		in.popN(int(e.Count))
		return nil
	}
	return nil
}

func (in *Interpreter[H]) create(id protocol.NodeID, h H, err error) error {
	if err != nil {
		return err
	}
	if err := in.reg.Register(id, h); err != nil {
		if f, ok := in.host.(Forgetter[H]); ok {
			f.Forget(h)
		}
		return err
	}
	in.stack = append(in.stack, h)
	return nil
}

// listenerTarget resolves id and checks it names the top of stack.
func (in *Interpreter[H]) listenerTarget(id protocol.NodeID) (H, error) {
	h, err := in.reg.Lookup(id)
	if err != nil {
		return h, err
	}
	if h != in.top() {
		return h, fmt.Errorf("%w: listener target %d is not on top of stack", protocol.ErrMalformedStream, id)
	}
	return h, nil
}

func (in *Interpreter[H]) top() H {
	return in.stack[len(in.stack)-1]
}

// popN removes the top n handles and returns them bottom first.
func (in *Interpreter[H]) popN(n int) []H {
	i := len(in.stack) - n
	out := slices.Clone(in.stack[i:])
	clear(in.stack[i:])
	in.stack = in.stack[:i]
	return out
}

// encloses reports whether h is one of nodes or inside one of their
// subtrees. Such a replacement would leave h attached after its ids are
// released.
func (in *Interpreter[H]) encloses(nodes []H, h H) bool {
	found := false
	for _, n := range nodes {
		in.host.Walk(n, func(c H) {
			if c == h {
				found = true
			}
		})
		if found {
			return true
		}
	}
	return false
}

// releaseSubtree releases every non-mounted id under h, h included.
func (in *Interpreter[H]) releaseSubtree(h H) {
	var ids []protocol.NodeID
	in.host.Walk(h, func(n H) {
		if id, ok := in.reg.Resolve(n); ok {
			if _, root := in.roots[id]; !root {
				ids = append(ids, id)
			}
		}
	})
	for _, id := range ids {
		_ = in.reg.Release(id)
	}
	if f, ok := in.host.(Forgetter[H]); ok {
		f.Forget(h)
	}
}

// Reset detaches and releases every node the interpreter created and clears
// the operand stack, leaving only mounted nodes. A renderer calls it after a
// failed batch, before applying a rebuild stream.
func (in *Interpreter[H]) Reset(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	clear(in.stack)
	in.stack = in.stack[:0]

	var handles []H
	var errs []error
	for _, id := range in.reg.IDs() {
		if _, root := in.roots[id]; root {
			continue
		}
		h, err := in.reg.Lookup(id)
		if err != nil {
			continue
		}
		if err := in.host.Detach(h); err != nil {
			errs = append(errs, fmt.Errorf("detach %d: %w", id, err))
		}
		_ = in.reg.Release(id)
		handles = append(handles, h)
	}

	if f, ok := in.host.(Forgetter[H]); ok {
		for _, h := range handles {
			f.Forget(h)
		}
	}

	in.cfg.logger.Debug("interpreter reset", "released", len(handles))
	return errors.Join(errs...)
}
