package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// RemoteRenderer implements scheduler.Renderer and scheduler.Resetter over a
// Link. Apply returns once the peer acknowledged the stream.
type RemoteRenderer struct {
	link    *Link
	codec   protocol.Codec
	timeout time.Duration

	mu      sync.Mutex
	waiters map[uint64]chan *protocol.Ack
	rebuild atomic.Bool
}

// NewRemoteRenderer creates a renderer that sends streams over link encoded
// with codec. A zero timeout waits for acks until the link closes.
func NewRemoteRenderer(link *Link, codec protocol.Codec, timeout time.Duration) *RemoteRenderer {
	return &RemoteRenderer{
		link:    link,
		codec:   codec,
		timeout: timeout,
		waiters: make(map[uint64]chan *protocol.Ack),
	}
}

// Apply sends s and waits for its ack. The ack's error code is mapped back
// to the protocol sentinel.
func (r *RemoteRenderer) Apply(ctx context.Context, s protocol.EditStream) error {
	payload, err := r.codec.EncodeStream(s)
	if err != nil {
		return fmt.Errorf("transport: encode stream %d: %w", s.Seq(), err)
	}
	flags := r.codec.Flags()
	if r.rebuild.Swap(false) {
		flags |= protocol.FlagRebuild
	}

	ch := make(chan *protocol.Ack, 1)
	r.mu.Lock()
	r.waiters[s.Seq()] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.waiters, s.Seq())
		r.mu.Unlock()
	}()

	if err := r.link.WriteFrame(protocol.NewFrameWithFlags(protocol.FrameEdits, flags, payload)); err != nil {
		return err
	}

	var timeout <-chan time.Time
	if r.timeout > 0 {
		t := time.NewTimer(r.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case ack := <-ch:
		return ack.Err()
	case <-r.link.Done():
		return ErrLinkClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("%w: stream %d", ErrAckTimeout, s.Seq())
	}
}

// Reset marks the next stream as a rebuild. The peer resets its
// interpreter before applying it.
func (r *RemoteRenderer) Reset(context.Context) error {
	r.rebuild.Store(true)
	return nil
}

// HandleAck delivers an ack to the Apply waiting for it. It reports false
// for acks nobody waits for.
func (r *RemoteRenderer) HandleAck(ack *protocol.Ack) bool {
	r.mu.Lock()
	ch, ok := r.waiters[ack.Seq]
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- ack:
	default:
	}
	return true
}
