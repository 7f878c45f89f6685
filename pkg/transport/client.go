package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/editstream/pkg/bridge"
	"github.com/vango-dev/editstream/pkg/interp"
	"github.com/vango-dev/editstream/pkg/protocol"
	"github.com/vango-dev/editstream/pkg/scheduler"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Link configures the connection.
	Link LinkConfig

	// Codec encodes outgoing events. Default: protocol.CodecBinary.
	Codec protocol.Codec

	// Queue configures event translation.
	Queue bridge.QueueConfig

	// Dialer. Default: websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Header is sent with the upgrade request.
	Header http.Header

	// OnApply is called after every incoming stream was applied (err nil)
	// or rejected. It runs on the read goroutine.
	OnApply func(seq uint64, rebuild bool, err error)

	// Logger. Default: slog.Default().
	Logger *slog.Logger
}

// Client is the renderer side of a link. It applies incoming streams with
// an interpreter and sends translated events back.
type Client[H comparable] struct {
	link   *Link
	in     *interp.Interpreter[H]
	bridge *bridge.Bridge[H]
	cfg    ClientConfig

	mu    sync.Mutex
	queue *bridge.Queue[H]
}

// Dial connects to a model server. in must already have its roots mounted.
func Dial[H comparable](ctx context.Context, url string, in *interp.Interpreter[H], b *bridge.Bridge[H], cfg ClientConfig) (*Client[H], error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Link.Logger == nil {
		cfg.Link.Logger = cfg.Logger
	}
	if cfg.Queue.Logger == nil {
		cfg.Queue.Logger = cfg.Logger
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	return &Client[H]{
		link:   NewLink(conn, cfg.Link),
		in:     in,
		bridge: b,
		cfg:    cfg,
	}, nil
}

// Run applies incoming streams and forwards events until the link closes or
// ctx is done.
func (c *Client[H]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	q := bridge.NewQueue(ctx, c.bridge, c.cfg.Queue)
	c.mu.Lock()
	c.queue = q
	c.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.forward(ctx, q)
	}()
	go func() {
		<-ctx.Done()
		_ = c.link.Close(protocol.CloseGoingAway, "")
	}()

	err := c.link.ReadLoop(func(f *protocol.Frame) error {
		return c.handleFrame(ctx, f)
	})
	cancel()
	_ = q.Close()
	wg.Wait()
	return err
}

// Submit translates native and sends the result to the model. Events the
// bridge cannot translate are dropped and reported to the queue observer.
func (c *Client[H]) Submit(ctx context.Context, native bridge.NativeEvent) error {
	c.mu.Lock()
	q := c.queue
	c.mu.Unlock()
	if q == nil {
		return ErrLinkClosed
	}
	return q.Submit(ctx, native)
}

// Close closes the link.
func (c *Client[H]) Close() error {
	return c.link.Close(protocol.CloseNormal, "")
}

// forward sends translated events until the queue drains or the link
// closes.
func (c *Client[H]) forward(ctx context.Context, q *bridge.Queue[H]) {
	for {
		e, err := scheduler.Race(ctx, q.Events(), c.link.Done())
		if err != nil || !e.IsLeft() || !e.Open() {
			return
		}
		ev := e.Left()
		payload, err := c.cfg.Codec.EncodeEvent(&ev)
		if err != nil {
			c.cfg.Logger.Warn("event encode failed", "kind", ev.Kind, "error", err)
			continue
		}
		if err := c.link.WriteFrame(protocol.NewFrameWithFlags(protocol.FrameEvent, c.cfg.Codec.Flags(), payload)); err != nil {
			c.cfg.Logger.Debug("event send failed", "error", err)
			return
		}
	}
}

func (c *Client[H]) handleFrame(ctx context.Context, f *protocol.Frame) error {
	switch f.Type {
	case protocol.FrameEdits:
		c.handleEdits(ctx, f)
	case protocol.FrameError:
		em, err := protocol.DecodeErrorMessage(f.Payload)
		if err != nil {
			return nil
		}
		c.cfg.Logger.Warn("model error", "code", em.Code, "message", em.Message)
		if em.Fatal {
			return em
		}
	default:
		c.cfg.Logger.Debug("ignored frame", "type", f.Type)
	}
	return nil
}

func (c *Client[H]) handleEdits(ctx context.Context, f *protocol.Frame) {
	codec := protocol.CodecFromFlags(f.Flags)
	rebuild := f.Flags.Has(protocol.FlagRebuild)

	s, err := codec.DecodeStream(f.Payload)
	if err != nil {
		c.cfg.Logger.Warn("stream decode failed", "error", err)
		c.rejectUndecodable(codec, f.Payload, err)
		return
	}

	if rebuild {
		if err := c.in.Reset(ctx); err != nil {
			c.cfg.Logger.Warn("reset before rebuild", "error", err)
		}
	}
	err = c.in.Apply(ctx, s)
	if err != nil {
		c.cfg.Logger.Warn("apply failed", "seq", s.Seq(), "error", err)
	}
	if werr := c.link.WriteFrame(protocol.NewFrame(protocol.FrameAck, protocol.EncodeAck(protocol.NewAck(s.Seq(), err)))); werr != nil {
		c.cfg.Logger.Debug("ack send failed", "error", werr)
	}
	if c.cfg.OnApply != nil {
		c.cfg.OnApply(s.Seq(), rebuild, err)
	}
}

// rejectUndecodable acks a stream whose sequence number could still be read
// so the model's Apply fails fast; otherwise it asks for a rebuild.
func (c *Client[H]) rejectUndecodable(codec protocol.Codec, payload []byte, err error) {
	code := protocol.CodeMalformedStream
	if errors.Is(err, protocol.ErrCollectionTooLarge) {
		code = protocol.CodeInvalidFrame
	}
	if codec == protocol.CodecBinary {
		if seq, serr := protocol.NewDecoder(payload).ReadUvarint(); serr == nil {
			ack := &protocol.Ack{Seq: seq, Code: code, Message: err.Error()}
			_ = c.link.WriteFrame(protocol.NewFrame(protocol.FrameAck, protocol.EncodeAck(ack)))
			return
		}
	}
	_ = c.link.SendControl(protocol.ControlRebuildRequest, &protocol.RebuildRequest{Code: code})
}
