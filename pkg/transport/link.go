package transport

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// Transport errors.
var (
	ErrLinkClosed = errors.New("transport: link closed")
	ErrAckTimeout = errors.New("transport: ack timeout")
	ErrQueueFull  = errors.New("transport: event queue full")
)

// Observer receives transport activity. *metrics.Collector implements it.
type Observer interface {
	ObserveSession(open bool)
	ObserveFrame(direction string, ft protocol.FrameType, bytes int)
}

type nopObserver struct{}

func (nopObserver) ObserveSession(bool)                          {}
func (nopObserver) ObserveFrame(string, protocol.FrameType, int) {}

// LinkConfig configures a Link.
type LinkConfig struct {
	// ReadTimeout bounds the silence tolerated from the peer. Default: 60s.
	ReadTimeout time.Duration

	// WriteTimeout bounds each frame write. Default: 10s.
	WriteTimeout time.Duration

	// PingInterval is how often Heartbeat pings the peer. Default: 20s.
	PingInterval time.Duration

	// MaxMessageSize bounds incoming messages. Default: 4MB.
	MaxMessageSize int64

	// Logger. Default: slog.Default().
	Logger *slog.Logger

	// Observer is notified of every frame.
	Observer Observer
}

// DefaultLinkConfig returns the default link configuration.
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   20 * time.Second,
		MaxMessageSize: 4 * 1024 * 1024,
		Logger:         slog.Default(),
		Observer:       nopObserver{},
	}
}

func (c LinkConfig) withDefaults() LinkConfig {
	def := DefaultLinkConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	if c.Observer == nil {
		c.Observer = def.Observer
	}
	return c
}

// Link is a framed WebSocket connection. Writes are serialized; reads happen
// on the goroutine running ReadLoop.
type Link struct {
	conn   *websocket.Conn
	cfg    LinkConfig
	mu     sync.Mutex
	closed atomic.Bool
	done   chan struct{}
}

// NewLink wraps conn.
func NewLink(conn *websocket.Conn, cfg LinkConfig) *Link {
	cfg = cfg.withDefaults()
	conn.SetReadLimit(cfg.MaxMessageSize)
	return &Link{conn: conn, cfg: cfg, done: make(chan struct{})}
}

// Done is closed when the link closes.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

// WriteFrame sends one frame.
func (l *Link) WriteFrame(f *protocol.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed.Load() {
		return ErrLinkClosed
	}
	data := f.Encode()
	l.conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout))
	if err := l.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	l.cfg.Observer.ObserveFrame("out", f.Type, len(f.Payload))
	return nil
}

// SendControl sends a control frame.
func (l *Link) SendControl(ct protocol.ControlType, payload any) error {
	return l.WriteFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ct, payload)))
}

// SendError sends an error frame.
func (l *Link) SendError(code protocol.ErrorCode, message string) error {
	return l.WriteFrame(protocol.NewFrame(protocol.FrameError,
		protocol.EncodeErrorMessage(protocol.NewError(code, message))))
}

// ReadLoop reads frames and passes them to handle until the connection
// fails, the peer sends Close, or handle returns an error. Pings are
// answered here and not passed on. The link is closed on return.
func (l *Link) ReadLoop(handle func(*protocol.Frame) error) error {
	defer l.Close(protocol.CloseNormal, "")

	for {
		l.conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout))
		_, msg, err := l.conn.ReadMessage()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			l.cfg.Logger.Warn("frame decode error", "error", err)
			_ = l.SendError(protocol.CodeInvalidFrame, err.Error())
			continue
		}
		l.cfg.Observer.ObserveFrame("in", frame.Type, len(frame.Payload))

		if frame.Type == protocol.FrameControl {
			ct, data, err := protocol.DecodeControl(frame.Payload)
			if err != nil {
				l.cfg.Logger.Warn("control decode error", "error", err)
				continue
			}
			switch ct {
			case protocol.ControlPing:
				if pp, ok := data.(*protocol.PingPong); ok {
					_ = l.SendControl(protocol.ControlPong, &protocol.PingPong{Timestamp: pp.Timestamp})
				}
				continue
			case protocol.ControlPong:
				continue
			case protocol.ControlClose:
				if cm, ok := data.(*protocol.CloseMessage); ok {
					l.cfg.Logger.Info("peer closing", "reason", cm.Reason, "message", cm.Message)
				}
				return nil
			}
		}

		if err := handle(frame); err != nil {
			return err
		}
	}
}

// Heartbeat pings the peer every PingInterval until the link closes.
func (l *Link) Heartbeat() {
	ticker := time.NewTicker(l.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			ping := &protocol.PingPong{Timestamp: uint64(now.UnixMilli())}
			if err := l.SendControl(protocol.ControlPing, ping); err != nil {
				l.cfg.Logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// Close sends a Close control frame and closes the connection. It is safe to
// call more than once.
func (l *Link) Close(reason protocol.CloseReason, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed.Swap(true) {
		return nil
	}
	close(l.done)

	frame := protocol.NewFrame(protocol.FrameControl,
		protocol.EncodeControl(protocol.ControlClose, &protocol.CloseMessage{Reason: reason, Message: message}))
	l.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = l.conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
	_ = l.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return l.conn.Close()
}
