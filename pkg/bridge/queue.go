package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("bridge: queue closed")

// Observer receives translation results. err is nil for delivered events.
type Observer interface {
	ObserveTranslate(nativeType string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveTranslate(string, error) {}

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Workers bounds concurrent translations. Default: 4.
	Workers int

	// Buffer is the number of submitted events that may wait for delivery
	// before Submit blocks. Default: 256.
	Buffer int

	// Logger receives dropped-event diagnostics. Default: slog.Default().
	Logger *slog.Logger

	// Observer is notified of every translation result.
	Observer Observer
}

// DefaultQueueConfig returns the default queue configuration.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:  4,
		Buffer:   256,
		Logger:   slog.Default(),
		Observer: nopObserver{},
	}
}

type job struct {
	native NativeEvent
	ev     protocol.Event
	err    error
	ready  chan struct{}
}

// Queue translates native events concurrently and delivers the canonical
// events on a single channel in submission order. Events that fail to
// translate are dropped without holding back later ones.
type Queue[H comparable] struct {
	bridge *Bridge[H]
	cfg    QueueConfig
	ctx    context.Context

	mu      sync.Mutex
	closed  bool
	done    chan struct{} // closed by Close; unblocks waiting submitters
	senders sync.WaitGroup
	g       errgroup.Group
	pending chan *job
	out     chan protocol.Event
	seq     uint64
}

// NewQueue starts a queue over b. Delivery stops when ctx is done.
func NewQueue[H comparable](ctx context.Context, b *Bridge[H], cfg QueueConfig) *Queue[H] {
	def := DefaultQueueConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.Observer == nil {
		cfg.Observer = def.Observer
	}

	q := &Queue[H]{
		bridge:  b,
		cfg:     cfg,
		ctx:     ctx,
		done:    make(chan struct{}),
		pending: make(chan *job, cfg.Buffer),
		out:     make(chan protocol.Event),
	}
	q.g.SetLimit(cfg.Workers)
	go q.deliver()
	return q
}

// Events returns the ordered delivery channel. It is closed after Close once
// every submitted event has been delivered or dropped, or when the queue's
// context is done.
func (q *Queue[H]) Events() <-chan protocol.Event {
	return q.out
}

// Submit schedules native for translation. It blocks while the buffer is
// full, and returns ErrQueueClosed if Close is called meanwhile.
func (q *Queue[H]) Submit(ctx context.Context, native NativeEvent) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	j := &job{native: native, ready: make(chan struct{})}
	select {
	case q.pending <- j:
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return q.ctx.Err()
	}

	q.g.Go(func() error {
		defer close(j.ready)
		j.ev, j.err = q.bridge.Translate(j.native)
		return nil
	})
	return nil
}

// Close stops accepting events, releases blocked submitters and waits for
// in-flight translations. It does not wait for a reader on Events: delivery
// of already accepted events continues there.
func (q *Queue[H]) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	// pending is closed only once no submitter can still send on it.
	q.senders.Wait()
	close(q.pending)
	return q.g.Wait()
}

func (q *Queue[H]) deliver() {
	defer close(q.out)

	for j := range q.pending {
		select {
		case <-j.ready:
		case <-q.ctx.Done():
			return
		}

		typ := ""
		if j.native != nil {
			typ = j.native.Type()
		}
		if j.err != nil {
			q.cfg.Observer.ObserveTranslate(typ, j.err)
			if protocol.Recoverable(j.err) {
				q.cfg.Logger.Debug("event dropped", "type", typ, "error", j.err)
			} else {
				q.cfg.Logger.Warn("event dropped", "type", typ, "error", j.err)
			}
			continue
		}

		q.seq++
		j.ev.Seq = q.seq
		q.cfg.Observer.ObserveTranslate(typ, nil)

		select {
		case q.out <- j.ev:
		case <-q.ctx.Done():
			return
		}
	}
}
