// Package demo holds the counter model served by `editstream serve`.
package demo

import (
	"context"
	"fmt"
	"sync"

	"github.com/vango-dev/editstream/pkg/emit"
	"github.com/vango-dev/editstream/pkg/protocol"
	"github.com/vango-dev/editstream/pkg/scheduler"
)

// Handler ids the counter registers for its buttons.
const (
	HandlerIncrement protocol.HandlerID = 1
	HandlerDecrement protocol.HandlerID = 2
)

// Tasks the counter accepts through Post.
const (
	TaskReset     = "reset"
	TaskIncrement = "increment"
)

// Counter renders
//
//	<div class="counter"><h1>"Count: N"</h1><button>"-"</button><button>"+"</button></div>
//
// under root 0 and updates the heading on clicks.
type Counter struct {
	mu    sync.Mutex
	ids   *emit.IDGen
	enc   *emit.Encoder
	tasks chan scheduler.Task

	count  int
	textID protocol.NodeID
	incID  protocol.NodeID
	decID  protocol.NodeID
}

// NewCounter creates a counter starting at start.
func NewCounter(start int) *Counter {
	return &Counter{
		ids:   emit.NewIDGen(1),
		enc:   emit.NewEncoder(emit.WithCatalog(emit.DefaultCatalog())),
		tasks: make(chan scheduler.Task, 16),
		count: start,
	}
}

// Count returns the current value.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Buttons returns the ids of the decrement and increment buttons as of the
// last rebuild.
func (c *Counter) Buttons() (dec, inc protocol.NodeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decID, c.incID
}

// Post queues an internal task. It reports false when the queue is full.
func (c *Counter) Post(t scheduler.Task) bool {
	select {
	case c.tasks <- t:
		return true
	default:
		return false
	}
}

func (c *Counter) Internal() <-chan scheduler.Task {
	return c.tasks
}

func (c *Counter) HandleEvent(_ context.Context, ev protocol.Event) (bool, error) {
	if ev.Kind != protocol.EventClick {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Target {
	case c.incID:
		c.count++
	case c.decID:
		c.count--
	default:
		return false, nil
	}
	return true, nil
}

func (c *Counter) HandleTask(_ context.Context, t scheduler.Task) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch t.Name {
	case TaskReset:
		c.count = 0
	case TaskIncrement:
		c.count++
	default:
		return false, fmt.Errorf("demo: unknown task %q", t.Name)
	}
	return true, nil
}

func (c *Counter) label() string {
	return fmt.Sprintf("Count: %d", c.count)
}

func (c *Counter) Diff(ctx context.Context) (protocol.EditStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return protocol.EditStream{}, err
	}
	c.enc.PushRoot(c.textID)
	c.enc.SetText(c.label())
	c.enc.Pop(1)
	return c.enc.FlushChecked()
}

func (c *Counter) Rebuild(context.Context) (protocol.EditStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.build()
	if err != nil {
		c.enc.Discard()
		return protocol.EditStream{}, err
	}
	return s, nil
}

func (c *Counter) build() (protocol.EditStream, error) {
	e := c.enc
	div, h1 := c.ids.Next(), c.ids.Next()
	c.textID = c.ids.Next()

	e.PushRoot(0)
	if err := e.CreateElement("div", div); err != nil {
		return protocol.EditStream{}, err
	}
	if err := e.SetAttribute("class", "counter"); err != nil {
		return protocol.EditStream{}, err
	}
	if err := e.CreateElement("h1", h1); err != nil {
		return protocol.EditStream{}, err
	}
	e.CreateText(c.label(), c.textID)
	e.AppendChildren(1)

	button := func(label string, handler protocol.HandlerID) (protocol.NodeID, error) {
		id := c.ids.Next()
		if err := e.CreateElement("button", id); err != nil {
			return 0, err
		}
		if err := e.SetAttribute("type", "button"); err != nil {
			return 0, err
		}
		e.Listen(protocol.EventClick, id, handler)
		e.CreateText(label, c.ids.Next())
		e.AppendChildren(1)
		return id, nil
	}
	var err error
	if c.decID, err = button("-", HandlerDecrement); err != nil {
		return protocol.EditStream{}, err
	}
	if c.incID, err = button("+", HandlerIncrement); err != nil {
		return protocol.EditStream{}, err
	}

	e.AppendChildren(3)
	e.AppendChildren(1)
	e.Pop(1)
	return e.FlushChecked()
}
