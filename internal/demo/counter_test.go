package demo

import (
	"context"
	"fmt"
	"testing"

	"github.com/vango-dev/editstream/pkg/interp"
	"github.com/vango-dev/editstream/pkg/memdom"
	"github.com/vango-dev/editstream/pkg/protocol"
	"github.com/vango-dev/editstream/pkg/scheduler"
)

const counterTree = `#document
  <div class="counter">
    <h1>
      "Count: %d"
    <button type="button" @click=2>
      "-"
    <button type="button" @click=1>
      "+"
`

func TestCounterRebuildAndDiff(t *testing.T) {
	ctx := context.Background()
	doc := memdom.NewDocument()
	in := interp.New[*memdom.Node](doc, nil)
	if err := in.Mount(0, doc.Root()); err != nil {
		t.Fatal(err)
	}

	c := NewCounter(0)
	s, err := c.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if err := in.Apply(ctx, s); err != nil {
		t.Fatalf("Apply rebuild: %v", err)
	}
	if got, want := doc.String(), fmt.Sprintf(counterTree, 0); got != want {
		t.Errorf("tree:\n%s\nwant:\n%s", got, want)
	}

	dec, inc := c.Buttons()
	steps := []struct {
		target protocol.NodeID
		want   int
	}{
		{inc, 1},
		{inc, 2},
		{dec, 1},
	}
	for _, st := range steps {
		dirty, err := c.HandleEvent(ctx, protocol.Event{Target: st.target, Kind: protocol.EventClick})
		if err != nil || !dirty {
			t.Fatalf("HandleEvent: dirty=%v err=%v", dirty, err)
		}
		s, err := c.Diff(ctx)
		if err != nil {
			t.Fatalf("Diff: %v", err)
		}
		if err := in.Apply(ctx, s); err != nil {
			t.Fatalf("Apply diff: %v", err)
		}
		if got, want := doc.String(), fmt.Sprintf(counterTree, st.want); got != want {
			t.Errorf("tree:\n%s\nwant:\n%s", got, want)
		}
	}
}

func TestCounterIgnoresOtherInput(t *testing.T) {
	c := NewCounter(0)
	if _, err := c.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	dirty, err := c.HandleEvent(context.Background(), protocol.Event{Target: 999, Kind: protocol.EventClick})
	if dirty || err != nil {
		t.Errorf("unknown target: dirty=%v err=%v", dirty, err)
	}
	_, inc := c.Buttons()
	dirty, _ = c.HandleEvent(context.Background(), protocol.Event{Target: inc, Kind: protocol.EventKeyDown})
	if dirty {
		t.Error("keydown marked dirty")
	}
}

func TestCounterTasks(t *testing.T) {
	c := NewCounter(5)
	tests := []struct {
		task    string
		want    int
		wantErr bool
	}{
		{TaskIncrement, 6, false},
		{TaskReset, 0, false},
		{"explode", 0, true},
	}
	for _, tc := range tests {
		_, err := c.HandleTask(context.Background(), scheduler.Task{Name: tc.task})
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v", tc.task, err)
		}
		if c.Count() != tc.want {
			t.Errorf("%s: count = %d, want %d", tc.task, c.Count(), tc.want)
		}
	}
}

func TestCounterPost(t *testing.T) {
	c := NewCounter(0)
	if !c.Post(scheduler.Task{Name: TaskIncrement}) {
		t.Fatal("Post rejected")
	}
	select {
	case task := <-c.Internal():
		if task.Name != TaskIncrement {
			t.Errorf("task = %+v", task)
		}
	default:
		t.Fatal("task not queued")
	}
}
