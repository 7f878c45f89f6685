package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-dev/editstream/pkg/bridge"
	"github.com/vango-dev/editstream/pkg/emit"
	"github.com/vango-dev/editstream/pkg/interp"
	"github.com/vango-dev/editstream/pkg/memdom"
	"github.com/vango-dev/editstream/pkg/protocol"
	"github.com/vango-dev/editstream/pkg/scheduler"
)

const waitTimeout = 5 * time.Second

// counterModel renders <div>"count N"<button @click></div> under root 0.
type counterModel struct {
	mu       sync.Mutex
	ids      *emit.IDGen
	enc      *emit.Encoder
	count    int
	textID   protocol.NodeID
	buttonID protocol.NodeID
	tasks    chan scheduler.Task
	seen     []protocol.Event

	breakNext bool   // next Diff references an unknown id
	panicOn   string // HandleEvent panics for this kind
}

func newCounterModel() *counterModel {
	return &counterModel{
		ids:   emit.NewIDGen(1),
		enc:   emit.NewEncoder(),
		tasks: make(chan scheduler.Task, 4),
	}
}

func (m *counterModel) Internal() <-chan scheduler.Task { return m.tasks }

func (m *counterModel) HandleEvent(_ context.Context, ev protocol.Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if string(ev.Kind) == m.panicOn {
		panic("boom")
	}
	m.seen = append(m.seen, ev)
	if ev.Kind != protocol.EventClick {
		return false, nil
	}
	m.count++
	return true, nil
}

func (m *counterModel) HandleTask(_ context.Context, t scheduler.Task) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Name != "tick" {
		return false, fmt.Errorf("unknown task %q", t.Name)
	}
	m.count++
	return true, nil
}

func (m *counterModel) label() string {
	return fmt.Sprintf("count %d", m.count)
}

func (m *counterModel) Diff(context.Context) (protocol.EditStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.breakNext {
		m.breakNext = false
		return protocol.NewEditStream(m.enc.Seq(), []protocol.Edit{
			protocol.NewPushRoot(999),
			protocol.NewSetText("lost"),
			protocol.NewPop(1),
		}), nil
	}
	m.enc.PushRoot(m.textID)
	m.enc.SetText(m.label())
	m.enc.Pop(1)
	return m.enc.FlushChecked()
}

func (m *counterModel) Rebuild(context.Context) (protocol.EditStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	div, text, button := m.ids.Next(), m.ids.Next(), m.ids.Next()
	m.textID, m.buttonID = text, button

	m.enc.PushRoot(0)
	if err := m.enc.CreateElement("div", div); err != nil {
		return protocol.EditStream{}, err
	}
	m.enc.CreateText(m.label(), text)
	if err := m.enc.CreateElement("button", button); err != nil {
		return protocol.EditStream{}, err
	}
	m.enc.Listen(protocol.EventClick, button, 1)
	m.enc.AppendChildren(2)
	m.enc.AppendChildren(1)
	m.enc.Pop(1)
	return m.enc.FlushChecked()
}

func (m *counterModel) events() []protocol.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.Event(nil), m.seen...)
}

type applied struct {
	seq uint64
	err error
}

// recorder wraps an interpreter and reports every apply.
type recorder struct {
	in      *interp.Interpreter[*memdom.Node]
	applied chan applied
}

func (r *recorder) Apply(ctx context.Context, s protocol.EditStream) error {
	err := r.in.Apply(ctx, s)
	r.applied <- applied{seq: s.Seq(), err: err}
	return err
}

func (r *recorder) Reset(ctx context.Context) error {
	return r.in.Reset(ctx)
}

func (r *recorder) next(t *testing.T) applied {
	t.Helper()
	select {
	case a := <-r.applied:
		return a
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for apply")
		return applied{}
	}
}

type fixture struct {
	doc   *memdom.Document
	rec   *recorder
	model *counterModel
	obs   *observer
	sched *scheduler.Scheduler
}

func newFixture(t *testing.T, opts ...scheduler.Option) *fixture {
	t.Helper()
	doc := memdom.NewDocument()
	in := interp.New[*memdom.Node](doc, nil)
	if err := in.Mount(0, doc.Root()); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{in: in, applied: make(chan applied, 32)}
	model := newCounterModel()
	obs := &observer{}
	opts = append([]scheduler.Option{scheduler.WithObserver(obs)}, opts...)
	return &fixture{
		doc:   doc,
		rec:   rec,
		model: model,
		obs:   obs,
		sched: scheduler.New(model, rec, opts...),
	}
}

func tree(label string) string {
	return "#document\n  <div>\n    \"" + label + "\"\n    <button @click=1>\n"
}

type observer struct {
	mu         sync.Mutex
	deliveries []error
	cancels    int
	cycles     []error
}

func (o *observer) ObserveDelivery(_ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveries = append(o.deliveries, err)
}

func (o *observer) ObserveCancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancels++
}

func (o *observer) ObserveCycle(_ int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cycles = append(o.cycles, err)
}

func run(ctx context.Context, s *scheduler.Scheduler, events <-chan protocol.Event) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, events) }()
	return errc
}

func wait(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
		return nil
	}
}

func click(target protocol.NodeID) protocol.Event {
	return protocol.Event{Target: target, Kind: protocol.EventClick}
}

func TestRunMountsAndAppliesDiffs(t *testing.T) {
	f := newFixture(t)
	events := make(chan protocol.Event)
	errc := run(context.Background(), f.sched, events)

	if a := f.rec.next(t); a.err != nil {
		t.Fatalf("mount: %v", a.err)
	}
	if got := f.doc.String(); got != tree("count 0") {
		t.Fatalf("tree after mount:\n%s", got)
	}

	for i := 1; i <= 3; i++ {
		events <- click(f.model.buttonID)
		if a := f.rec.next(t); a.err != nil {
			t.Fatalf("click %d: %v", i, a.err)
		}
		if got, want := f.doc.String(), tree(fmt.Sprintf("count %d", i)); got != want {
			t.Errorf("tree after click %d:\n%s\nwant:\n%s", i, got, want)
		}
	}

	close(events)
	if err := wait(t, errc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s := f.sched.State(); s != scheduler.StateStopped {
		t.Errorf("State = %v, want Stopped", s)
	}
}

func TestRunInternalTask(t *testing.T) {
	f := newFixture(t)
	events := make(chan protocol.Event)
	errc := run(context.Background(), f.sched, events)
	f.rec.next(t)

	f.model.tasks <- scheduler.Task{Name: "tick"}
	if a := f.rec.next(t); a.err != nil {
		t.Fatal(a.err)
	}
	if got := f.doc.String(); got != tree("count 1") {
		t.Errorf("tree:\n%s", got)
	}

	close(events)
	wait(t, errc)
}

func TestRunRebuildsAfterFailedApply(t *testing.T) {
	f := newFixture(t)
	events := make(chan protocol.Event)
	errc := run(context.Background(), f.sched, events)
	f.rec.next(t)

	f.model.mu.Lock()
	f.model.breakNext = true
	f.model.mu.Unlock()
	events <- click(f.model.buttonID)

	failed := f.rec.next(t)
	if !errors.Is(failed.err, protocol.ErrUnknownID) {
		t.Fatalf("apply err = %v, want ErrUnknownID", failed.err)
	}
	if a := f.rec.next(t); a.err != nil {
		t.Fatalf("rebuild: %v", a.err)
	}

	if got := f.doc.String(); got != tree("count 1") {
		t.Errorf("tree after rebuild:\n%s", got)
	}
	want := []protocol.NodeID{0, 4, 5, 6}
	if got := f.rec.in.Registry().IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs = %v, want %v", got, want)
	}

	close(events)
	wait(t, errc)
}

func TestRequestRebuild(t *testing.T) {
	f := newFixture(t)
	events := make(chan protocol.Event)
	errc := run(context.Background(), f.sched, events)
	f.rec.next(t)

	f.sched.RequestRebuild()
	if a := f.rec.next(t); a.err != nil {
		t.Fatal(a.err)
	}
	want := []protocol.NodeID{0, 4, 5, 6}
	if got := f.rec.in.Registry().IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs = %v, want %v", got, want)
	}
	if got := f.doc.String(); got != tree("count 0") {
		t.Errorf("tree:\n%s", got)
	}

	close(events)
	wait(t, errc)
}

func TestRunRecoversHandlerPanic(t *testing.T) {
	f := newFixture(t)
	f.model.panicOn = string(protocol.EventKeyDown)
	events := make(chan protocol.Event)
	errc := run(context.Background(), f.sched, events)
	f.rec.next(t)

	events <- protocol.Event{Target: f.model.buttonID, Kind: protocol.EventKeyDown}
	events <- click(f.model.buttonID)
	if a := f.rec.next(t); a.err != nil {
		t.Fatal(a.err)
	}
	close(events)
	wait(t, errc)

	f.obs.mu.Lock()
	defer f.obs.mu.Unlock()
	if len(f.obs.deliveries) != 2 {
		t.Fatalf("deliveries = %v", f.obs.deliveries)
	}
	if !errors.Is(f.obs.deliveries[0], scheduler.ErrPanic) {
		t.Errorf("first delivery err = %v, want ErrPanic", f.obs.deliveries[0])
	}
	if f.obs.deliveries[1] != nil {
		t.Errorf("second delivery err = %v", f.obs.deliveries[1])
	}
}

// gatedModel blocks its first Diff until cancelled.
type gatedModel struct {
	handled chan protocol.Event
	started chan int32
	calls   atomic.Int32
}

func (m *gatedModel) Internal() <-chan scheduler.Task { return nil }

func (m *gatedModel) HandleEvent(_ context.Context, ev protocol.Event) (bool, error) {
	m.handled <- ev
	return true, nil
}

func (m *gatedModel) HandleTask(context.Context, scheduler.Task) (bool, error) {
	return false, nil
}

func (m *gatedModel) Diff(ctx context.Context) (protocol.EditStream, error) {
	n := m.calls.Add(1)
	m.started <- n
	if n == 1 {
		<-ctx.Done()
		return protocol.EditStream{}, ctx.Err()
	}
	return protocol.NewEditStream(uint64(n), []protocol.Edit{
		protocol.NewPushRoot(0),
		protocol.NewPop(1),
	}), nil
}

func TestCancelledDiffNeverReachesRenderer(t *testing.T) {
	doc := memdom.NewDocument()
	in := interp.New[*memdom.Node](doc, nil)
	if err := in.Mount(0, doc.Root()); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{in: in, applied: make(chan applied, 8)}
	model := &gatedModel{handled: make(chan protocol.Event, 8), started: make(chan int32, 8)}
	obs := &observer{}
	s := scheduler.New(model, rec, scheduler.WithObserver(obs))

	events := make(chan protocol.Event)
	errc := run(context.Background(), s, events)

	events <- click(0)
	if n := <-model.started; n != 1 {
		t.Fatalf("first generation = %d", n)
	}
	if st := s.State(); st != scheduler.StateGenerating {
		t.Errorf("State = %v, want Generating", st)
	}

	events <- click(0)
	a := rec.next(t)
	if a.err != nil || a.seq != 2 {
		t.Fatalf("applied %+v, want seq 2", a)
	}

	close(events)
	if err := wait(t, errc); err != nil {
		t.Fatal(err)
	}
	if len(rec.applied) != 0 {
		t.Errorf("extra applies: %d", len(rec.applied))
	}
	if len(model.handled) != 2 {
		t.Errorf("handled %d events, want 2", len(model.handled))
	}
	if obs.cancels != 1 {
		t.Errorf("cancels = %d, want 1", obs.cancels)
	}
	if d := in.Depth(); d != 0 {
		t.Errorf("Depth = %d", d)
	}
	if got := in.Registry().IDs(); !reflect.DeepEqual(got, []protocol.NodeID{0}) {
		t.Errorf("IDs = %v", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	model := &gatedModel{handled: make(chan protocol.Event, 8), started: make(chan int32, 8)}
	rec := &recorder{applied: make(chan applied, 8)}
	s := scheduler.New(model, rec)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan protocol.Event)
	errc := run(ctx, s, events)

	events <- click(0)
	<-model.started
	cancel()

	if err := wait(t, errc); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if st := s.State(); st != scheduler.StateStopped {
		t.Errorf("State = %v", st)
	}
	if err := s.Run(context.Background(), events); !errors.Is(err, scheduler.ErrRunning) {
		t.Errorf("second Run = %v, want ErrRunning", err)
	}
}

// An event the bridge cannot translate is dropped and the loop carries on
// with the next one.
func TestUnsupportedEventIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bridge.New[*memdom.Node](f.rec.in.Registry())
	q := bridge.NewQueue(ctx, b, bridge.DefaultQueueConfig())
	errc := run(ctx, f.sched, q.Events())
	f.rec.next(t)

	button, err := f.rec.in.Registry().Lookup(f.model.buttonID)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Submit(ctx, &memdom.RawEvent{EventType: "touchstart", Ref: button}); err != nil {
		t.Fatal(err)
	}
	if err := q.Submit(ctx, &memdom.PointerEvent{EventType: "click", Node: button}); err != nil {
		t.Fatal(err)
	}
	if a := f.rec.next(t); a.err != nil {
		t.Fatal(a.err)
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if err := wait(t, errc); err != nil {
		t.Fatal(err)
	}

	seen := f.model.events()
	if len(seen) != 1 {
		t.Fatalf("model saw %d events, want 1", len(seen))
	}
	if seen[0].Kind != protocol.EventClick || seen[0].Seq != 1 || seen[0].Target != f.model.buttonID {
		t.Errorf("event = %+v", seen[0])
	}
	if got := f.doc.String(); got != tree("count 1") {
		t.Errorf("tree:\n%s", got)
	}
}
