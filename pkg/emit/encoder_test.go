package emit

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vango-dev/editstream/pkg/protocol"
)

func encodeHelloWorld(t *testing.T, enc *Encoder, ids *IDGen) {
	t.Helper()
	h1, text := ids.Next(), ids.Next()
	enc.PushRoot(0)
	if err := enc.CreateElement("h1", h1); err != nil {
		t.Fatalf("CreateElement: %v", err)
	}
	enc.CreateText("hello world", text)
	enc.AppendChildren(1)
	enc.AppendChildren(1)
	enc.Pop(1)
}

func TestFlush(t *testing.T) {
	enc := NewEncoder()
	encodeHelloWorld(t, enc, NewIDGen(1))

	if enc.Pending() != 6 {
		t.Fatalf("Pending = %d, want 6", enc.Pending())
	}
	s := enc.Flush()
	want := []protocol.Edit{
		protocol.NewPushRoot(0),
		protocol.NewCreateElement("h1", 1),
		protocol.NewCreateTextNode("hello world", 2),
		protocol.NewAppendChildren(1),
		protocol.NewAppendChildren(1),
		protocol.NewPop(1),
	}
	if !reflect.DeepEqual(s.Edits(), want) {
		t.Errorf("edits = %v", s.Edits())
	}
	if s.Seq() != 1 || enc.Seq() != 2 {
		t.Errorf("seq = %d, next = %d", s.Seq(), enc.Seq())
	}
	if enc.Pending() != 0 {
		t.Error("buffer not reset")
	}

	// Later encodes do not leak into the flushed stream.
	enc.PushRoot(0)
	if s.Len() != 6 {
		t.Errorf("flushed stream changed: Len = %d", s.Len())
	}
}

func TestFlushChecked(t *testing.T) {
	enc := NewEncoder()
	ids := NewIDGen(1)
	encodeHelloWorld(t, enc, ids)
	if _, err := enc.FlushChecked(); err != nil {
		t.Fatalf("FlushChecked: %v", err)
	}

	// A forward reference is rejected and nothing is flushed.
	enc.PushRoot(ids.Peek())
	enc.Pop(1)
	_, err := enc.FlushChecked()
	if !errors.Is(err, protocol.ErrUnknownID) {
		t.Fatalf("err = %v, want ErrUnknownID", err)
	}
	if enc.Pending() != 2 || enc.Seq() != 2 {
		t.Errorf("failed flush consumed state: pending %d, seq %d", enc.Pending(), enc.Seq())
	}

	enc.Discard()
	enc.PushRoot(1)
	enc.SetText("x")
	if err := enc.Check(); err == nil {
		t.Error("Check accepted unbalanced buffer")
	}
	enc.Pop(1)
	if err := enc.Check(); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestFlushRecordsIntroducedIDs(t *testing.T) {
	enc := NewEncoder()
	enc.PushRoot(0)
	if err := enc.CreateElement("p", 1); err != nil {
		t.Fatalf("CreateElement: %v", err)
	}
	enc.AppendChildren(1)
	enc.Pop(1)
	enc.Flush()

	enc.PushRoot(1)
	enc.SetText("x")
	enc.Pop(1)
	if err := enc.Check(); err != nil {
		t.Fatalf("Check after Flush: %v", err)
	}
	s, err := enc.FlushChecked()
	if err != nil {
		t.Fatalf("FlushChecked after Flush: %v", err)
	}
	if s.Seq() != 2 {
		t.Errorf("seq = %d, want 2", s.Seq())
	}
}

func TestCatalogValidation(t *testing.T) {
	enc := NewEncoder(WithCatalog(DefaultCatalog()))
	ids := NewIDGen(1)

	if err := enc.CreateElement("blink", ids.Next()); !errors.Is(err, ErrUnknownElement) {
		t.Errorf("unknown element: %v", err)
	}
	if enc.Pending() != 0 {
		t.Error("rejected edit was buffered")
	}

	a := ids.Next()
	if err := enc.CreateElement("a", a); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"href", "class", "data-id", "aria-label"} {
		if err := enc.SetAttribute(name, "v"); err != nil {
			t.Errorf("SetAttribute(%s): %v", name, err)
		}
	}
	if err := enc.SetAttribute("src", "x"); !errors.Is(err, ErrAttributeNotPermitted) {
		t.Errorf("src on <a>: %v", err)
	}
	enc.Pop(1)
	enc.Flush()

	// The tag is remembered across streams for PushRoot.
	enc.PushRoot(a)
	if err := enc.SetAttribute("checked", ""); !errors.Is(err, ErrAttributeNotPermitted) {
		t.Errorf("checked on pushed <a>: %v", err)
	}
	enc.Pop(1)
}

func TestCatalogNamespaces(t *testing.T) {
	enc := NewEncoder(WithCatalog(DefaultCatalog()))
	ids := NewIDGen(1)

	if err := enc.CreateElement("circle", ids.Next()); !errors.Is(err, ErrUnknownElement) {
		t.Errorf("svg element without namespace: %v", err)
	}
	if err := enc.CreateElementNS("circle", NamespaceSVG, ids.Next()); err != nil {
		t.Fatal(err)
	}
	if err := enc.SetAttribute("r", "4"); err != nil {
		t.Errorf("r on circle: %v", err)
	}
	if err := enc.SetAttributeNS("href", "#x", "http://www.w3.org/1999/xlink"); err != nil {
		t.Errorf("namespaced attribute: %v", err)
	}
}

func TestLenientCatalog(t *testing.T) {
	c := NewCatalog(false).Global("id").Define("", "p")
	if err := c.CheckElement("custom-el", ""); err != nil {
		t.Errorf("lenient catalog rejected element: %v", err)
	}
	if !c.Permits("custom-el", "", "anything") {
		t.Error("lenient catalog rejected attribute on unknown element")
	}
	if c.Permits("p", "", "href") {
		t.Error("known element accepted undeclared attribute")
	}
}

func TestIDGen(t *testing.T) {
	g := NewIDGen(5)
	if g.Peek() != 5 {
		t.Errorf("Peek = %d", g.Peek())
	}
	seen := make(map[protocol.NodeID]bool)
	prev := protocol.NodeID(0)
	for i := 0; i < 100; i++ {
		id := g.Next()
		if seen[id] || id <= prev && i > 0 {
			t.Fatalf("id %d repeated or not increasing", id)
		}
		seen[id] = true
		prev = id
	}
}

func TestIDGenPerInstance(t *testing.T) {
	a, b := NewIDGen(1), NewIDGen(1)
	a.Next()
	a.Next()
	if b.Next() != 1 {
		t.Error("generators share state")
	}
}
