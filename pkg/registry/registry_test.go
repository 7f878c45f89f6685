package registry

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/vango-dev/editstream/pkg/protocol"
)

type handle struct{ name string }

func TestRegisterLookup(t *testing.T) {
	r := New[*handle]()
	h := &handle{"root"}

	if err := r.Register(0, h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := r.Lookup(0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != h {
		t.Errorf("Lookup returned %v, want %v", got, h)
	}
	if id, ok := r.Resolve(h); !ok || id != 0 {
		t.Errorf("Resolve = %d, %v", id, ok)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New[*handle]()
	if err := r.Register(1, &handle{"a"}); err != nil {
		t.Fatal(err)
	}
	err := r.Register(1, &handle{"b"})
	if !errors.Is(err, protocol.ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}

	// The original mapping survives the failed register.
	h, _ := r.Lookup(1)
	if h.name != "a" {
		t.Errorf("mapping replaced by failed register: %q", h.name)
	}
}

func TestLookupUnknown(t *testing.T) {
	r := New[*handle]()
	if _, err := r.Lookup(99); !errors.Is(err, protocol.ErrUnknownID) {
		t.Fatalf("err = %v, want ErrUnknownID", err)
	}
	if err := r.Release(99); !errors.Is(err, protocol.ErrUnknownID) {
		t.Fatalf("Release err = %v, want ErrUnknownID", err)
	}
}

func TestStableMapping(t *testing.T) {
	r := New[*handle]()
	handles := make(map[protocol.NodeID]*handle)
	for id := protocol.NodeID(1); id <= 50; id++ {
		handles[id] = &handle{}
		if err := r.Register(id, handles[id]); err != nil {
			t.Fatal(err)
		}
	}
	// Churn unrelated ids.
	for id := protocol.NodeID(1); id <= 50; id += 2 {
		if err := r.Release(id); err != nil {
			t.Fatal(err)
		}
	}
	for id := protocol.NodeID(100); id < 125; id++ {
		if err := r.Register(id, &handle{}); err != nil {
			t.Fatal(err)
		}
	}

	for id := protocol.NodeID(2); id <= 50; id += 2 {
		h, err := r.Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%d): %v", id, err)
		}
		if h != handles[id] {
			t.Errorf("Lookup(%d) changed after unrelated churn", id)
		}
	}
}

func TestReleaseThenReregister(t *testing.T) {
	r := New[*handle]()
	_ = r.Register(5, &handle{})
	if err := r.Release(5); err != nil {
		t.Fatal(err)
	}
	if r.Live(5) {
		t.Error("id live after release")
	}
	if _, err := r.Lookup(5); !errors.Is(err, protocol.ErrUnknownID) {
		t.Errorf("Lookup after release: %v", err)
	}
	if err := r.Register(5, &handle{}); err != nil {
		t.Errorf("Register after release: %v", err)
	}
}

// Two update cycles: the model issues 3 then 4 while the registry reuses the
// slot freed by releasing 3. Ids stay distinct even though slots coincide.
func TestSlotReuseIsInvisible(t *testing.T) {
	r := New[*handle]()
	_ = r.Register(0, &handle{"root"})

	h3 := &handle{"three"}
	if err := r.Register(3, h3); err != nil {
		t.Fatal(err)
	}
	slot3, _ := r.Slot(3)

	if err := r.Release(3); err != nil {
		t.Fatal(err)
	}

	h4 := &handle{"four"}
	if err := r.Register(4, h4); err != nil {
		t.Fatal(err)
	}
	slot4, _ := r.Slot(4)

	if slot3 != slot4 {
		t.Errorf("slot not reused: %d then %d", slot3, slot4)
	}
	if r.Live(3) {
		t.Error("released id 3 resolved through reused slot")
	}
	if got, _ := r.Lookup(4); got != h4 {
		t.Error("id 4 does not map to its own handle")
	}
	if id, _ := r.Resolve(h3); id == 4 {
		t.Error("stale handle resolved to new id")
	}
	if st := r.Stats(); st.Slots != 2 || st.Live != 2 || st.Free != 0 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestIDsSorted(t *testing.T) {
	r := New[*handle]()
	for _, id := range []protocol.NodeID{9, 2, 7, 0} {
		_ = r.Register(id, &handle{})
	}
	want := []protocol.NodeID{0, 2, 7, 9}
	if got := r.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs = %v, want %v", got, want)
	}
	if r.Len() != 4 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestConcurrentReaders(t *testing.T) {
	r := New[*handle]()
	for id := protocol.NodeID(0); id < 100; id++ {
		_ = r.Register(id, &handle{})
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := protocol.NodeID(0); id < 100; id++ {
				if _, err := r.Lookup(id); err != nil {
					t.Errorf("Lookup(%d): %v", id, err)
				}
			}
		}()
	}
	for id := protocol.NodeID(100); id < 200; id++ {
		_ = r.Register(id, &handle{})
	}
	wg.Wait()
}
