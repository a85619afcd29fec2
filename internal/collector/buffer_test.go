package collector

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bowiephone/bowietest/internal/model"
)

func TestBufferAddStampsServerTimestamp(t *testing.T) {
	b := NewBuffer(10, nil)

	before := time.Now()
	stored := b.Add(model.Entry{"message": "hello"})
	after := time.Now()

	raw, ok := stored[model.ServerTimestampKey]
	if !ok {
		t.Fatalf("stored entry missing %s: %v", model.ServerTimestampKey, stored)
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.(string))
	if err != nil {
		t.Fatalf("server timestamp %q not RFC3339: %v", raw, err)
	}
	if ts.Before(before.Truncate(time.Second)) || ts.After(after.Add(time.Second)) {
		t.Errorf("server timestamp %v outside [%v, %v]", ts, before, after)
	}
	if stored["message"] != "hello" {
		t.Errorf("stored entry lost client fields: %v", stored)
	}
	if len(stored) != 2 {
		t.Errorf("stored entry has %d keys, want the input key plus exactly one added: %v", len(stored), stored)
	}
}

func TestBufferAddDoesNotMutateInput(t *testing.T) {
	b := NewBuffer(10, nil)
	input := model.Entry{"message": "hello"}

	b.Add(input)

	if _, ok := input[model.ServerTimestampKey]; ok {
		t.Fatalf("input entry was mutated: %v", input)
	}
}

func TestBufferEvictsOldestFirst(t *testing.T) {
	const capacity = 200
	const total = 250
	b := NewBuffer(capacity, nil)

	for i := 0; i < total; i++ {
		b.Add(model.Entry{"seq": i})
	}

	got := b.Snapshot()
	if len(got) != capacity {
		t.Fatalf("Len = %d, want %d", len(got), capacity)
	}
	for i, entry := range got {
		want := total - capacity + i
		if entry["seq"] != want {
			t.Fatalf("entry %d has seq %v, want %d", i, entry["seq"], want)
		}
	}
}

func TestBufferSnapshotIsACopy(t *testing.T) {
	b := NewBuffer(10, nil)
	b.Add(model.Entry{"seq": 0})

	snap := b.Snapshot()
	snap[0] = model.Entry{"seq": "tampered"}

	if got := b.Snapshot()[0]["seq"]; got != 0 {
		t.Errorf("buffer contents changed through snapshot: %v", got)
	}
}

func TestBufferSnapshotEmptyIsNotNil(t *testing.T) {
	b := NewBuffer(10, nil)
	if b.Snapshot() == nil {
		t.Fatal("Snapshot() of empty buffer is nil, want empty slice")
	}
}

func TestBufferClear(t *testing.T) {
	b := NewBuffer(10, nil)
	for i := 0; i < 5; i++ {
		b.Add(model.Entry{"seq": i})
	}

	b.Clear()

	if n := b.Len(); n != 0 {
		t.Fatalf("Len after Clear = %d, want 0", n)
	}
	b.Add(model.Entry{"seq": "after"})
	if n := b.Len(); n != 1 {
		t.Fatalf("Len after post-clear add = %d, want 1", n)
	}
}

func TestBufferOnAddHook(t *testing.T) {
	var got []model.Entry
	b := NewBuffer(10, &BufferOpts{OnAdd: func(e model.Entry) {
		got = append(got, e)
	}})

	stored := b.Add(model.Entry{"message": "hi"})

	if len(got) != 1 {
		t.Fatalf("hook ran %d times, want 1", len(got))
	}
	if _, ok := got[0][model.ServerTimestampKey]; !ok {
		t.Errorf("hook received unstamped entry: %v", got[0])
	}
	if fmt.Sprint(got[0]) != fmt.Sprint(stored) {
		t.Errorf("hook entry %v != stored entry %v", got[0], stored)
	}
}

func TestBufferConcurrentAdds(t *testing.T) {
	const capacity = 20
	b := NewBuffer(capacity, nil)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				b.Add(model.Entry{"goroutine": g, "seq": i})
			}
		}(g)
	}
	wg.Wait()

	if n := b.Len(); n != capacity {
		t.Fatalf("Len after concurrent adds = %d, want %d", n, capacity)
	}
}
