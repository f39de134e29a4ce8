package queue

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := New[int]()
	for i := 0; i < 3; i++ {
		q.Enqueue(i)
	}

	if got := q.Len(); got != 3 {
		t.Fatalf("expected 3 items, got %d", got)
	}
	for want := 0; want < 3; want++ {
		got, ok := q.Dequeue()
		if !ok || got != want {
			t.Fatalf("expected %d, got %d (ok=%v)", want, got, ok)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue")
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatalf("expected dequeue on empty queue to fail")
	}
}

func TestQueueRemoveIfKeepsOrder(t *testing.T) {
	q := New[string]()
	for _, s := range []string{"media-1", "mark-1", "media-2", "clear", "media-3"} {
		q.Enqueue(s)
	}

	removed := q.RemoveIf(func(s string) bool { return s != "clear" && s[:5] == "media" })
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	want := []string{"mark-1", "clear"}
	for _, w := range want {
		got, ok := q.Dequeue()
		if !ok || got != w {
			t.Fatalf("expected %q, got %q (ok=%v)", w, got, ok)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, %d left", q.Len())
	}
}
