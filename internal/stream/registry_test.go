package stream

import (
	"sync"
	"testing"
)

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	a := r.Add(4)
	b := r.Add(4)
	if r.Len() != 2 {
		t.Fatalf("expected 2 clients, got %d", r.Len())
	}
	r.Remove(a)
	if r.Len() != 1 {
		t.Fatalf("expected 1 client after remove, got %d", r.Len())
	}
	// removing an absent client is a no-op
	r.Remove(a)
	if r.Len() != 1 {
		t.Fatalf("expected 1 client after duplicate remove, got %d", r.Len())
	}
	r.Remove(b)
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistryRemoveClosesChannel(t *testing.T) {
	r := NewRegistry()
	c := r.Add(1)
	r.Remove(c)
	if _, ok := <-c.Frames(); ok {
		t.Fatal("expected closed frame channel after remove")
	}
}

func TestRegistrySendAfterRemove(t *testing.T) {
	r := NewRegistry()
	c := r.Add(1)
	r.Remove(c)
	if r.send(c, []byte("x")) {
		t.Fatal("send to removed client should fail")
	}
}

func TestRegistryConcurrentAddRemove(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := r.Add(4)
			for _, s := range r.Snapshot() {
				r.send(s, []byte("data: {}\n\n"))
			}
			r.Remove(c)
			r.Remove(c)
		}()
	}
	wg.Wait()
	if r.Len() != 0 {
		t.Fatalf("expected empty registry after concurrent churn, got %d", r.Len())
	}
}
