package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("authors:name:tolkien", "hit", time.Second)
	val, ok := c.Get("authors:name:tolkien")
	if !ok || val != "hit" {
		t.Fatalf("expected hit, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	c := New()
	c.Set("authors:name:tolkien", "hit", 50*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	if _, ok := c.Get("authors:name:tolkien"); ok {
		t.Fatalf("expected expired key to return false")
	}
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("authors:name:tolkien", "hit", time.Second)
	c.Delete("authors:name:tolkien")
	if _, ok := c.Get("authors:name:tolkien"); ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New()
	c.Set("authors:name:tolkien", "a", time.Second)
	c.Set("authors:nat:british", "b", time.Second)
	c.Set("books:id:1", "c", time.Second)
	c.Invalidate("authors:")
	if _, ok := c.Get("authors:name:tolkien"); ok {
		t.Fatalf("expected author keys to be invalidated")
	}
	if _, ok := c.Get("authors:nat:british"); ok {
		t.Fatalf("expected author keys to be invalidated")
	}
	if _, ok := c.Get("books:id:1"); !ok {
		t.Fatalf("expected book key to survive")
	}
}
