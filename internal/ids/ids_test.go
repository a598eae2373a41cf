package ids

import "testing"

func TestNewRunIDUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if a == b {
		t.Fatal("two calls to NewRunID should not collide")
	}
	if a == "" || b == "" {
		t.Fatal("NewRunID should never return an empty string")
	}
}

func TestClientIDGeneratorMonotonicAndNamespaced(t *testing.T) {
	g := NewClientIDGenerator("demo")
	first := g.Next()
	second := g.Next()
	if first == second {
		t.Fatal("successive Next() calls must not repeat")
	}

	other := NewClientIDGenerator("demo")
	got := other.Next()
	if got != first {
		t.Fatalf("a fresh generator with the same prefix should restart its sequence: got %q, want %q", got, first)
	}
}
