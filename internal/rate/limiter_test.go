package rate

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	m := NewMemory()

	for i := 0; i < 3; i++ {
		ok, _ := m.Allow("k", 3, time.Minute)
		if !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, retry := m.Allow("k", 3, time.Minute)
	if ok {
		t.Fatal("fourth request should be rejected")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("unexpected retry: %v", retry)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	m := NewMemory()

	if ok, _ := m.Allow("a", 1, time.Minute); !ok {
		t.Fatal("first request for a should be allowed")
	}
	if ok, _ := m.Allow("a", 1, time.Minute); ok {
		t.Fatal("second request for a should be rejected")
	}
	if ok, _ := m.Allow("b", 1, time.Minute); !ok {
		t.Fatal("request for b should be allowed")
	}
}

func TestWindowResets(t *testing.T) {
	m := NewMemory()

	if ok, _ := m.Allow("k", 1, 10*time.Millisecond); !ok {
		t.Fatal("first request should be allowed")
	}
	if ok, _ := m.Allow("k", 1, 10*time.Millisecond); ok {
		t.Fatal("second request should be rejected")
	}
	time.Sleep(15 * time.Millisecond)
	if ok, _ := m.Allow("k", 1, 10*time.Millisecond); !ok {
		t.Fatal("request after the window should be allowed")
	}
}
