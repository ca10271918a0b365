package finding

import (
	"testing"
	"time"
)

func TestKindValid(t *testing.T) {
	if !KindMissingHSTS.Valid() {
		t.Error("missing_hsts should be a valid kind")
	}
	if Kind("made_up").Valid() {
		t.Error("unknown kind should not validate")
	}
}

func TestValidate(t *testing.T) {
	f := New("example.com", KindMissingHSTS, Detail{}, time.Now())
	if err := f.Validate(); err != nil {
		t.Errorf("expected valid finding, got %v", err)
	}

	f.Host = ""
	if err := f.Validate(); err == nil {
		t.Error("expected error for empty host")
	}

	f = New("example.com", Kind("made_up"), Detail{}, time.Now())
	if err := f.Validate(); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestKey_DistinguishesDetailIdentity(t *testing.T) {
	now := time.Now()
	a := New("example.com", KindEmbeddedScript, Detail{ID: "https://cdn.example.com/a.js"}, now)
	b := New("example.com", KindEmbeddedScript, Detail{ID: "https://cdn.example.com/b.js"}, now)

	if a.Key() == b.Key() {
		t.Error("distinct detail identities must produce distinct keys")
	}

	c := New("example.com", KindEmbeddedScript, Detail{ID: "https://cdn.example.com/a.js", Value: "other"}, now)
	if a.Key() != c.Key() {
		t.Error("detail value must not participate in identity")
	}
}

func TestMerge_Timestamps(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)

	f := New("example.com", KindMissingHSTS, Detail{}, t1)
	f.Merge(New("example.com", KindMissingHSTS, Detail{}, t0))
	f.Merge(New("example.com", KindMissingHSTS, Detail{}, t2))

	if !f.FirstSeen.Equal(t0) {
		t.Errorf("expected first_seen %v, got %v", t0, f.FirstSeen)
	}
	if !f.LastSeen.Equal(t2) {
		t.Errorf("expected last_seen %v, got %v", t2, f.LastSeen)
	}
}

func TestLess_Ordering(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := New("a.example.com", KindMissingHSTS, Detail{}, t0.Add(time.Hour))
	b := New("b.example.com", KindMissingHSTS, Detail{}, t0)
	if !Less(a, b) {
		t.Error("host ordering must come before first_seen ordering")
	}

	c := New("a.example.com", KindMissingHSTS, Detail{}, t0)
	if !Less(c, a) {
		t.Error("earlier first_seen must order first within a host")
	}
}
