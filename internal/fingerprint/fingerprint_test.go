package fingerprint

import (
	"errors"
	"path/filepath"
	"testing"
)

type memStore struct {
	id    string
	saves int
}

func (m *memStore) Load() (string, bool) { return m.id, m.id != "" }
func (m *memStore) Save(id string) error { m.id = id; m.saves++; return nil }

type fakeSource struct {
	attrs map[string]string
	err   error
}

func (f fakeSource) Attributes() (map[string]string, error) { return f.attrs, f.err }

func TestGetOrCreateIdempotent(t *testing.T) {
	st := &memStore{}
	p := NewProvider(st)

	first := p.GetOrCreate()
	second := p.GetOrCreate()
	if first == "" {
		t.Fatal("empty fingerprint")
	}
	if first != second {
		t.Errorf("fingerprint not stable: %q then %q", first, second)
	}
	if st.saves != 1 {
		t.Errorf("expected one save, got %d", st.saves)
	}
}

func TestCachedValueWins(t *testing.T) {
	st := &memStore{id: "cached-id"}
	p := NewProvider(st, fakeSource{attrs: map[string]string{"a": "1"}})
	if got := p.GetOrCreate(); got != "cached-id" {
		t.Errorf("GetOrCreate() = %q, want cached-id", got)
	}
}

func TestFallbackOnSourceFailure(t *testing.T) {
	st := &memStore{}
	failing := fakeSource{err: errors.New("blocked")}
	reduced := fakeSource{attrs: map[string]string{"platform": "test"}}

	p := NewProvider(st, failing, reduced)
	id := p.GetOrCreate()
	if id == "" {
		t.Fatal("fallback produced empty fingerprint")
	}

	// A second provider hitting the same failure must derive the same id.
	p2 := NewProvider(&memStore{}, failing, reduced)
	if id2 := p2.GetOrCreate(); id2 != id {
		t.Errorf("fallback fragmented identity: %q vs %q", id, id2)
	}
}

func TestDigestOrderIndependent(t *testing.T) {
	a := digest(map[string]string{"x": "1", "y": "2", "z": "3"})
	b := digest(map[string]string{"z": "3", "x": "1", "y": "2"})
	if a != b {
		t.Errorf("digest depends on map order: %q vs %q", a, b)
	}
}

func TestAllSourcesFailStillReturns(t *testing.T) {
	p := NewProvider(nil, fakeSource{err: errors.New("a")}, fakeSource{err: errors.New("b")})
	if id := p.GetOrCreate(); id == "" {
		t.Error("expected reduced-set fingerprint when every source fails")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	st := &FileStore{Path: filepath.Join(t.TempDir(), "device_id")}
	if _, ok := st.Load(); ok {
		t.Fatal("load on empty store should miss")
	}
	if err := st.Save("abc123"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	id, ok := st.Load()
	if !ok || id != "abc123" {
		t.Errorf("Load() = %q/%v, want abc123/true", id, ok)
	}
}
