package shift

import (
	"testing"

	"github.com/crewclock/crewclock/internal/db"
	"github.com/crewclock/crewclock/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	s := store.New(gdb)
	if err := s.EnsureSchema(); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func TestResolve_Unresolved(t *testing.T) {
	r := NewResolver(testStore(t))

	remote, ok, err := r.Resolve("shift-1")
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	if ok || remote != "" {
		t.Errorf("Resolve() = (%q, %v), want unresolved", remote, ok)
	}
}

func TestResolve_LearnsMappingLater(t *testing.T) {
	st := testStore(t)
	r := NewResolver(st)

	if _, ok, _ := r.Resolve("shift-1"); ok {
		t.Fatal("shift resolved before link exists")
	}

	// The shift-sync subsystem records the link between two lookups.
	if err := st.PutShiftLink("shift-1", "srv-10"); err != nil {
		t.Fatalf("PutShiftLink(): %v", err)
	}

	remote, ok, err := r.Resolve("shift-1")
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	if !ok || remote != "srv-10" {
		t.Errorf("Resolve() = (%q, %v), want (srv-10, true)", remote, ok)
	}
}

func TestResolve_CachesPositiveResult(t *testing.T) {
	st := testStore(t)
	r := NewResolver(st)

	if err := st.PutShiftLink("shift-1", "srv-10"); err != nil {
		t.Fatalf("PutShiftLink(): %v", err)
	}
	if _, ok, _ := r.Resolve("shift-1"); !ok {
		t.Fatal("first resolve failed")
	}

	// Poison the table; the cached mapping must still be served.
	if err := st.DB().Exec("DELETE FROM shift_links").Error; err != nil {
		t.Fatalf("delete links: %v", err)
	}
	remote, ok, err := r.Resolve("shift-1")
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	if !ok || remote != "srv-10" {
		t.Errorf("Resolve() = (%q, %v), want cached (srv-10, true)", remote, ok)
	}
}
