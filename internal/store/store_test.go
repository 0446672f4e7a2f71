package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/crewclock/crewclock/internal/db"
	"github.com/crewclock/crewclock/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	s := New(gdb)
	if err := s.EnsureSchema(); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func newSession(id, workerID, shiftID, kind string, startedAt time.Time) *models.Session {
	return &models.Session{
		ID:         id,
		WorkerID:   workerID,
		ShiftID:    shiftID,
		Kind:       kind,
		BuildingID: "bldg-x",
		Status:     models.StatusInProgress,
		StartedAt:  startedAt,
		SyncStatus: models.SyncPending,
	}
}

func TestEnsureSchema_Repeatable(t *testing.T) {
	s := testStore(t)
	for i := 0; i < 3; i++ {
		if err := s.EnsureSchema(); err != nil {
			t.Fatalf("EnsureSchema() pass %d: %v", i, err)
		}
	}
}

func TestInsertAndGetSession(t *testing.T) {
	s := testStore(t)
	sess := newSession("ses-1", "w-1", "shift-1", models.KindCleaning, time.Now())
	sess.SetStartPosition(&models.Position{Lat: 40.7, Lng: -74.0, Accuracy: 12})

	if err := s.InsertSession(sess); err != nil {
		t.Fatalf("InsertSession(): %v", err)
	}

	got, err := s.GetSession("ses-1")
	if err != nil {
		t.Fatalf("GetSession(): %v", err)
	}
	if got.WorkerID != "w-1" || got.Kind != models.KindCleaning {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.StartPosition() == nil {
		t.Error("start position lost in round-trip")
	}
	if got.SyncStatus != models.SyncPending {
		t.Errorf("SyncStatus = %q, want pending", got.SyncStatus)
	}
}

func TestUpdateSession_NotFound(t *testing.T) {
	s := testStore(t)
	sess := newSession("ses-missing", "w-1", "shift-1", models.KindCleaning, time.Now())

	err := s.UpdateSession(sess)
	if err == nil {
		t.Fatal("UpdateSession() on missing row should fail")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Errorf("error = %T, want *OpError", err)
	} else if opErr.Op != "update session" {
		t.Errorf("OpError.Op = %q", opErr.Op)
	}
}

func TestActiveSession_CrossKind(t *testing.T) {
	s := testStore(t)
	if err := s.InsertSession(newSession("ses-1", "w-1", "shift-1", models.KindCleaning, time.Now())); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Unscoped lookup sees the cleaning session.
	active, err := s.ActiveSession("w-1")
	if err != nil {
		t.Fatalf("ActiveSession(): %v", err)
	}
	if active == nil || active.ID != "ses-1" {
		t.Fatalf("ActiveSession() = %+v, want ses-1", active)
	}

	// Kind-scoped lookup for the other kind sees nothing.
	active, err = s.ActiveSessionForKind("w-1", models.KindMaintenance)
	if err != nil {
		t.Fatalf("ActiveSessionForKind(): %v", err)
	}
	if active != nil {
		t.Errorf("ActiveSessionForKind(maintenance) = %+v, want nil", active)
	}

	// A different worker sees nothing.
	active, err = s.ActiveSession("w-2")
	if err != nil {
		t.Fatalf("ActiveSession(w-2): %v", err)
	}
	if active != nil {
		t.Errorf("ActiveSession(w-2) = %+v, want nil", active)
	}
}

func TestActiveSession_IgnoresTerminal(t *testing.T) {
	s := testStore(t)
	sess := newSession("ses-1", "w-1", "shift-1", models.KindCleaning, time.Now())
	sess.Status = models.StatusCompleted
	now := time.Now()
	sess.CompletedAt = &now
	if err := s.InsertSession(sess); err != nil {
		t.Fatalf("insert: %v", err)
	}

	active, err := s.ActiveSession("w-1")
	if err != nil {
		t.Fatalf("ActiveSession(): %v", err)
	}
	if active != nil {
		t.Errorf("ActiveSession() = %+v, want nil for terminal-only worker", active)
	}
}

func TestListPendingSync_OrderAndFilter(t *testing.T) {
	s := testStore(t)
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"ses-c", "ses-a", "ses-b"} {
		sess := newSession(id, "w-1", "shift-1", models.KindCleaning, base)
		// creation order: ses-c, ses-a, ses-b
		sess.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.InsertSession(sess); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	// A synced session must not appear.
	synced := newSession("ses-synced", "w-1", "shift-1", models.KindCleaning, base)
	synced.CreatedAt = base
	if err := s.InsertSession(synced); err != nil {
		t.Fatalf("insert synced: %v", err)
	}
	if err := s.MarkSynced("ses-synced", "r-9"); err != nil {
		t.Fatalf("MarkSynced(): %v", err)
	}

	// An errored session is still retried, so it must appear.
	if err := s.MarkSyncError("ses-a"); err != nil {
		t.Fatalf("MarkSyncError(): %v", err)
	}

	pending, err := s.ListPendingSync("w-1")
	if err != nil {
		t.Fatalf("ListPendingSync(): %v", err)
	}
	want := []string{"ses-c", "ses-a", "ses-b"}
	if len(pending) != len(want) {
		t.Fatalf("got %d pending, want %d", len(pending), len(want))
	}
	for i, w := range want {
		if pending[i].ID != w {
			t.Errorf("pending[%d] = %s, want %s", i, pending[i].ID, w)
		}
	}
}

func TestMarkSynced(t *testing.T) {
	s := testStore(t)
	if err := s.InsertSession(newSession("ses-1", "w-1", "shift-1", models.KindCleaning, time.Now())); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.MarkSynced("ses-1", "remote-42"); err != nil {
		t.Fatalf("MarkSynced(): %v", err)
	}

	got, err := s.GetSession("ses-1")
	if err != nil {
		t.Fatalf("GetSession(): %v", err)
	}
	if got.SyncStatus != models.SyncSynced {
		t.Errorf("SyncStatus = %q, want synced", got.SyncStatus)
	}
	if got.RemoteID == nil || *got.RemoteID != "remote-42" {
		t.Errorf("RemoteID = %v, want remote-42", got.RemoteID)
	}
	// Business fields untouched.
	if got.Status != models.StatusInProgress {
		t.Errorf("Status = %q, MarkSynced must not touch business fields", got.Status)
	}
}

func TestMarkSynced_NotFound(t *testing.T) {
	s := testStore(t)
	if err := s.MarkSynced("ses-nope", "r-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkSynced(missing) = %v, want ErrNotFound", err)
	}
	if err := s.MarkSyncError("ses-nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkSyncError(missing) = %v, want ErrNotFound", err)
	}
}

func TestRemoteShiftID(t *testing.T) {
	s := testStore(t)

	_, ok, err := s.RemoteShiftID("shift-1")
	if err != nil {
		t.Fatalf("RemoteShiftID(): %v", err)
	}
	if ok {
		t.Error("unresolved shift reported as resolved")
	}

	if err := s.PutShiftLink("shift-1", "srv-77"); err != nil {
		t.Fatalf("PutShiftLink(): %v", err)
	}

	remote, ok, err := s.RemoteShiftID("shift-1")
	if err != nil {
		t.Fatalf("RemoteShiftID(): %v", err)
	}
	if !ok || remote != "srv-77" {
		t.Errorf("RemoteShiftID() = (%q, %v), want (srv-77, true)", remote, ok)
	}
}

func TestActiveSessionsForShift_Plural(t *testing.T) {
	s := testStore(t)
	base := time.Now().Add(-2 * time.Hour)
	// Two InProgress rows for the same shift simulate post-crash corruption.
	for i, id := range []string{"ses-1", "ses-2"} {
		if err := s.InsertSession(newSession(id, "w-1", "shift-1", models.KindCleaning, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	other := newSession("ses-other", "w-1", "shift-2", models.KindCleaning, base)
	if err := s.InsertSession(other); err != nil {
		t.Fatalf("insert other: %v", err)
	}

	sessions, err := s.ActiveSessionsForShift("shift-1", "w-1")
	if err != nil {
		t.Fatalf("ActiveSessionsForShift(): %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != "ses-1" || sessions[1].ID != "ses-2" {
		t.Errorf("order = %s, %s; want ses-1, ses-2", sessions[0].ID, sessions[1].ID)
	}
}

func TestTransaction_RollsBack(t *testing.T) {
	s := testStore(t)
	boom := fmt.Errorf("boom")

	err := s.Transaction(func(tx *Store) error {
		if err := tx.InsertSession(newSession("ses-1", "w-1", "shift-1", models.KindCleaning, time.Now())); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() = %v, want boom", err)
	}

	if _, err := s.GetSession("ses-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("insert survived rollback: %v", err)
	}
}

func TestReferenceCache_Upsert(t *testing.T) {
	s := testStore(t)
	buildings := []models.Building{
		{ID: "bldg-1", Name: "North Depot", Address: "1 Rail Way"},
		{ID: "bldg-2", Name: "South Depot"},
	}
	if err := s.UpsertBuildings(buildings); err != nil {
		t.Fatalf("UpsertBuildings(): %v", err)
	}

	// Second upsert with a renamed building must update in place.
	buildings[0].Name = "North Depot (renamed)"
	if err := s.UpsertBuildings(buildings[:1]); err != nil {
		t.Fatalf("UpsertBuildings() second pass: %v", err)
	}

	got, err := s.Buildings()
	if err != nil {
		t.Fatalf("Buildings(): %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d buildings, want 2", len(got))
	}
	if got[0].Name != "North Depot (renamed)" {
		t.Errorf("buildings[0].Name = %q, upsert did not update", got[0].Name)
	}

	units := []models.Unit{
		{ID: "unit-1", BuildingID: "bldg-1", Label: "2B"},
		{ID: "unit-2", BuildingID: "bldg-1", Label: "1A"},
		{ID: "unit-3", BuildingID: "bldg-2", Label: "Basement"},
	}
	if err := s.UpsertUnits(units); err != nil {
		t.Fatalf("UpsertUnits(): %v", err)
	}
	forB1, err := s.UnitsForBuilding("bldg-1")
	if err != nil {
		t.Fatalf("UnitsForBuilding(): %v", err)
	}
	if len(forB1) != 2 || forB1[0].Label != "1A" {
		t.Errorf("UnitsForBuilding(bldg-1) = %+v, want 2 units ordered by label", forB1)
	}
}
