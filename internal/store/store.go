// Package store is the durable, transactional on-device store for session
// records, shift-id links, and the reference cache.
package store

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/crewclock/crewclock/internal/db"
	"github.com/crewclock/crewclock/internal/models"
	"gorm.io/gorm"
)

// Store wraps the device database. All mutating operations run in a single
// transaction; partial writes are never observable.
type Store struct {
	gdb     *gorm.DB
	ensured atomic.Bool
}

// New wraps an open gorm database. EnsureSchema must be called (directly or
// via any operation) before first use.
func New(gdb *gorm.DB) *Store {
	return &Store{gdb: gdb}
}

// DB exposes the underlying handle for read-model queries (dashboard).
func (s *Store) DB() *gorm.DB { return s.gdb }

// EnsureSchema creates tables and indexes if absent. Safe to call before
// every operation; after the first success it is a cheap in-memory check for
// the rest of the process lifetime.
func (s *Store) EnsureSchema() error {
	if s.ensured.Load() {
		return nil
	}
	if err := db.AutoMigrate(s.gdb); err != nil {
		return opErr("ensure schema", err)
	}
	s.ensured.Store(true)
	return nil
}

// Transaction runs fn against a Store view bound to one transaction.
// Used by the lifecycle to make its check-then-insert atomic.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	if err := s.EnsureSchema(); err != nil {
		return err
	}
	return s.gdb.Transaction(func(tx *gorm.DB) error {
		view := &Store{gdb: tx}
		view.ensured.Store(true)
		return fn(view)
	})
}

// InsertSession inserts a new session row.
func (s *Store) InsertSession(sess *models.Session) error {
	if err := s.EnsureSchema(); err != nil {
		return err
	}
	if err := s.gdb.Create(sess).Error; err != nil {
		return opErr("insert session", err)
	}
	return nil
}

// UpdateSession overwrites the session row by primary key. Fails with
// ErrNotFound if the id does not exist at update time.
func (s *Store) UpdateSession(sess *models.Session) error {
	if err := s.EnsureSchema(); err != nil {
		return err
	}
	err := s.gdb.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Session{}).Where("id = ?", sess.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return tx.Save(sess).Error
	})
	return opErr("update session", err)
}

// GetSession fetches a session by id, or ErrNotFound.
func (s *Store) GetSession(id string) (*models.Session, error) {
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	var sess models.Session
	if err := s.gdb.Where("id = ?", id).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, opErr("get session", ErrNotFound)
		}
		return nil, opErr("get session", err)
	}
	return &sess, nil
}

// ActiveSession returns the single InProgress session for a worker across
// all kinds, or nil if none. This is the cross-kind guard query: it is
// deliberately not filtered by kind.
func (s *Store) ActiveSession(workerID string) (*models.Session, error) {
	return s.activeSession(workerID, "")
}

// ActiveSessionForKind returns the InProgress session for a worker scoped to
// one kind, or nil if none.
func (s *Store) ActiveSessionForKind(workerID, kind string) (*models.Session, error) {
	return s.activeSession(workerID, kind)
}

func (s *Store) activeSession(workerID, kind string) (*models.Session, error) {
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	q := s.gdb.Where("worker_id = ? AND status = ?", workerID, models.StatusInProgress)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var sess models.Session
	if err := q.First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, opErr("get active session", err)
	}
	return &sess, nil
}

// ActiveSessionsForShift returns all InProgress sessions for a shift and
// worker. Plural on purpose: a crash can leave more than one row InProgress
// even though the invariant forbids it, and auto-close must drain them all.
func (s *Store) ActiveSessionsForShift(shiftID, workerID string) ([]models.Session, error) {
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	var sessions []models.Session
	err := s.gdb.
		Where("shift_id = ? AND worker_id = ? AND status = ?", shiftID, workerID, models.StatusInProgress).
		Order("started_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, opErr("list active sessions for shift", err)
	}
	return sessions, nil
}

// ListPendingSync returns every session not yet synced for a worker, oldest
// first. Creation order preserves causal order for dependent records, and
// rows already marked Error are included so they are retried indefinitely.
func (s *Store) ListPendingSync(workerID string) ([]models.Session, error) {
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	var sessions []models.Session
	err := s.gdb.
		Where("worker_id = ? AND sync_status <> ?", workerID, models.SyncSynced).
		Order("created_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, opErr("list pending sync", err)
	}
	return sessions, nil
}

// MarkSynced records the remote acknowledgment for a session. Business
// fields are never touched.
func (s *Store) MarkSynced(id, remoteID string) error {
	if err := s.EnsureSchema(); err != nil {
		return err
	}
	result := s.gdb.Model(&models.Session{}).Where("id = ?", id).Updates(map[string]interface{}{
		"sync_status": models.SyncSynced,
		"remote_id":   remoteID,
	})
	if result.Error != nil {
		return opErr("mark synced", result.Error)
	}
	if result.RowsAffected == 0 {
		return opErr("mark synced", ErrNotFound)
	}
	return nil
}

// MarkSyncError flags a session whose sync hit a definitive application
// failure. Such sessions are still retried on later sweeps.
func (s *Store) MarkSyncError(id string) error {
	if err := s.EnsureSchema(); err != nil {
		return err
	}
	result := s.gdb.Model(&models.Session{}).Where("id = ?", id).
		Update("sync_status", models.SyncError)
	if result.Error != nil {
		return opErr("mark sync error", result.Error)
	}
	if result.RowsAffected == 0 {
		return opErr("mark sync error", ErrNotFound)
	}
	return nil
}

// RemoteShiftID looks up the remote identifier for a locally-created shift.
// The second return is false while the shift's own sync has not completed;
// that is a normal condition, not an error.
func (s *Store) RemoteShiftID(localShiftID string) (string, bool, error) {
	if err := s.EnsureSchema(); err != nil {
		return "", false, err
	}
	var link models.ShiftLink
	if err := s.gdb.Where("local_id = ?", localShiftID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, opErr("resolve remote shift id", err)
	}
	return link.RemoteID, true, nil
}

// PutShiftLink records a local-to-remote shift id mapping. Called by the
// shift-sync subsystem when a shift is acknowledged remotely.
func (s *Store) PutShiftLink(localID, remoteID string) error {
	if err := s.EnsureSchema(); err != nil {
		return err
	}
	link := models.ShiftLink{LocalID: localID, RemoteID: remoteID, SyncedAt: time.Now()}
	if err := s.gdb.Save(&link).Error; err != nil {
		return opErr("put shift link", err)
	}
	return nil
}
