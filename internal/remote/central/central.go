// Package central implements the remote Backend directly against the company
// MySQL server, used when the device is on the depot network.
package central

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	sqlmysql "github.com/go-sql-driver/mysql"
	"github.com/crewclock/crewclock/internal/config"
	"github.com/crewclock/crewclock/internal/remote"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// RemoteSession is the authoritative session row on the central server.
// LocalSessionID is set for records created offline and inserted whole; its
// unique index is what makes DirectInsert safe to repeat.
type RemoteSession struct {
	ID              uint    `gorm:"primaryKey;autoIncrement"`
	LocalSessionID  *string `gorm:"size:32;uniqueIndex"`
	WorkerID        string  `gorm:"size:64;not null;index"`
	ShiftID         string  `gorm:"size:64;index"`
	Kind            string  `gorm:"size:16;not null"`
	BuildingID      string  `gorm:"size:64"`
	UnitID          string  `gorm:"size:64"`
	Status          string  `gorm:"size:16;default:in_progress"`
	StartedAt       time.Time
	CompletedAt     *time.Time
	DurationMinutes float64
	Notes           string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RemoteBuilding is the authoritative building reference row.
type RemoteBuilding struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"not null"`
	Address   string
	UpdatedAt time.Time
}

// RemoteUnit is the authoritative unit reference row.
type RemoteUnit struct {
	ID         string `gorm:"primaryKey;size:64"`
	BuildingID string `gorm:"size:64;not null;index"`
	Label      string `gorm:"not null"`
	UpdatedAt  time.Time
}

// Backend implements remote.Backend over a GORM connection.
type Backend struct {
	gdb *gorm.DB
}

// DSN builds the MySQL DSN for the central server.
func DSN(cfg config.CentralConfig) string {
	mc := sqlmysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Connect opens a GORM connection to the central server and ensures the
// session table exists.
func Connect(cfg config.CentralConfig) (*Backend, error) {
	gdb, err := gorm.Open(mysql.Open(DSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("central: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	return NewBackend(gdb)
}

// NewBackend wraps an open GORM connection. Exposed so tests can substitute
// an in-memory database.
func NewBackend(gdb *gorm.DB) (*Backend, error) {
	if err := gdb.AutoMigrate(&RemoteSession{}, &RemoteBuilding{}, &RemoteUnit{}); err != nil {
		return nil, fmt.Errorf("central: migrate: %w", err)
	}
	return &Backend{gdb: gdb}, nil
}

// StartSession implements remote.Backend. The central server enforces its own
// copy of the single-active-session rule and rejects a second start.
func (b *Backend) StartSession(ctx context.Context, workerID, remoteShiftID, kind string, loc remote.LocationRef) (*remote.StartResult, error) {
	var active RemoteSession
	err := b.gdb.WithContext(ctx).
		Where("worker_id = ? AND status = ?", workerID, "in_progress").
		First(&active).Error
	if err == nil {
		return &remote.StartResult{
			Accepted: false,
			Message:  fmt.Sprintf("worker %s already has an active %s session", workerID, active.Kind),
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, classify("start session", err)
	}

	row := RemoteSession{
		WorkerID:   workerID,
		ShiftID:    remoteShiftID,
		Kind:       kind,
		BuildingID: loc.BuildingID,
		UnitID:     loc.UnitID,
		Status:     "in_progress",
		StartedAt:  time.Now(),
	}
	if err := b.gdb.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, classify("start session", err)
	}
	return &remote.StartResult{Accepted: true, RemoteID: formatID(row.ID)}, nil
}

// CompleteSession implements remote.Backend. Completing with no active
// session is an accepted no-op so that retries converge.
func (b *Backend) CompleteSession(ctx context.Context, workerID, kind string) (*remote.CompleteResult, error) {
	var active RemoteSession
	err := b.gdb.WithContext(ctx).
		Where("worker_id = ? AND kind = ? AND status = ?", workerID, kind, "in_progress").
		First(&active).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &remote.CompleteResult{Accepted: true, Message: "no active session"}, nil
	}
	if err != nil {
		return nil, classify("complete session", err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":           "completed",
		"completed_at":     now,
		"duration_minutes": now.Sub(active.StartedAt).Minutes(),
	}
	if err := b.gdb.WithContext(ctx).Model(&RemoteSession{}).Where("id = ?", active.ID).Updates(updates).Error; err != nil {
		return nil, classify("complete session", err)
	}
	return &remote.CompleteResult{Accepted: true}, nil
}

// ManualClose implements remote.Backend. The local session id is stamped onto
// the closed row so a repeated close finds it and does nothing.
func (b *Backend) ManualClose(ctx context.Context, workerID, localSessionID string, closedAt time.Time) error {
	var existing RemoteSession
	err := b.gdb.WithContext(ctx).Where("local_session_id = ?", localSessionID).First(&existing).Error
	if err == nil {
		return nil // already closed by an earlier attempt
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return classify("manual close", err)
	}

	var active RemoteSession
	err = b.gdb.WithContext(ctx).
		Where("worker_id = ? AND status = ?", workerID, "in_progress").
		First(&active).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return classify("manual close", err)
	}

	updates := map[string]interface{}{
		"status":           "manually_closed",
		"completed_at":     closedAt,
		"duration_minutes": closedAt.Sub(active.StartedAt).Minutes(),
		"local_session_id": localSessionID,
	}
	if err := b.gdb.WithContext(ctx).Model(&RemoteSession{}).Where("id = ?", active.ID).Updates(updates).Error; err != nil {
		return classify("manual close", err)
	}
	return nil
}

// AutoClose implements remote.Backend.
func (b *Backend) AutoClose(ctx context.Context, remoteShiftID, workerID string, closedAt time.Time) error {
	var open []RemoteSession
	err := b.gdb.WithContext(ctx).
		Where("shift_id = ? AND worker_id = ? AND status = ?", remoteShiftID, workerID, "in_progress").
		Find(&open).Error
	if err != nil {
		return classify("auto close", err)
	}
	for _, row := range open {
		updates := map[string]interface{}{
			"status":           "auto_closed",
			"completed_at":     closedAt,
			"duration_minutes": closedAt.Sub(row.StartedAt).Minutes(),
		}
		if err := b.gdb.WithContext(ctx).Model(&RemoteSession{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
			return classify("auto close", err)
		}
	}
	return nil
}

// DirectInsert implements remote.Backend. The unique index on
// local_session_id turns a repeat into a fetch of the existing row.
func (b *Backend) DirectInsert(ctx context.Context, snap remote.Snapshot) (string, error) {
	completedAt := snap.CompletedAt
	row := RemoteSession{
		LocalSessionID:  &snap.LocalID,
		WorkerID:        snap.WorkerID,
		ShiftID:         snap.RemoteShiftID,
		Kind:            snap.Kind,
		BuildingID:      snap.Location.BuildingID,
		UnitID:          snap.Location.UnitID,
		Status:          snap.Status,
		StartedAt:       snap.StartedAt,
		CompletedAt:     &completedAt,
		DurationMinutes: snap.DurationMinutes,
		Notes:           snap.Notes,
	}
	err := b.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "local_session_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return "", classify("direct insert", err)
	}

	var stored RemoteSession
	if err := b.gdb.WithContext(ctx).Where("local_session_id = ?", snap.LocalID).First(&stored).Error; err != nil {
		return "", classify("direct insert", err)
	}
	return formatID(stored.ID), nil
}

// FetchBuildings implements remote.ReferenceSource.
func (b *Backend) FetchBuildings(ctx context.Context) ([]remote.BuildingRecord, error) {
	var rows []RemoteBuilding
	if err := b.gdb.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, classify("fetch buildings", err)
	}
	records := make([]remote.BuildingRecord, len(rows))
	for i, r := range rows {
		records[i] = remote.BuildingRecord{ID: r.ID, Name: r.Name, Address: r.Address}
	}
	return records, nil
}

// FetchUnits implements remote.ReferenceSource.
func (b *Backend) FetchUnits(ctx context.Context, buildingID string) ([]remote.UnitRecord, error) {
	var rows []RemoteUnit
	if err := b.gdb.WithContext(ctx).Where("building_id = ?", buildingID).Order("label ASC").Find(&rows).Error; err != nil {
		return nil, classify("fetch units", err)
	}
	records := make([]remote.UnitRecord, len(rows))
	for i, r := range rows {
		records[i] = remote.UnitRecord{ID: r.ID, BuildingID: r.BuildingID, Label: r.Label}
	}
	return records, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// classify wraps transport-level failures with remote.ErrUnavailable so the
// syncer leaves the session pending instead of marking it errored.
func classify(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sqlmysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("central: %s: %w: %v", op, remote.ErrUnavailable, err)
	}
	return fmt.Errorf("central: %s: %w", op, err)
}
