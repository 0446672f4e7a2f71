package models

import "time"

// Building is a cached row from the remote reference data, refreshed
// opportunistically so the device can present locations while offline.
type Building struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"not null"`
	Address   string
	UpdatedAt time.Time
}

// Unit is a sub-location of a building (apartment, floor, plant room).
type Unit struct {
	ID         string `gorm:"primaryKey;size:64"`
	BuildingID string `gorm:"size:64;not null;index"`
	Label      string `gorm:"not null"`
	UpdatedAt  time.Time
}
