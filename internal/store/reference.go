package store

import (
	"github.com/crewclock/crewclock/internal/models"
	"gorm.io/gorm/clause"
)

// UpsertBuildings refreshes the cached building reference data.
func (s *Store) UpsertBuildings(buildings []models.Building) error {
	if err := s.EnsureSchema(); err != nil {
		return err
	}
	if len(buildings) == 0 {
		return nil
	}
	result := s.gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "address", "updated_at"}),
	}).Create(&buildings)
	return opErr("upsert buildings", result.Error)
}

// UpsertUnits refreshes the cached unit reference data.
func (s *Store) UpsertUnits(units []models.Unit) error {
	if err := s.EnsureSchema(); err != nil {
		return err
	}
	if len(units) == 0 {
		return nil
	}
	result := s.gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"building_id", "label", "updated_at"}),
	}).Create(&units)
	return opErr("upsert units", result.Error)
}

// Buildings lists the cached buildings ordered by name.
func (s *Store) Buildings() ([]models.Building, error) {
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	var buildings []models.Building
	if err := s.gdb.Order("name ASC").Find(&buildings).Error; err != nil {
		return nil, opErr("list buildings", err)
	}
	return buildings, nil
}

// UnitsForBuilding lists the cached units of one building ordered by label.
func (s *Store) UnitsForBuilding(buildingID string) ([]models.Unit, error) {
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	var units []models.Unit
	err := s.gdb.Where("building_id = ?", buildingID).Order("label ASC").Find(&units).Error
	if err != nil {
		return nil, opErr("list units", err)
	}
	return units, nil
}
