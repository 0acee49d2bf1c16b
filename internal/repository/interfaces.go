package repository

import (
	"docscanner/internal/dto"
	"docscanner/internal/model"
)

// ScanRepository defines the interface for scan history operations.
type ScanRepository interface {
	// Create operations
	Insert(scan *model.Scan) (int64, error)
	InsertWithRegions(scan *model.Scan, regions []model.Region) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Scan, error)
	GetByScanID(scanID string) (*model.Scan, error)
	GetAll(filter *dto.ScanFilters) ([]model.Scan, error)
	GetTotalCount(filter *dto.ScanFilters) (int, error)
	GetStats() (*model.ScanStats, error)

	// Delete operations
	Delete(id int64) error
	DeleteAll() error
}

// RegionRepository defines the interface for blurred region operations.
type RegionRepository interface {
	// Create operations
	InsertBatch(regions []model.Region) error

	// Read operations
	GetByScanID(scanID int64) ([]model.Region, error)
	GetKindsByScanID(scanID int64) ([]string, error)
}
