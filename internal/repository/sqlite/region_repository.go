package sqlite

import (
	"fmt"

	"docscanner/internal/model"
)

// RegionRepository implements repository.RegionRepository for SQLite.
type RegionRepository struct {
	db *DB
}

// NewRegionRepository creates a new SQLite region repository.
func NewRegionRepository(db *DB) *RegionRepository {
	return &RegionRepository{db: db}
}

const insertRegionQuery = `
	INSERT INTO regions (scan_id, kind, x_min, y_min, x_max, y_max, kernel, confidence)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertBatch adds multiple regions in a single transaction.
func (r *RegionRepository) InsertBatch(regions []model.Region) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertRegionQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, reg := range regions {
		if _, err := stmt.Exec(reg.ScanID, reg.Kind, reg.XMin, reg.YMin, reg.XMax, reg.YMax, reg.Kernel, reg.Confidence); err != nil {
			return fmt.Errorf("failed to insert region: %w", err)
		}
	}

	return tx.Commit()
}

// GetByScanID retrieves all regions blurred in a scan.
func (r *RegionRepository) GetByScanID(scanID int64) ([]model.Region, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, scan_id, kind, x_min, y_min, x_max, y_max, kernel, confidence
		FROM regions WHERE scan_id = ? ORDER BY id
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query regions: %w", err)
	}
	defer rows.Close()

	var regions []model.Region
	for rows.Next() {
		var reg model.Region
		if err := rows.Scan(&reg.ID, &reg.ScanID, &reg.Kind, &reg.XMin, &reg.YMin, &reg.XMax, &reg.YMax, &reg.Kernel, &reg.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		regions = append(regions, reg)
	}
	return regions, rows.Err()
}

// GetKindsByScanID returns the distinct kinds blurred in a scan.
func (r *RegionRepository) GetKindsByScanID(scanID int64) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT kind FROM regions WHERE scan_id = ? ORDER BY kind`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query region kinds: %w", err)
	}
	defer rows.Close()

	var kinds []string
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("failed to scan region kind: %w", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, rows.Err()
}
