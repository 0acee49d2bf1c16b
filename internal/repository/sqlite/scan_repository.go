package sqlite

import (
	"database/sql"
	"fmt"

	"docscanner/internal/dto"
	"docscanner/internal/model"
)

// ScanRepository implements repository.ScanRepository for SQLite.
type ScanRepository struct {
	db *DB
}

// NewScanRepository creates a new SQLite scan repository.
func NewScanRepository(db *DB) *ScanRepository {
	return &ScanRepository{db: db}
}

const scanColumns = `id, scan_id, filename, classification, confidence, redacted, output_format, filesize, timestamp`

func scanRow(row interface{ Scan(...any) error }) (model.Scan, error) {
	var s model.Scan
	err := row.Scan(&s.ID, &s.ScanID, &s.Filename, &s.Classification, &s.Confidence, &s.Redacted, &s.OutputFormat, &s.FileSize, &s.Timestamp)
	return s, err
}

const insertScanQuery = `
	INSERT INTO scans (scan_id, filename, classification, confidence, redacted, output_format, filesize, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Insert adds a new scan record to the database.
func (r *ScanRepository) Insert(scan *model.Scan) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertScanQuery,
		scan.ScanID, scan.Filename, scan.Classification, scan.Confidence, scan.Redacted, scan.OutputFormat, scan.FileSize, scan.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan: %w", err)
	}
	return result.LastInsertId()
}

// InsertWithRegions stores a scan and its blurred regions in one transaction.
func (r *ScanRepository) InsertWithRegions(scan *model.Scan, regions []model.Region) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(insertScanQuery,
		scan.ScanID, scan.Filename, scan.Classification, scan.Confidence, scan.Redacted, scan.OutputFormat, scan.FileSize, scan.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(regions) > 0 {
		stmt, err := tx.Prepare(insertRegionQuery)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, reg := range regions {
			if _, err := stmt.Exec(id, reg.Kind, reg.XMin, reg.YMin, reg.XMax, reg.YMax, reg.Kernel, reg.Confidence); err != nil {
				return 0, fmt.Errorf("failed to insert region: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan: %w", err)
	}
	return id, nil
}

// GetByID retrieves a scan by its row ID.
func (r *ScanRepository) GetByID(id int64) (*model.Scan, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	s, err := scanRow(r.db.Conn().QueryRow(`SELECT `+scanColumns+` FROM scans WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return &s, nil
}

// GetByScanID retrieves a scan by its public identifier.
func (r *ScanRepository) GetByScanID(scanID string) (*model.Scan, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	s, err := scanRow(r.db.Conn().QueryRow(`SELECT `+scanColumns+` FROM scans WHERE scan_id = ?`, scanID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return &s, nil
}

// whereClause builds the filter part shared by GetAll and GetTotalCount.
func whereClause(filter *dto.ScanFilters) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}

	if filter.Classification != "" {
		query += " AND classification = ?"
		args = append(args, filter.Classification)
	}

	if !filter.DateAfter.IsZero() {
		query += " AND DATE(timestamp) >= DATE(?)"
		args = append(args, filter.DateAfter)
	}

	if !filter.DateBefore.IsZero() {
		query += " AND DATE(timestamp) <= DATE(?)"
		args = append(args, filter.DateBefore)
	}

	return query, args
}

// GetAll retrieves scans based on filter criteria, newest first.
func (r *ScanRepository) GetAll(filter *dto.ScanFilters) ([]model.Scan, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `SELECT ` + scanColumns + ` FROM scans` + where + " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []model.Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, s)
	}
	return scans, rows.Err()
}

// GetTotalCount returns the total count of scans matching the filter.
func (r *ScanRepository) GetTotalCount(filter *dto.ScanFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM scans`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count scans: %w", err)
	}
	return count, nil
}

// GetStats returns aggregate numbers over the scan history.
func (r *ScanRepository) GetStats() (*model.ScanStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.ScanStats{
		PerLabel:       make(map[string]int),
		RegionsPerKind: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM scans`).Scan(&stats.TotalScans); err != nil {
		return nil, err
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM scans WHERE redacted = 1`).Scan(&stats.RedactedScans); err != nil {
		return nil, err
	}

	if err := r.countInto(`SELECT classification, COUNT(*) FROM scans GROUP BY classification`, stats.PerLabel); err != nil {
		return nil, err
	}

	if err := r.countInto(`SELECT kind, COUNT(*) FROM regions GROUP BY kind`, stats.RegionsPerKind); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *ScanRepository) countInto(query string, dst map[string]int) error {
	rows, err := r.db.Conn().Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dst[key] = count
	}
	return rows.Err()
}

// Delete removes a scan and its regions.
func (r *ScanRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM regions WHERE scan_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete regions: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM scans WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	return nil
}

// DeleteAll removes the whole history.
func (r *ScanRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM regions`); err != nil {
		return fmt.Errorf("failed to delete regions: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM scans`); err != nil {
		return fmt.Errorf("failed to delete scans: %w", err)
	}
	return nil
}
