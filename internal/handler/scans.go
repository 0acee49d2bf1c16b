package handler

import (
	"net/http"
	"strconv"
	"time"

	"docscanner/internal/dto"
	"docscanner/internal/logger"
	"docscanner/internal/repository"
)

const (
	maxPageSize = 100
	maxPage     = 1_000_000
)

// GetScansHandler returns a filtered, paginated page of the scan history.
func GetScansHandler(logger *logger.Logger, scanRepo repository.ScanRepository, regionRepo repository.RegionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := min(atoiDefault(q.Get("page"), 1), maxPage)
		limit := min(atoiDefault(q.Get("limit"), 24), maxPageSize)

		filter := &dto.ScanFilters{
			Classification: q.Get("classification"),
			DateAfter:      parseDate(q.Get("dateAfter")),
			DateBefore:     parseDate(q.Get("dateBefore")),
			Limit:          limit,
			Offset:         (page - 1) * limit,
		}

		scans, err := scanRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying scans from database: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		totalCount, err := scanRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting scans: %v", err)
			totalCount = len(scans)
		}

		infos := make([]dto.ScanInfo, 0, len(scans))
		for _, s := range scans {
			kinds := []string{}
			if regionRepo != nil && s.Redacted {
				if k, err := regionRepo.GetKindsByScanID(s.ID); err != nil {
					logger.Error("Error getting regions for scan %d: %v", s.ID, err)
				} else if k != nil {
					kinds = k
				}
			}

			infos = append(infos, dto.ScanInfo{
				ID:             s.ID,
				ScanID:         s.ScanID,
				Filename:       s.Filename,
				Classification: s.Classification,
				Confidence:     s.Confidence,
				Date:           s.Timestamp,
				TimeOfDay:      s.Timestamp,
				Regions:        kinds,
			})
		}

		data := dto.ScansData{
			Scans:       infos,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}
		if err := writeJSON(w, http.StatusOK, data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ScanStatsHandler returns aggregate numbers over the history.
func ScanStatsHandler(logger *logger.Logger, scanRepo repository.ScanRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := scanRepo.GetStats()
		if err != nil {
			logger.Error("Error reading scan stats: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if err := writeJSON(w, http.StatusOK, stats); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// DeleteScanHandler removes one scan and its regions by row id.
func DeleteScanHandler(logger *logger.Logger, scanRepo repository.ScanRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "id required")
			return
		}

		if err := scanRepo.Delete(id); err != nil {
			logger.Error("Failed to delete scan %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		logger.Info("Deleted scan: %d", id)
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
	}
}

// ClearScansHandler deletes the whole history.
func ClearScansHandler(logger *logger.Logger, scanRepo repository.ScanRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if err := scanRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing scan history: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		logger.Info("Scan history cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
