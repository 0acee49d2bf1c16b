package model

import "time"

// Scan represents one processed upload.
type Scan struct {
	ID             int64     `json:"id"`
	ScanID         string    `json:"scan_id"`
	Filename       string    `json:"filename"`
	Classification string    `json:"classification"`
	Confidence     float64   `json:"confidence"`
	Redacted       bool      `json:"redacted"`
	OutputFormat   string    `json:"output_format"`
	FileSize       int64     `json:"filesize"`
	Timestamp      time.Time `json:"timestamp"`
}

// ScanStats contains aggregate numbers over the scan history.
type ScanStats struct {
	TotalScans     int            `json:"total_scans"`
	PerLabel       map[string]int `json:"per_label"`
	RedactedScans  int            `json:"redacted_scans"`
	RegionsPerKind map[string]int `json:"regions_per_kind"`
}
