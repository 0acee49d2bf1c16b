package dto

import "time"

// ScanEvent is broadcast to websocket viewers after each processed upload.
type ScanEvent struct {
	ScanID         string         `json:"scan_id"`
	Filename       string         `json:"filename"`
	Classification string         `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Regions        []RegionResult `json:"regions"`
	Timestamp      time.Time      `json:"timestamp"`
}
