package dto

import (
	"encoding/json"
	"time"
)

// ScanInfo represents one history entry as shown to clients.
type ScanInfo struct {
	ID             int64     `json:"id"`
	ScanID         string    `json:"scanId"`
	Filename       string    `json:"filename"`
	Classification string    `json:"classification"`
	Confidence     float64   `json:"confidence"`
	Date           time.Time `json:"date"`
	TimeOfDay      time.Time `json:"timeOfDay"`
	Regions        []string  `json:"regions"` // kinds of blurred regions
}

// MarshalJSON customizes JSON output for ScanInfo to format date and time-of-day.
func (s ScanInfo) MarshalJSON() ([]byte, error) {
	type Alias ScanInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      s.Date.Format("02-01-2006"),
		TimeOfDay: s.TimeOfDay.Format("15:04"),
		Alias:     (Alias)(s),
	})
}
