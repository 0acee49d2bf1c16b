package model

// Region represents a blurred area of a scanned image.
type Region struct {
	ID         int64   `json:"id"`
	ScanID     int64   `json:"scan_id"`
	Kind       string  `json:"kind"`
	XMin       int     `json:"x_min"`
	YMin       int     `json:"y_min"`
	XMax       int     `json:"x_max"`
	YMax       int     `json:"y_max"`
	Kernel     int     `json:"kernel"`
	Confidence float64 `json:"confidence"`
}
