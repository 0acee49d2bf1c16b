package dto

// RegionResult describes one blurred area in a scan response.
type RegionResult struct {
	Kind       string  `json:"kind"`
	XMin       int     `json:"x_min"`
	YMin       int     `json:"y_min"`
	XMax       int     `json:"x_max"`
	YMax       int     `json:"y_max"`
	Confidence float64 `json:"confidence"`
}
