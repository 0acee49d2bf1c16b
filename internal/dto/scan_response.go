package dto

// ScanResponse is the JSON body returned by the upload endpoint.
type ScanResponse struct {
	ScanID            string         `json:"scan_id"`
	Classification    string         `json:"classification"`
	Confidence        float64        `json:"confidence"`
	ProcessedImageURL string         `json:"processed_image_url"`
	OutputFormat      string         `json:"output_format"`
	RegionsRedacted   int            `json:"regions_redacted"`
	Regions           []RegionResult `json:"regions"`
}
