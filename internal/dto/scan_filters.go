// ScanFilters describe user-provided filters to narrow the scan history.
package dto

import "time"

type ScanFilters struct {
	Classification string
	DateAfter      time.Time
	DateBefore     time.Time
	Limit          int
	Offset         int
}
