package models

import "time"

// OperatorState holds per-vendor UI state for the inquiry list. The sort
// preference only shapes the display view; admission order is always
// arrival order and never reads this.
type OperatorState struct {
	VendorID  int64     `json:"vendor_id"`
	SortKey   string    `json:"sort_key"`
	SortDir   string    `json:"sort_dir"`
	UpdatedAt time.Time `json:"updated_at"`
}
