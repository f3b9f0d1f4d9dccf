package models

import "time"

// Venue is a bookable space owned by a vendor. Venues come from the
// service config and are cached by the database layer.
type Venue struct {
	ID          int64     `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	VendorID    int64     `yaml:"vendor_id" json:"vendor_id"`
	Capacity    int64     `yaml:"capacity" json:"capacity"`
	SortOrder   int64     `yaml:"sort_order" json:"sort_order"`
	IsActive    bool      `yaml:"is_active" json:"is_active"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}
