package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource is a service offering with trackable capacity.
//
// CapacityAvailable is nil when the resource does not track capacity. When it
// is set, 0 <= *CapacityAvailable <= CapacityTotal holds at all times; only the
// reservation coordinator and the explicit restock path write it.
type Resource struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID             *uuid.UUID `gorm:"type:uuid;index" json:"org_id"`
	Name              string     `gorm:"size:256;not null;index" json:"name"`
	Category          Category   `gorm:"size:32;not null;index" json:"category"`
	Description       string     `gorm:"type:text" json:"description"`
	Address           string     `gorm:"size:256" json:"address"`
	City              string     `gorm:"size:128" json:"city"`
	State             string     `gorm:"size:64" json:"state"`
	Zip               string     `gorm:"size:16" json:"zip"`
	Phone             string     `gorm:"size:64" json:"phone"`
	Website           string     `gorm:"size:512" json:"website"`
	Lat               *float64   `json:"lat"`
	Lng               *float64   `json:"lng"`
	CapacityTotal     int        `gorm:"not null;default:0;check:chk_resources_capacity_total,capacity_total >= 0" json:"capacity_total"`
	CapacityAvailable *int       `gorm:"check:chk_resources_capacity_available,capacity_available IS NULL OR (capacity_available >= 0 AND capacity_available <= capacity_total)" json:"capacity_available"`
	CreatedAt         time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`

	// Associations
	Organization *Organization `gorm:"foreignKey:OrgID;constraint:OnDelete:SET NULL" json:"-"`
}

// BeforeCreate assigns an ID when the caller did not.
func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// HasCoordinates reports whether both lat and lng are present.
func (r *Resource) HasCoordinates() bool {
	return r.Lat != nil && r.Lng != nil
}

// TracksCapacity reports whether capacity_available is recorded.
func (r *Resource) TracksCapacity() bool {
	return r.CapacityAvailable != nil
}
