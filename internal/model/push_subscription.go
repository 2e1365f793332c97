package model

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription holds a browser push subscription for staff who want to
// hear about new requests against specific resources.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Resources []*Resource `gorm:"many2many:subscription_resource_mapping;"`
}

// SubscribedResourceIDs returns the IDs of the loaded Resources association.
func (p *PushSubscription) SubscribedResourceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Resources))
	for i, r := range p.Resources {
		ids[i] = r.ID
	}
	return ids
}
