package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus is the lifecycle state of a Request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusDenied    RequestStatus = "denied"
	StatusFulfilled RequestStatus = "fulfilled"
	StatusCancelled RequestStatus = "cancelled"
)

// Statuses lists every request status.
var Statuses = []RequestStatus{StatusPending, StatusApproved, StatusDenied, StatusFulfilled, StatusCancelled}

// transitions holds the allowed edges; statuses absent as keys are terminal.
var transitions = map[RequestStatus][]RequestStatus{
	StatusPending:  {StatusApproved, StatusDenied, StatusCancelled},
	StatusApproved: {StatusFulfilled, StatusCancelled},
}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (RequestStatus, bool) {
	st := RequestStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s RequestStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Request is a requester's claim against a Resource. Requests are never deleted.
type Request struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ResourceID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"resource_id"`
	RequesterName  string        `gorm:"size:256;not null" json:"requester_name"`
	RequesterPhone string        `gorm:"size:64;not null;default:''" json:"requester_phone"`
	RequesterNotes string        `gorm:"type:text;not null;default:''" json:"requester_notes"`
	Status         RequestStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	// Reserved is true when this request consumed one capacity slot.
	Reserved  bool      `gorm:"not null;default:false" json:"reserved"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	// Associations
	Resource *Resource `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// BeforeCreate assigns an ID when the caller did not.
func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
