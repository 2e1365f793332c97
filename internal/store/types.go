package store

import (
	"github.com/google/uuid"

	"aidfinder-backend/internal/model"
)

// ResourceQuery carries the predicates pushed down to SQL. Empty fields do
// not filter.
type ResourceQuery struct {
	Category           model.Category
	OrganizationIDs    []uuid.UUID
	Keyword            string
	City               string
	RequireCoordinates bool
}
