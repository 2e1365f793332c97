// Package apperr defines the error kinds surfaced by the catalog, ledger and
// reservation layers. Callers classify with errors.Is.
package apperr

import "errors"

var (
	ErrInvalidFilter        = errors.New("invalid filter")
	ErrInvalidInput         = errors.New("invalid input")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrRequestNotFound      = errors.New("request not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrCapacityRaceExceeded = errors.New("capacity race retries exceeded")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidFilter, "InvalidFilter"},
	{ErrInvalidInput, "InvalidInput"},
	{ErrResourceNotFound, "ResourceNotFound"},
	{ErrRequestNotFound, "RequestNotFound"},
	{ErrOrganizationNotFound, "OrganizationNotFound"},
	{ErrInvalidTransition, "InvalidTransition"},
	{ErrStorageUnavailable, "StorageUnavailable"},
	{ErrCapacityRaceExceeded, "CapacityRaceExceeded"},
	{ErrSubscriptionNotFound, "SubscriptionNotFound"},
}

// Kind returns the taxonomy name of err, or "Internal" if it matches none.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
