package entity

import "time"

// Lifecycle is the shared soft-delete value embedded in every aggregate.
// Queries must filter on Active explicitly; rows are never hard-deleted.
type Lifecycle struct {
	Active    bool       `json:"active"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy string     `json:"deletedBy,omitempty"`
}

// NewLifecycle returns the live state for a freshly created aggregate
func NewLifecycle() Lifecycle {
	return Lifecycle{Active: true}
}

// Delete marks the aggregate as soft-deleted
func (l *Lifecycle) Delete(userID string, at time.Time) {
	l.Active = false
	l.DeletedAt = &at
	l.DeletedBy = userID
}
