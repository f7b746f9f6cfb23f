package shared

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot is the interface for aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
}

// BaseAggregateRoot provides common fields for aggregate roots.
// Version backs optimistic locking: repositories include it in the
// update predicate and treat zero affected rows as a conflict.
type BaseAggregateRoot struct {
	BaseEntity
	Version int `gorm:"not null;default:1"`
}

// GetVersion returns the aggregate version
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the aggregate version
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
	a.UpdatedAt = time.Now()
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// OwnedAggregateRoot is an aggregate root scoped to the user who created it.
// All reads and writes go through the owner; a mismatch is an authorization
// failure, not a missing record.
type OwnedAggregateRoot struct {
	BaseAggregateRoot
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// GetOwnerID returns the owning user ID
func (a *OwnedAggregateRoot) GetOwnerID() uuid.UUID {
	return a.OwnerID
}

// IsOwnedBy reports whether the aggregate belongs to the given user
func (a *OwnedAggregateRoot) IsOwnedBy(userID uuid.UUID) bool {
	return a.OwnerID == userID
}

// NewOwnedAggregateRoot creates a new owner-scoped aggregate root
func NewOwnedAggregateRoot(ownerID uuid.UUID) OwnedAggregateRoot {
	return OwnedAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		OwnerID:           ownerID,
	}
}
