package service

import "litrevu/internal/model"

// Owned is anything with a single owning account.
type Owned interface {
	OwnerID() int64
}

// AssertOwner allows the action only when callerID owns item.
func AssertOwner(item Owned, callerID int64) error {
	if item == nil || item.OwnerID() != callerID {
		return model.ErrForbidden
	}
	return nil
}
