package service

import (
	"unheard/internal/models"
)

// Authorize allows a write only when the acting device owns the record.
// Rows without an owner or owned by the legacy backfill are read-only.
func Authorize(actor models.Actor, ownerID, resource string) error {
	if actor.DeviceID == "" {
		return models.NewUnauthorizedError("A session is required")
	}
	if ownerID == "" || models.IsLegacyOwner(ownerID) {
		return models.NewPermissionDeniedError(resource + " cannot be modified")
	}
	if ownerID != actor.DeviceID {
		return models.NewPermissionDeniedError("You can only modify your own " + resource)
	}
	return nil
}
