package service

import (
	"errors"

	"unheard/internal/models"
)

// wrapRead passes AppErrors through and marks anything else as a transient
// store failure.
func wrapRead(operation string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewTransientStoreError(operation, err)
}
