package database

import (
	"context"
	"fmt"
	"log/slog"

	"unheard/internal/middleware"
	"unheard/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BackfillReport counts rows given the legacy owner id.
type BackfillReport struct {
	LegacyDeviceID string
	Confessions    int64
	Comments       int64
	Reactions      int64
}

// BackfillLegacyDevices assigns one shared "legacy-<uuid>" owner to every
// confession, comment and reaction written without a device id. The run is
// a single transaction and is a no-op once no ownerless rows remain.
func BackfillLegacyDevices(ctx context.Context, db *gorm.DB) (*BackfillReport, error) {
	report := &BackfillReport{LegacyDeviceID: models.LegacyDevicePrefix + uuid.NewString()}

	targets := []struct {
		model any
		count *int64
	}{
		{&models.Confession{}, &report.Confessions},
		{&models.Comment{}, &report.Comments},
		{&models.Reaction{}, &report.Reactions},
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range targets {
			res := tx.Model(t.model).
				Where("device_id IS NULL OR device_id = ''").
				Update("device_id", report.LegacyDeviceID)
			if res.Error != nil {
				return fmt.Errorf("backfill %T: %w", t.model, res.Error)
			}
			*t.count = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "Legacy device backfill completed",
		slog.String("legacy_device_id", report.LegacyDeviceID),
		slog.Int64("confessions", report.Confessions),
		slog.Int64("comments", report.Comments),
		slog.Int64("reactions", report.Reactions),
	)
	return report, nil
}
