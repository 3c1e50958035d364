package repository

import (
	"context"
	"errors"
	"time"

	"unheard/internal/models"
	"unheard/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReactionRepository defines the interface for reaction data operations
type ReactionRepository interface {
	// Toggle removes the device's reaction of type t if present, otherwise adds it.
	// With exclusive set, adding also removes the device's other types.
	Toggle(ctx context.Context, confessionID, deviceID string, t models.ReactionType, exclusive bool) (bool, error)
	State(ctx context.Context, confessionID, deviceID string) (models.ReactionState, error)
	ListByConfession(ctx context.Context, confessionID string) ([]models.Reaction, error)
}

type reactionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
	now func() time.Time
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{
		db:  db,
		log: observability.NewRepoLogger("reactions"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// errConcurrentInsert aborts the toggle transaction when another writer
// inserted the same triple first.
var errConcurrentInsert = errors.New("reaction inserted concurrently")

func (r *reactionRepository) Toggle(ctx context.Context, confessionID, deviceID string, t models.ReactionType, exclusive bool) (bool, error) {
	defer observability.TrackQuery("toggle", "reactions")()
	ctx, span := observability.TraceRepositoryMethod(ctx, "ToggleReaction", "reactions")
	defer span.End()

	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("confession_id = ? AND device_id = ? AND type = ?", confessionID, deviceID, t).
			Delete(&models.Reaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		if exclusive {
			if err := tx.Where("confession_id = ? AND device_id = ?", confessionID, deviceID).
				Delete(&models.Reaction{}).Error; err != nil {
				return err
			}
		}

		reaction := models.Reaction{
			ID:           uuid.NewString(),
			ConfessionID: confessionID,
			DeviceID:     deviceID,
			Type:         t,
			Timestamp:    r.now(),
		}
		if err := tx.Create(&reaction).Error; err != nil {
			if isUniqueConstraintError(err) {
				return errConcurrentInsert
			}
			return err
		}
		added = true
		return nil
	})

	if errors.Is(err, errConcurrentInsert) {
		// the row the caller asked for exists; only one copy is kept. The
		// rollback also undid the exclusive delete, so it runs again.
		err = nil
		added = true
		if exclusive {
			err = r.db.WithContext(ctx).
				Where("confession_id = ? AND device_id = ? AND type <> ?", confessionID, deviceID, t).
				Delete(&models.Reaction{}).Error
		}
	}
	if err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "toggle")
		return false, err
	}
	return added, nil
}

type typeCount struct {
	Type  models.ReactionType
	Count int
}

// State returns zero-filled counts for every supported type and the types the
// device holds. Rows with unsupported types are ignored.
func (r *reactionRepository) State(ctx context.Context, confessionID, deviceID string) (models.ReactionState, error) {
	state := models.NewReactionState()

	var counts []typeCount
	if err := r.db.WithContext(ctx).Model(&models.Reaction{}).
		Select("type, COUNT(*) AS count").
		Where("confession_id = ?", confessionID).
		Group("type").
		Scan(&counts).Error; err != nil {
		return models.ReactionState{}, err
	}
	for _, c := range counts {
		if c.Type.Valid() {
			state.Counts[c.Type] = c.Count
		}
	}

	if deviceID == "" {
		return state, nil
	}
	var mine []models.ReactionType
	if err := r.db.WithContext(ctx).Model(&models.Reaction{}).
		Where("confession_id = ? AND device_id = ?", confessionID, deviceID).
		Order("timestamp ASC").
		Pluck("type", &mine).Error; err != nil {
		return models.ReactionState{}, err
	}
	for _, t := range mine {
		if t.Valid() {
			state.UserReactions = append(state.UserReactions, t)
		}
	}
	return state, nil
}

func (r *reactionRepository) ListByConfession(ctx context.Context, confessionID string) ([]models.Reaction, error) {
	var out []models.Reaction
	err := r.db.WithContext(ctx).
		Where("confession_id = ?", confessionID).
		Order("timestamp ASC").
		Find(&out).Error
	return out, err
}
