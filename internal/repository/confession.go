package repository

import (
	"context"
	"log/slog"

	"unheard/internal/models"
	"unheard/internal/observability"

	"gorm.io/gorm"
)

// ConfessionRepository defines the interface for confession data operations
type ConfessionRepository interface {
	Create(ctx context.Context, confession *models.Confession) error
	GetByID(ctx context.Context, id string) (*models.Confession, error)
	List(ctx context.Context, filter models.ConfessionFilter, limit, offset int) ([]models.Confession, error)
	// Update writes the named columns of confession, zero values included.
	Update(ctx context.Context, confession *models.Confession, columns ...string) error
	UpdateDerived(ctx context.Context, id string, derived models.DerivedFields) error
	AdjustCommentsCount(ctx context.Context, id string, delta int) error
	Delete(ctx context.Context, id string) error
	// Community counts confessions, distinct authoring devices (legacy owners
	// excluded) and topiced confessions.
	Community(ctx context.Context) (models.CommunityStats, error)
}

type confessionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewConfessionRepository creates a new confession repository
func NewConfessionRepository(db *gorm.DB) ConfessionRepository {
	return &confessionRepository{db: db, log: observability.NewRepoLogger("confessions")}
}

func (r *confessionRepository) Create(ctx context.Context, confession *models.Confession) error {
	defer observability.TrackQuery("create", "confessions")()
	if confession.Tags == nil {
		confession.Tags = []string{}
	}
	if err := r.db.WithContext(ctx).Create(confession).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.Log(ctx, "create", slog.String("id", confession.ID))
	return nil
}

func (r *confessionRepository) GetByID(ctx context.Context, id string) (*models.Confession, error) {
	defer observability.TrackQuery("get", "confessions")()
	var confession models.Confession
	if err := r.db.WithContext(ctx).First(&confession, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Confession", id)
		}
		return nil, err
	}
	return &confession, nil
}

// List returns confessions matching filter. No filter and the tag filter are
// newest first; the topic and highlighted filters are oldest first.
func (r *confessionRepository) List(ctx context.Context, filter models.ConfessionFilter, limit, offset int) ([]models.Confession, error) {
	defer observability.TrackQuery("list", "confessions")()
	ctx, span := observability.TraceRepositoryMethod(ctx, "ListConfessions", "confessions")
	defer span.End()

	q := r.db.WithContext(ctx).Model(&models.Confession{})
	switch {
	case filter.Tag != "":
		q = q.Where("tags LIKE ?", `%"`+filter.Tag+`"%`).Order("timestamp DESC")
	case filter.Topic != "":
		q = q.Where("topic = ?", filter.Topic).Order("timestamp ASC")
	case filter.Highlighted:
		q = q.Where("is_highlighted = ?", true).Order("timestamp ASC")
	default:
		q = q.Order("timestamp DESC")
	}

	var out []models.Confession
	if err := paginate(q, limit, offset).Find(&out).Error; err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	return out, nil
}

func (r *confessionRepository) Update(ctx context.Context, confession *models.Confession, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	defer observability.TrackQuery("update", "confessions")()
	res := r.db.WithContext(ctx).Model(confession).Select(columns).Updates(confession)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Confession", confession.ID)
	}
	return nil
}

func (r *confessionRepository) UpdateDerived(ctx context.Context, id string, derived models.DerivedFields) error {
	fields := make(map[string]any, 2)
	if derived.IsHighlighted != nil {
		fields["is_highlighted"] = *derived.IsHighlighted
	}
	if derived.CommentsCount != nil {
		count := *derived.CommentsCount
		if count < 0 {
			count = 0
		}
		fields["comments_count"] = count
	}
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Confession{}).Where("id = ?", id).UpdateColumns(fields)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update_derived")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Confession", id)
	}
	return nil
}

// AdjustCommentsCount changes comments_count atomically in SQL, never below zero.
func (r *confessionRepository) AdjustCommentsCount(ctx context.Context, id string, delta int) error {
	if delta == 0 {
		return nil
	}
	expr := gorm.Expr("comments_count + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN comments_count + ? > 0 THEN comments_count + ? ELSE 0 END", delta, delta)
	}
	res := r.db.WithContext(ctx).Model(&models.Confession{}).
		Where("id = ?", id).
		UpdateColumn("comments_count", expr)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "adjust_comments_count")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Confession", id)
	}
	return nil
}

// Delete removes the confession with its reactions and comments in one transaction.
func (r *confessionRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "confessions")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("confession_id = ?", id).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("confession_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Confession{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Confession", id)
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.Log(ctx, "delete", slog.String("id", id))
	return nil
}

func (r *confessionRepository) Community(ctx context.Context) (models.CommunityStats, error) {
	defer observability.TrackQuery("community", "confessions")()
	ctx, span := observability.TraceRepositoryMethod(ctx, "CommunityStats", "confessions")
	defer span.End()

	var stats models.CommunityStats
	base := func() *gorm.DB { return r.db.WithContext(ctx).Model(&models.Confession{}) }
	err := base().Count(&stats.TotalConfessions).Error
	if err == nil {
		err = base().Where("device_id <> '' AND device_id NOT LIKE ?", models.LegacyDevicePrefix+"%").
			Distinct("device_id").Count(&stats.TotalUsers).Error
	}
	if err == nil {
		err = base().Where("topic <> ''").Count(&stats.TotalConnections).Error
	}
	if err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "community")
		return models.CommunityStats{}, err
	}
	return stats, nil
}
