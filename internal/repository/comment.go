package repository

import (
	"context"
	"log/slog"

	"unheard/internal/models"
	"unheard/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByConfession(ctx context.Context, confessionID string) ([]models.Comment, error)
	Delete(ctx context.Context, id string) error
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.Log(ctx, "create", slog.String("id", comment.ID), slog.String("confession_id", comment.ConfessionID))
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, err
	}
	return &comment, nil
}

// ListByConfession returns the confession's comments, newest first.
func (r *commentRepository) ListByConfession(ctx context.Context, confessionID string) ([]models.Comment, error) {
	defer observability.TrackQuery("list", "comments")()
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("confession_id = ?", confessionID).
		Order("timestamp DESC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	r.log.Log(ctx, "delete", slog.String("id", id))
	return nil
}
