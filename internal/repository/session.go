package repository

import (
	"context"
	"time"

	"unheard/internal/models"

	"gorm.io/gorm"
)

// SessionRepository stores anonymous sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.AnonymousSession) error
	GetByID(ctx context.Context, id string) (*models.AnonymousSession, error)
	// DeviceEnrolled reports whether any session, revoked or not, was ever
	// issued to deviceID.
	DeviceEnrolled(ctx context.Context, deviceID string) (bool, error)
	// Renew moves the expiry of a non-revoked session and records when it was seen.
	Renew(ctx context.Context, id string, expiresAt, seenAt time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.AnonymousSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*models.AnonymousSession, error) {
	var session models.AnonymousSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Session", id)
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) DeviceEnrolled(ctx context.Context, deviceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AnonymousSession{}).
		Where("device_id = ?", deviceID).
		Count(&count).Error
	return count > 0, err
}

func (r *sessionRepository) Renew(ctx context.Context, id string, expiresAt, seenAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.AnonymousSession{}).
		Where("id = ? AND revoked_at IS NULL", id).
		UpdateColumns(map[string]any{"expires_at": expiresAt, "last_seen_at": seenAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Session", id)
	}
	return nil
}

func (r *sessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.AnonymousSession{}).
		Where("id = ? AND revoked_at IS NULL", id).
		UpdateColumn("revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Session", id)
	}
	return nil
}
