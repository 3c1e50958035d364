package service

import (
	"context"
	"time"

	"unheard/internal/models"
	"unheard/internal/repository"
	"unheard/internal/validation"

	"github.com/google/uuid"
)

type CommentService struct {
	commentRepo    repository.CommentRepository
	confessionRepo repository.ConfessionRepository
	effects        *EffectQueue
	avatars        validation.AvatarSeeder
	now            func() time.Time
}

type AddCommentInput struct {
	ConfessionID string `json:"-"`
	Text         string `json:"text"`
	Username     string `json:"username"`
	Avatar       string `json:"avatar"`
}

type DeleteCommentInput struct {
	ConfessionID string
	CommentID    string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	confessionRepo repository.ConfessionRepository,
	effects *EffectQueue,
	avatars validation.AvatarSeeder,
) *CommentService {
	return &CommentService{
		commentRepo:    commentRepo,
		confessionRepo: confessionRepo,
		effects:        effects,
		avatars:        avatars,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Add stores the comment, then bumps the confession's comment count as a
// secondary effect. The comment exists even if the count is not updated.
func (s *CommentService) Add(ctx context.Context, actor models.Actor, in AddCommentInput) (*models.Comment, error) {
	if actor.DeviceID == "" {
		return nil, models.NewUnauthorizedError("A session is required")
	}
	text, username, err := validation.ValidateComment(in.Text, in.Username)
	if err != nil {
		return nil, err
	}
	if _, err := s.confessionRepo.GetByID(ctx, in.ConfessionID); err != nil {
		return nil, wrapRead("get confession", err)
	}

	comment := &models.Comment{
		ID:           uuid.NewString(),
		ConfessionID: in.ConfessionID,
		Username:     validation.CommentUsername(username, actor.DeviceID),
		Text:         text,
		Timestamp:    s.now(),
		Avatar:       s.avatars.ResolveAvatar(in.Avatar, actor.DeviceID),
		DeviceID:     actor.DeviceID,
		IsMine:       true,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	confessionID := in.ConfessionID
	s.effects.Enqueue(ctx, EffectCommentCountInc, confessionID, func(ctx context.Context) error {
		return s.confessionRepo.AdjustCommentsCount(ctx, confessionID, 1)
	})
	return comment, nil
}

// List returns the confession's comments, newest first.
func (s *CommentService) List(ctx context.Context, actor models.Actor, confessionID string) ([]models.Comment, error) {
	if _, err := s.confessionRepo.GetByID(ctx, confessionID); err != nil {
		return nil, wrapRead("get confession", err)
	}
	comments, err := s.commentRepo.ListByConfession(ctx, confessionID)
	if err != nil {
		return nil, models.NewTransientStoreError("list comments", err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	for i := range comments {
		comments[i].IsMine = actor.DeviceID != "" && comments[i].DeviceID == actor.DeviceID
	}
	return comments, nil
}

// Delete removes the caller's own comment and decrements the count.
func (s *CommentService) Delete(ctx context.Context, actor models.Actor, in DeleteCommentInput) error {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return wrapRead("get comment", err)
	}
	if comment.ConfessionID != in.ConfessionID {
		return models.NewNotFoundError("Comment", in.CommentID)
	}
	if err := Authorize(actor, comment.DeviceID, "comments"); err != nil {
		return err
	}
	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return err
	}

	confessionID := comment.ConfessionID
	s.effects.Enqueue(ctx, EffectCommentCountDec, confessionID, func(ctx context.Context) error {
		return s.confessionRepo.AdjustCommentsCount(ctx, confessionID, -1)
	})
	return nil
}
