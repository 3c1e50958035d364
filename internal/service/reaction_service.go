package service

import (
	"context"
	"fmt"
	"log/slog"

	"unheard/internal/featureflags"
	"unheard/internal/models"
	"unheard/internal/observability"
	"unheard/internal/repository"

	"golang.org/x/sync/singleflight"
)

type ReactionService struct {
	reactions   repository.ReactionRepository
	confessions repository.ConfessionRepository
	flags       *featureflags.Manager
	inflight    singleflight.Group
}

func NewReactionService(
	reactions repository.ReactionRepository,
	confessions repository.ConfessionRepository,
	flags *featureflags.Manager,
) *ReactionService {
	return &ReactionService{
		reactions:   reactions,
		confessions: confessions,
		flags:       flags,
	}
}

// Toggle adds the device's reaction of type t or removes it when present.
// Identical toggles that overlap share one database call and one result.
func (s *ReactionService) Toggle(ctx context.Context, actor models.Actor, confessionID string, t models.ReactionType) (*models.ToggleResult, error) {
	if actor.DeviceID == "" {
		return nil, models.NewUnauthorizedError("A session is required")
	}
	if !t.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("Unknown reaction type %q", t))
	}
	if _, err := s.confessions.GetByID(ctx, confessionID); err != nil {
		return nil, wrapRead("get confession", err)
	}

	key := confessionID + "|" + actor.DeviceID + "|" + string(t)
	v, err, shared := s.inflight.Do(key, func() (interface{}, error) {
		exclusive := s.flags.Enabled(featureflags.ExclusiveReactions, actor.DeviceID)
		added, err := s.reactions.Toggle(ctx, confessionID, actor.DeviceID, t, exclusive)
		if err != nil {
			return false, err
		}
		observability.ReactionTogglesTotal.WithLabelValues(toggleResult(added)).Inc()
		return added, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		observability.SingleflightSharedTotal.WithLabelValues("reaction_toggle").Inc()
	}
	added := v.(bool)
	observability.GlobalLogger.DebugContext(ctx, "reaction toggled",
		slog.String("confession_id", confessionID),
		slog.String("type", string(t)),
		slog.String("result", toggleResult(added)),
		slog.Bool("shared", shared),
	)
	return &models.ToggleResult{Added: added, ReactionType: t}, nil
}

// State returns zero-filled counts and the caller's reactions.
func (s *ReactionService) State(ctx context.Context, actor models.Actor, confessionID string) (models.ReactionState, error) {
	if _, err := s.confessions.GetByID(ctx, confessionID); err != nil {
		return models.ReactionState{}, wrapRead("get confession", err)
	}
	state, err := s.reactions.State(ctx, confessionID, actor.DeviceID)
	if err != nil {
		return models.ReactionState{}, models.NewTransientStoreError("get reactions", err)
	}
	return state, nil
}

func toggleResult(added bool) string {
	if added {
		return "added"
	}
	return "removed"
}
