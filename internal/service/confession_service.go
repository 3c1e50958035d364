package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"unheard/internal/cache"
	"unheard/internal/models"
	"unheard/internal/observability"
	"unheard/internal/repository"
	"unheard/internal/validation"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type ConfessionService struct {
	repo       repository.ConfessionRepository
	aggregator *Aggregator
	reactions  *ReactionService
	effects    *EffectQueue
	cache      *cache.Store
	catalog    *models.Catalog
	avatars    validation.AvatarSeeder
	now        func() time.Time
}

type CreateConfessionInput struct {
	Text            string              `json:"text"`
	Tags            []string            `json:"tags"`
	Username        string              `json:"username"`
	Mood            string              `json:"mood"`
	Topic           string              `json:"topic"`
	Anonymous       bool                `json:"anonymous"`
	Avatar          string              `json:"avatar"`
	InitialReaction models.ReactionType `json:"initial_reaction,omitempty"`
}

type ListConfessionsInput struct {
	Filter models.ConfessionFilter
	Limit  int
	Offset int
}

func NewConfessionService(
	repo repository.ConfessionRepository,
	aggregator *Aggregator,
	reactions *ReactionService,
	effects *EffectQueue,
	store *cache.Store,
	catalog *models.Catalog,
	avatars validation.AvatarSeeder,
) *ConfessionService {
	if catalog == nil {
		catalog = models.DefaultCatalog()
	}
	return &ConfessionService{
		repo:       repo,
		aggregator: aggregator,
		reactions:  reactions,
		effects:    effects,
		cache:      store,
		catalog:    catalog,
		avatars:    avatars,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the submission before touching the store. An initial
// reaction is applied afterwards as a secondary effect.
func (s *ConfessionService) Create(ctx context.Context, actor models.Actor, in CreateConfessionInput) (*models.EnrichedConfession, error) {
	if actor.DeviceID == "" {
		return nil, models.NewUnauthorizedError("A session is required")
	}
	fields, err := validation.ValidateConfession(s.catalog, validation.ConfessionFields{
		Text:      in.Text,
		Tags:      in.Tags,
		Username:  in.Username,
		Mood:      in.Mood,
		Topic:     in.Topic,
		Anonymous: in.Anonymous,
	})
	if err != nil {
		return nil, err
	}
	if in.InitialReaction != "" && !in.InitialReaction.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("Unknown reaction type %q", in.InitialReaction))
	}

	confession := &models.Confession{
		ID:        uuid.NewString(),
		Text:      fields.Text,
		Tags:      fields.Tags,
		Timestamp: s.now(),
		Username:  validation.ConfessionUsername(fields.Username, fields.Anonymous, actor.DeviceID),
		Avatar:    s.avatars.ResolveAvatar(in.Avatar, actor.DeviceID),
		Mood:      fields.Mood,
		Topic:     fields.Topic,
		Anonymous: fields.Anonymous,
		DeviceID:  actor.DeviceID,
	}
	if err := s.repo.Create(ctx, confession); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.TopicStatsKey, cache.CommunityKey)

	if in.InitialReaction != "" && s.reactions != nil {
		rt := in.InitialReaction
		s.effects.Enqueue(ctx, EffectInitialReaction, confession.ID, func(ctx context.Context) error {
			_, err := s.reactions.Toggle(ctx, actor, confession.ID, rt)
			return err
		})
	}

	observability.GlobalLogger.InfoContext(ctx, "confession created",
		slog.String("confession_id", confession.ID),
		slog.Int("tags", len(confession.Tags)),
	)
	view := models.EnrichedConfession{
		Confession: *confession,
		Comments:   []models.Comment{},
		Reactions:  models.NewReactionState().Summaries(),
		IsMine:     true,
	}
	return &view, nil
}

// List returns enriched confessions. No filter and the tag filter are newest
// first, the topic and highlighted filters oldest first.
func (s *ConfessionService) List(ctx context.Context, actor models.Actor, in ListConfessionsInput) ([]models.EnrichedConfession, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	filter := in.Filter
	if filter.Tag != "" {
		tags, err := validation.NormalizeTags(s.catalog, []string{filter.Tag})
		if err != nil {
			return nil, err
		}
		filter.Tag = tags[0]
	}

	confessions, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, models.NewTransientStoreError("list confessions", err)
	}
	return s.aggregator.Enrich(ctx, actor, confessions), nil
}

func (s *ConfessionService) Get(ctx context.Context, actor models.Actor, id string) (*models.EnrichedConfession, error) {
	confession, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapRead("get confession", err)
	}
	view := s.aggregator.EnrichOne(ctx, actor, *confession)
	return &view, nil
}

// Update applies the author's edits. Only the owning device may edit.
func (s *ConfessionService) Update(ctx context.Context, actor models.Actor, id string, patch models.ConfessionPatch) (*models.EnrichedConfession, error) {
	if patch.Empty() {
		return nil, models.NewValidationError("Nothing to update")
	}
	confession, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapRead("get confession", err)
	}
	if err := Authorize(actor, confession.DeviceID, "confessions"); err != nil {
		return nil, err
	}

	columns := make([]string, 0, 5)
	if patch.Text != nil {
		text, err := validation.ValidateConfessionText(*patch.Text)
		if err != nil {
			return nil, err
		}
		confession.Text = text
		columns = append(columns, "text")
	}
	if patch.Tags != nil {
		tags, err := validation.NormalizeTags(s.catalog, *patch.Tags)
		if err != nil {
			return nil, err
		}
		confession.Tags = tags
		columns = append(columns, "tags")
	}
	if patch.Mood != nil {
		mood, err := validation.NormalizeMood(s.catalog, *patch.Mood)
		if err != nil {
			return nil, err
		}
		confession.Mood = mood
		columns = append(columns, "mood")
	}
	if patch.Topic != nil {
		topic, err := validation.NormalizeTopic(*patch.Topic)
		if err != nil {
			return nil, err
		}
		confession.Topic = topic
		columns = append(columns, "topic")
	}
	if patch.Avatar != nil {
		confession.Avatar = s.avatars.ResolveAvatar(*patch.Avatar, actor.DeviceID)
		columns = append(columns, "avatar")
	}

	if err := s.repo.Update(ctx, confession, columns...); err != nil {
		return nil, err
	}
	if patch.Topic != nil {
		s.cache.Invalidate(ctx, cache.TopicStatsKey, cache.CommunityKey)
	}
	view := s.aggregator.EnrichOne(ctx, actor, *confession)
	return &view, nil
}

// Delete checks ownership before removing the confession with its comments
// and reactions.
func (s *ConfessionService) Delete(ctx context.Context, actor models.Actor, id string) error {
	confession, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return wrapRead("get confession", err)
	}
	if err := Authorize(actor, confession.DeviceID, "confessions"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.TopicStatsKey, cache.CommunityKey)
	observability.GlobalLogger.InfoContext(ctx, "confession deleted", slog.String("confession_id", id))
	return nil
}
