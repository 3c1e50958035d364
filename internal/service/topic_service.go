package service

import (
	"context"
	"sort"

	"unheard/internal/cache"
	"unheard/internal/models"
	"unheard/internal/repository"
)

type TopicService struct {
	confessions repository.ConfessionRepository
	aggregator  *Aggregator
	cache       *cache.Store
	catalog     *models.Catalog
}

func NewTopicService(
	confessions repository.ConfessionRepository,
	aggregator *Aggregator,
	store *cache.Store,
	catalog *models.Catalog,
) *TopicService {
	if catalog == nil {
		catalog = models.DefaultCatalog()
	}
	return &TopicService{
		confessions: confessions,
		aggregator:  aggregator,
		cache:       store,
		catalog:     catalog,
	}
}

// Stats counts confessions per topic, most used first. Equal counts keep the
// order in which the topics were first seen.
func (s *TopicService) Stats(ctx context.Context, actor models.Actor) ([]models.Topic, error) {
	var topics []models.Topic
	err := s.cache.Aside(ctx, cache.TopicStatsKey, &topics, cache.TopicStatsTTL, func() error {
		confessions, err := s.confessions.List(ctx, models.ConfessionFilter{}, 0, 0)
		if err != nil {
			return models.NewTransientStoreError("list confessions", err)
		}
		topics = ComputeTopicStats(s.catalog, s.aggregator.Enrich(ctx, actor, confessions))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	return topics, nil
}

// Community returns the headline counts, cached like topic stats.
func (s *TopicService) Community(ctx context.Context) (models.CommunityStats, error) {
	var stats models.CommunityStats
	err := s.cache.Aside(ctx, cache.CommunityKey, &stats, cache.TopicStatsTTL, func() error {
		var err error
		if stats, err = s.confessions.Community(ctx); err != nil {
			return models.NewTransientStoreError("count community", err)
		}
		return nil
	})
	return stats, err
}

// Catalog returns every known topic with a zero count.
func (s *TopicService) Catalog() []models.Topic {
	return s.catalog.DefaultTopics()
}

// ComputeTopicStats groups confessions by non-empty topic.
func ComputeTopicStats(catalog *models.Catalog, confessions []models.EnrichedConfession) []models.Topic {
	topics := make([]models.Topic, 0)
	index := make(map[string]int)
	for _, c := range confessions {
		if c.Topic == "" {
			continue
		}
		i, ok := index[c.Topic]
		if !ok {
			i = len(topics)
			index[c.Topic] = i
			topics = append(topics, models.Topic{Name: c.Topic, Icon: catalog.IconFor(c.Topic)})
		}
		topics[i].Count++
	}
	sort.SliceStable(topics, func(a, b int) bool {
		return topics[a].Count > topics[b].Count
	})
	return topics
}
