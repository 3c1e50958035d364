package service

import (
	"context"
	"testing"
	"time"

	"unheard/internal/cache"
	"unheard/internal/models"
	"unheard/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTopicStats(t *testing.T) {
	catalog := models.DefaultCatalog()
	enriched := func(topics ...string) []models.EnrichedConfession {
		out := make([]models.EnrichedConfession, 0, len(topics))
		for _, topic := range topics {
			out = append(out, models.EnrichedConfession{Confession: models.Confession{Topic: topic}})
		}
		return out
	}

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, ComputeTopicStats(catalog, nil))
	})

	t.Run("sorted by count", func(t *testing.T) {
		got := ComputeTopicStats(catalog, enriched("Relationships", "Mental Health", "", "Mental Health", "Mental Health"))
		require.Len(t, got, 2)
		assert.Equal(t, models.Topic{Name: "Mental Health", Icon: "🧠", Count: 3}, got[0])
		assert.Equal(t, models.Topic{Name: "Relationships", Icon: "❤️", Count: 1}, got[1])
	})

	t.Run("ties keep discovery order", func(t *testing.T) {
		got := ComputeTopicStats(catalog, enriched("Pottery", "Life Goals", "Pottery", "Life Goals"))
		require.Len(t, got, 2)
		assert.Equal(t, "Pottery", got[0].Name)
		assert.Equal(t, catalog.FallbackIcon, got[0].Icon)
		assert.Equal(t, "Life Goals", got[1].Name)
	})
}

func TestTopicService_Stats(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	empty, err := s.topics.Stats(ctx, actor("dev-a"))
	require.NoError(t, err)
	assert.Equal(t, []models.Topic{}, empty)

	base := time.Now().UTC().Add(-time.Hour)
	testutil.SeedConfession(t, s.db, "dev-a", testutil.WithTopic("Relationships"), testutil.WithTimestamp(base))
	for i := 0; i < 3; i++ {
		testutil.SeedConfession(t, s.db, "dev-a", testutil.WithTopic("Mental Health"), testutil.WithTimestamp(base.Add(time.Duration(i+1)*time.Minute)))
	}
	testutil.SeedConfession(t, s.db, "dev-a")

	got, err := s.topics.Stats(ctx, actor("dev-a"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Mental Health", got[0].Name)
	assert.Equal(t, 3, got[0].Count)
	assert.Equal(t, "Relationships", got[1].Name)
	assert.Equal(t, 1, got[1].Count)
}

func TestTopicService_StatsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	store := cache.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	repo := noopConfessionRepo()
	repo.listFn = func(_ context.Context, _ models.ConfessionFilter, _, _ int) ([]models.Confession, error) {
		return []models.Confession{{ID: "c1", Topic: "Life Goals"}}, nil
	}
	agg := NewAggregator(repo, noComments(), reactionsWithTotal(0), nil, nil, AggregatorOptions{})
	svc := NewTopicService(repo, agg, store, nil)
	ctx := context.Background()

	_, err := svc.Stats(ctx, actor("dev-a"))
	require.NoError(t, err)
	calls := repo.Calls()
	assert.True(t, mr.Exists(cache.TopicStatsKey))

	got, err := svc.Stats(ctx, actor("dev-a"))
	require.NoError(t, err)
	assert.Equal(t, calls, repo.Calls())
	require.Len(t, got, 1)
	assert.Equal(t, "Life Goals", got[0].Name)

	mr.FastForward(cache.TopicStatsTTL + time.Second)
	_, err = svc.Stats(ctx, actor("dev-a"))
	require.NoError(t, err)
	assert.Greater(t, repo.Calls(), calls)
}

func TestTopicService_StatsStoreError(t *testing.T) {
	repo := noopConfessionRepo()
	repo.listFn = func(_ context.Context, _ models.ConfessionFilter, _, _ int) ([]models.Confession, error) {
		return nil, errStoreDown
	}
	svc := NewTopicService(repo, nil, nil, nil)
	_, err := svc.Stats(context.Background(), actor("dev-a"))
	assertCode(t, err, models.CodeTransientStore)
}

func TestTopicService_Catalog(t *testing.T) {
	svc := NewTopicService(nil, nil, nil, nil)
	topics := svc.Catalog()
	require.Len(t, topics, 13)
	for _, topic := range topics {
		assert.Zero(t, topic.Count)
		assert.NotEmpty(t, topic.Icon)
	}
}

func TestTopicService_Community(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()

	empty, err := s.topics.Community(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CommunityStats{}, empty)

	testutil.SeedConfession(t, s.db, "dev-a", testutil.WithTopic("Relationships"))
	testutil.SeedConfession(t, s.db, "dev-a", testutil.WithTopic("Mental Health"))
	testutil.SeedConfession(t, s.db, "dev-b")
	testutil.SeedConfession(t, s.db, models.LegacyDevicePrefix+"0000", testutil.WithTopic("Mental Health"))

	got, err := s.topics.Community(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CommunityStats{TotalConfessions: 4, TotalUsers: 2, TotalConnections: 3}, got)

	topics, err := s.topics.Stats(ctx, actor("dev-a"))
	require.NoError(t, err)
	var summed int64
	for _, topic := range topics {
		summed += int64(topic.Count)
	}
	assert.Equal(t, got.TotalConnections, summed)
}

func TestTopicService_CommunityStoreError(t *testing.T) {
	repo := noopConfessionRepo()
	repo.communityFn = func(context.Context) (models.CommunityStats, error) {
		return models.CommunityStats{}, assert.AnError
	}
	svc := NewTopicService(repo, nil, nil, nil)
	_, err := svc.Community(context.Background())
	assertCode(t, err, models.CodeTransientStore)
}
