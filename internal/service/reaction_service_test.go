package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"unheard/internal/featureflags"
	"unheard/internal/models"
	"unheard/internal/observability"
	"unheard/internal/testutil"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionService_ToggleTwiceRestoresState(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()
	c := testutil.SeedConfession(t, s.db, "owner")
	testutil.SeedReactions(t, s.db, c.ID, models.ReactionLaugh, 2)

	before, err := s.reactions.State(ctx, actor("dev-a"), c.ID)
	require.NoError(t, err)

	first, err := s.reactions.Toggle(ctx, actor("dev-a"), c.ID, models.ReactionLaugh)
	require.NoError(t, err)
	assert.True(t, first.Added)

	mid, err := s.reactions.State(ctx, actor("dev-a"), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, mid.Counts[models.ReactionLaugh])
	assert.True(t, mid.HasReacted(models.ReactionLaugh))

	second, err := s.reactions.Toggle(ctx, actor("dev-a"), c.ID, models.ReactionLaugh)
	require.NoError(t, err)
	assert.False(t, second.Added)

	after, err := s.reactions.State(ctx, actor("dev-a"), c.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReactionService_Toggle_Errors(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()
	c := testutil.SeedConfession(t, s.db, "owner")

	_, err := s.reactions.Toggle(ctx, actor("dev-a"), c.ID, "🦄")
	assertCode(t, err, models.CodeValidation)

	_, err = s.reactions.Toggle(ctx, actor("dev-a"), "missing", models.ReactionHeart)
	assertCode(t, err, models.CodeNotFound)

	_, err = s.reactions.Toggle(ctx, models.Actor{}, c.ID, models.ReactionHeart)
	assertCode(t, err, models.CodeUnauthorized)
}

func TestReactionService_ExclusiveFlag(t *testing.T) {
	s := newStack(t, "exclusive_reactions=on")
	ctx := context.Background()
	c := testutil.SeedConfession(t, s.db, "owner")

	_, err := s.reactions.Toggle(ctx, actor("dev-a"), c.ID, models.ReactionHeart)
	require.NoError(t, err)
	_, err = s.reactions.Toggle(ctx, actor("dev-a"), c.ID, models.ReactionCry)
	require.NoError(t, err)

	state, err := s.reactions.State(ctx, actor("dev-a"), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ReactionType{models.ReactionCry}, state.UserReactions)
	assert.Equal(t, 0, state.Counts[models.ReactionHeart])
}

func TestReactionService_ConcurrentIdenticalTogglesShareOneCall(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	repo := &reactionRepoStub{
		toggleFn: func(_ context.Context, _, _ string, _ models.ReactionType, _ bool) (bool, error) {
			if calls.Add(1) == 1 {
				close(entered)
			}
			<-release
			return true, nil
		},
	}
	svc := NewReactionService(repo, noopConfessionRepo(), featureflags.NewManager(""))
	ctx := context.Background()
	sharedBefore := promtestutil.ToFloat64(observability.SingleflightSharedTotal.WithLabelValues("reaction_toggle"))

	var wg sync.WaitGroup
	results := make([]*models.ToggleResult, 2)
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = svc.Toggle(ctx, actor("dev-a"), "c1", models.ReactionHeart)
	}()
	<-entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = svc.Toggle(ctx, actor("dev-a"), "c1", models.ReactionHeart)
	}()
	// give the second caller time to join the in-flight toggle
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, *results[0], *results[1])
	assert.Greater(t, promtestutil.ToFloat64(observability.SingleflightSharedTotal.WithLabelValues("reaction_toggle")), sharedBefore)
}

func TestReactionService_ConcurrentIdenticalTogglesLeaveOneRow(t *testing.T) {
	s := newStack(t, "")
	ctx := context.Background()
	c := testutil.SeedConfession(t, s.db, "owner")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.reactions.Toggle(ctx, actor("dev-a"), c.ID, models.ReactionHeart)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var rows int64
	require.NoError(t, s.db.Model(&models.Reaction{}).
		Where("confession_id = ? AND device_id = ? AND type = ?", c.ID, "dev-a", models.ReactionHeart).
		Count(&rows).Error)
	assert.LessOrEqual(t, rows, int64(1))
}
