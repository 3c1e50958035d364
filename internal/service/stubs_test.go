package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"unheard/internal/featureflags"
	"unheard/internal/models"
	"unheard/internal/repository"
	"unheard/internal/testutil"
	"unheard/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// confessionRepoStub is a stub for repository.ConfessionRepository.
type confessionRepoStub struct {
	createFn        func(context.Context, *models.Confession) error
	getByIDFn       func(context.Context, string) (*models.Confession, error)
	listFn          func(context.Context, models.ConfessionFilter, int, int) ([]models.Confession, error)
	updateFn        func(context.Context, *models.Confession, ...string) error
	updateDerivedFn func(context.Context, string, models.DerivedFields) error
	adjustFn        func(context.Context, string, int) error
	deleteFn        func(context.Context, string) error
	communityFn     func(context.Context) (models.CommunityStats, error)

	mu    sync.Mutex
	calls int
}

func (s *confessionRepoStub) called() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *confessionRepoStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *confessionRepoStub) Create(ctx context.Context, c *models.Confession) error {
	s.called()
	return s.createFn(ctx, c)
}
func (s *confessionRepoStub) GetByID(ctx context.Context, id string) (*models.Confession, error) {
	s.called()
	return s.getByIDFn(ctx, id)
}
func (s *confessionRepoStub) List(ctx context.Context, f models.ConfessionFilter, limit, offset int) ([]models.Confession, error) {
	s.called()
	return s.listFn(ctx, f, limit, offset)
}
func (s *confessionRepoStub) Update(ctx context.Context, c *models.Confession, columns ...string) error {
	s.called()
	return s.updateFn(ctx, c, columns...)
}
func (s *confessionRepoStub) UpdateDerived(ctx context.Context, id string, d models.DerivedFields) error {
	s.called()
	return s.updateDerivedFn(ctx, id, d)
}
func (s *confessionRepoStub) AdjustCommentsCount(ctx context.Context, id string, delta int) error {
	s.called()
	return s.adjustFn(ctx, id, delta)
}
func (s *confessionRepoStub) Delete(ctx context.Context, id string) error {
	s.called()
	return s.deleteFn(ctx, id)
}
func (s *confessionRepoStub) Community(ctx context.Context) (models.CommunityStats, error) {
	s.called()
	return s.communityFn(ctx)
}

func noopConfessionRepo() *confessionRepoStub {
	return &confessionRepoStub{
		createFn: func(_ context.Context, _ *models.Confession) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Confession, error) {
			return &models.Confession{ID: id, DeviceID: "owner"}, nil
		},
		listFn: func(_ context.Context, _ models.ConfessionFilter, _, _ int) ([]models.Confession, error) {
			return nil, nil
		},
		updateFn:        func(_ context.Context, _ *models.Confession, _ ...string) error { return nil },
		updateDerivedFn: func(_ context.Context, _ string, _ models.DerivedFields) error { return nil },
		adjustFn:        func(_ context.Context, _ string, _ int) error { return nil },
		deleteFn:        func(_ context.Context, _ string) error { return nil },
	}
}

// reactionRepoStub is a stub for repository.ReactionRepository.
type reactionRepoStub struct {
	toggleFn func(context.Context, string, string, models.ReactionType, bool) (bool, error)
	stateFn  func(context.Context, string, string) (models.ReactionState, error)
}

func (s *reactionRepoStub) Toggle(ctx context.Context, confessionID, deviceID string, t models.ReactionType, exclusive bool) (bool, error) {
	return s.toggleFn(ctx, confessionID, deviceID, t, exclusive)
}
func (s *reactionRepoStub) State(ctx context.Context, confessionID, deviceID string) (models.ReactionState, error) {
	return s.stateFn(ctx, confessionID, deviceID)
}
func (s *reactionRepoStub) ListByConfession(_ context.Context, _ string) ([]models.Reaction, error) {
	return nil, nil
}

func reactionsWithTotal(total int) *reactionRepoStub {
	return &reactionRepoStub{
		toggleFn: func(_ context.Context, _, _ string, _ models.ReactionType, _ bool) (bool, error) { return true, nil },
		stateFn: func(_ context.Context, _, _ string) (models.ReactionState, error) {
			state := models.NewReactionState()
			state.Counts[models.ReactionHeart] = total
			return state, nil
		},
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	listFn func(context.Context, string) ([]models.Comment, error)
}

func (s *commentRepoStub) Create(_ context.Context, _ *models.Comment) error { return nil }
func (s *commentRepoStub) GetByID(_ context.Context, id string) (*models.Comment, error) {
	return nil, models.NewNotFoundError("Comment", id)
}
func (s *commentRepoStub) ListByConfession(ctx context.Context, id string) ([]models.Comment, error) {
	return s.listFn(ctx, id)
}
func (s *commentRepoStub) Delete(_ context.Context, _ string) error { return nil }

func noComments() *commentRepoStub {
	return &commentRepoStub{listFn: func(_ context.Context, _ string) ([]models.Comment, error) { return nil, nil }}
}

var errStoreDown = errors.New("store down")

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// outcomeRecorder collects effect outcomes.
type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []EffectOutcome
}

func (r *outcomeRecorder) observe(o EffectOutcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
}

func (r *outcomeRecorder) All() []EffectOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EffectOutcome(nil), r.outcomes...)
}

func newTestQueue(t *testing.T) (*EffectQueue, *outcomeRecorder) {
	t.Helper()
	rec := &outcomeRecorder{}
	q := NewEffectQueue(2, 16, WithEffectObserver(rec.observe))
	t.Cleanup(q.Close)
	return q, rec
}

func flush(t *testing.T, q *EffectQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Flush(ctx))
}

// stack wires real repositories on SQLite with every service.
type stack struct {
	db          *gorm.DB
	queue       *EffectQueue
	outcomes    *outcomeRecorder
	confessions *ConfessionService
	comments    *CommentService
	reactions   *ReactionService
	topics      *TopicService
	aggregator  *Aggregator
}

func newStack(t *testing.T, flags string) *stack {
	t.Helper()
	db := testutil.NewTestDB(t)
	q, rec := newTestQueue(t)
	ff := featureflags.NewManager(flags)

	confRepo := repository.NewConfessionRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)

	agg := NewAggregator(confRepo, commentRepo, reactionRepo, q, ff, AggregatorOptions{})
	reactions := NewReactionService(reactionRepo, confRepo, ff)
	return &stack{
		db:          db,
		queue:       q,
		outcomes:    rec,
		aggregator:  agg,
		reactions:   reactions,
		confessions: NewConfessionService(confRepo, agg, reactions, q, nil, nil, validation.NewAvatarSeeder("test")),
		comments:    NewCommentService(commentRepo, confRepo, q, validation.NewAvatarSeeder("test")),
		topics:      NewTopicService(confRepo, agg, nil, nil),
	}
}

func actor(deviceID string) models.Actor {
	return models.Actor{DeviceID: deviceID, SessionID: "session-" + deviceID}
}
