package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"unheard/internal/models"
	"unheard/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"pg other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite message", errors.New("UNIQUE constraint failed: reactions.confession_id"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueConstraintError(tt.err))
		})
	}
}

func TestConfessionRepository_List(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewConfessionRepository(db)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	first := testutil.SeedConfession(t, db, "dev-a", testutil.WithTimestamp(base),
		testutil.WithTopic("Mental Health"), testutil.WithTags("#study"))
	second := testutil.SeedConfession(t, db, "dev-a", testutil.WithTimestamp(base.Add(time.Minute)),
		testutil.WithTopic("Mental Health"), testutil.WithHighlighted(true))
	third := testutil.SeedConfession(t, db, "dev-b", testutil.WithTimestamp(base.Add(2*time.Minute)),
		testutil.WithTags("#study", "#love"), testutil.WithHighlighted(true))

	ids := func(cs []models.Confession) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter models.ConfessionFilter
		want   []string
	}{
		{"no filter newest first", models.ConfessionFilter{}, []string{third.ID, second.ID, first.ID}},
		{"tag newest first", models.ConfessionFilter{Tag: "#study"}, []string{third.ID, first.ID}},
		{"topic oldest first", models.ConfessionFilter{Topic: "Mental Health"}, []string{first.ID, second.ID}},
		{"highlighted oldest first", models.ConfessionFilter{Highlighted: true}, []string{second.ID, third.ID}},
		{"unknown tag", models.ConfessionFilter{Tag: "#career"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	page, err := repo.List(ctx, models.ConfessionFilter{}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, ids(page))
}

func TestConfessionRepository_GetAndUpdate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewConfessionRepository(db)
	ctx := context.Background()

	c := testutil.SeedConfession(t, db, "dev-a", testutil.WithTags("#love"))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"#love"}, got.Tags)
	assert.Equal(t, "dev-a", got.DeviceID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, &models.AppError{Code: models.CodeNotFound})

	c.Mood = "sad"
	c.Tags = []string{"#love", "#career"}
	require.NoError(t, repo.Update(ctx, c, "mood", "tags"))
	missing := testutil.NewConfession("dev-a")
	assert.ErrorIs(t, repo.Update(ctx, missing, "mood"), &models.AppError{Code: models.CodeNotFound})

	highlighted := true
	count := -3
	require.NoError(t, repo.UpdateDerived(ctx, c.ID, models.DerivedFields{IsHighlighted: &highlighted, CommentsCount: &count}))
	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "sad", got.Mood)
	assert.Equal(t, []string{"#love", "#career"}, got.Tags)
	assert.True(t, got.IsHighlighted)
	assert.Equal(t, 0, got.CommentsCount)
}

func TestConfessionRepository_AdjustCommentsCount(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewConfessionRepository(db)
	ctx := context.Background()

	c := testutil.SeedConfession(t, db, "dev-a")

	require.NoError(t, repo.AdjustCommentsCount(ctx, c.ID, 1))
	require.NoError(t, repo.AdjustCommentsCount(ctx, c.ID, 1))
	require.NoError(t, repo.AdjustCommentsCount(ctx, c.ID, -1))
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentsCount)

	// floored at zero
	require.NoError(t, repo.AdjustCommentsCount(ctx, c.ID, -5))
	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CommentsCount)

	assert.ErrorIs(t, repo.AdjustCommentsCount(ctx, "missing", 1), &models.AppError{Code: models.CodeNotFound})
}

func TestConfessionRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewConfessionRepository(db)
	ctx := context.Background()

	c := testutil.SeedConfession(t, db, "dev-a")
	other := testutil.SeedConfession(t, db, "dev-b")
	testutil.SeedComment(t, db, c.ID, "dev-b", "hello")
	testutil.SeedComment(t, db, other.ID, "dev-a", "kept")
	testutil.SeedReactions(t, db, c.ID, models.ReactionHeart, 3)

	require.NoError(t, repo.Delete(ctx, c.ID))

	var n int64
	db.Model(&models.Comment{}).Count(&n)
	assert.Equal(t, int64(1), n)
	db.Model(&models.Reaction{}).Where("confession_id = ?", c.ID).Count(&n)
	assert.Zero(t, n)

	assert.ErrorIs(t, repo.Delete(ctx, c.ID), &models.AppError{Code: models.CodeNotFound})
}

func TestReactionRepository_Toggle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()
	c := testutil.SeedConfession(t, db, "owner")

	added, err := repo.Toggle(ctx, c.ID, "dev-a", models.ReactionHeart, false)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Toggle(ctx, c.ID, "dev-a", models.ReactionFire, false)
	require.NoError(t, err)
	assert.True(t, added)

	state, err := repo.State(ctx, c.ID, "dev-a")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Counts[models.ReactionHeart])
	assert.Equal(t, 1, state.Counts[models.ReactionFire])
	assert.Equal(t, 0, state.Counts[models.ReactionCry])
	assert.Len(t, state.Counts, len(models.ReactionTypes))
	assert.ElementsMatch(t, []models.ReactionType{models.ReactionHeart, models.ReactionFire}, state.UserReactions)

	added, err = repo.Toggle(ctx, c.ID, "dev-a", models.ReactionHeart, false)
	require.NoError(t, err)
	assert.False(t, added)

	state, err = repo.State(ctx, c.ID, "dev-a")
	require.NoError(t, err)
	assert.Equal(t, 0, state.Counts[models.ReactionHeart])
	assert.Equal(t, []models.ReactionType{models.ReactionFire}, state.UserReactions)
}

func TestReactionRepository_ToggleExclusive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()
	c := testutil.SeedConfession(t, db, "owner")

	_, err := repo.Toggle(ctx, c.ID, "dev-a", models.ReactionHeart, true)
	require.NoError(t, err)
	added, err := repo.Toggle(ctx, c.ID, "dev-a", models.ReactionLaugh, true)
	require.NoError(t, err)
	assert.True(t, added)

	state, err := repo.State(ctx, c.ID, "dev-a")
	require.NoError(t, err)
	assert.Equal(t, []models.ReactionType{models.ReactionLaugh}, state.UserReactions)
	assert.Equal(t, 1, state.Total())
}

func TestReactionRepository_StateIgnoresUnknownTypes(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()
	c := testutil.SeedConfession(t, db, "owner")

	testutil.SeedReactions(t, db, c.ID, models.ReactionThumbs, 2)
	testutil.SeedReactions(t, db, c.ID, models.ReactionType("🦄"), 4)

	state, err := repo.State(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Total())
	assert.Empty(t, state.UserReactions)

	all, err := repo.ListByConfession(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestReactionRepository_ToggleConcurrentInsert(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reactions"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "reactions"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	added, err := repo.Toggle(context.Background(), "c1", "dev-a", models.ReactionHeart, false)
	require.NoError(t, err)
	assert.True(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository_ToggleExclusiveConcurrentInsert(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reactions"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reactions"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "reactions"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()
	// the other types removed inside the rolled-back transaction are removed again
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reactions" WHERE confession_id = $1 AND device_id = $2 AND type <> $3`)).
		WithArgs("c1", "dev-a", string(models.ReactionHeart)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	added, err := repo.Toggle(context.Background(), "c1", "dev-a", models.ReactionHeart, true)
	require.NoError(t, err)
	assert.True(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository_ToggleError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reactions"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Toggle(context.Background(), "c1", "dev-a", models.ReactionHeart, false)
	assert.EqualError(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	c := testutil.SeedConfession(t, db, "owner")

	older := &models.Comment{ID: "c-old", ConfessionID: c.ID, Username: "a", Text: "first", Timestamp: time.Now().UTC().Add(-time.Minute), DeviceID: "dev-a"}
	newer := &models.Comment{ID: "c-new", ConfessionID: c.ID, Username: "b", Text: "second", Timestamp: time.Now().UTC(), DeviceID: "dev-b"}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	list, err := repo.ListByConfession(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c-new", list[0].ID)

	got, err := repo.GetByID(ctx, "c-old")
	require.NoError(t, err)
	assert.Equal(t, "dev-a", got.DeviceID)

	require.NoError(t, repo.Delete(ctx, "c-old"))
	assert.ErrorIs(t, repo.Delete(ctx, "c-old"), &models.AppError{Code: models.CodeNotFound})
	_, err = repo.GetByID(ctx, "c-old")
	assert.ErrorIs(t, err, &models.AppError{Code: models.CodeNotFound})
}

func TestSessionRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	enrolled, err := repo.DeviceEnrolled(ctx, "dev-a")
	require.NoError(t, err)
	assert.False(t, enrolled)

	s := &models.AnonymousSession{ID: "s1", DeviceID: "dev-a", ExpiresAt: now.Add(time.Hour), LastSeenAt: now}
	require.NoError(t, repo.Create(ctx, s))
	enrolled, err = repo.DeviceEnrolled(ctx, "dev-a")
	require.NoError(t, err)
	assert.True(t, enrolled)

	require.NoError(t, repo.Renew(ctx, "s1", now.Add(2*time.Hour), now.Add(time.Minute)))
	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Minute), got.LastSeenAt, time.Second)
	assert.WithinDuration(t, now.Add(2*time.Hour), got.ExpiresAt, time.Second)
	assert.True(t, got.Active(now))

	require.NoError(t, repo.Revoke(ctx, "s1", now))
	got, err = repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.Active(now))
	enrolled, err = repo.DeviceEnrolled(ctx, "dev-a")
	require.NoError(t, err)
	assert.True(t, enrolled, "revoked sessions still enroll the device")

	assert.ErrorIs(t, repo.Revoke(ctx, "s1", now), &models.AppError{Code: models.CodeNotFound})
	assert.ErrorIs(t, repo.Renew(ctx, "s1", now.Add(time.Hour), now), &models.AppError{Code: models.CodeNotFound})
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, &models.AppError{Code: models.CodeNotFound})
}
