// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"unheard/internal/database"
	"unheard/internal/models"
	"unheard/internal/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps every query on the same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(context.Background(), db))
	return db
}

// OpenFileDB opens (or reopens) a SQLite database file with the full
// schema, for tests that need data to outlive a closed connection.
func OpenFileDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(context.Background(), db))
	return db
}

// ConfessionOption customizes a fixture confession.
type ConfessionOption func(*models.Confession)

// WithTopic sets the fixture's topic.
func WithTopic(topic string) ConfessionOption {
	return func(c *models.Confession) { c.Topic = topic }
}

// WithTags sets the fixture's tags.
func WithTags(tags ...string) ConfessionOption {
	return func(c *models.Confession) { c.Tags = tags }
}

// WithTimestamp sets the fixture's timestamp.
func WithTimestamp(ts time.Time) ConfessionOption {
	return func(c *models.Confession) { c.Timestamp = ts }
}

// WithHighlighted sets the stored highlight flag.
func WithHighlighted(v bool) ConfessionOption {
	return func(c *models.Confession) { c.IsHighlighted = v }
}

// NewConfession builds an unsaved confession owned by deviceID.
func NewConfession(deviceID string, opts ...ConfessionOption) *models.Confession {
	c := &models.Confession{
		ID:        uuid.NewString(),
		Text:      "this is a confession that easily has more than ten words in it",
		Tags:      []string{},
		Timestamp: time.Now().UTC(),
		Username:  "tester",
		Avatar:    validation.NewAvatarSeeder("test").DeviceAvatar(deviceID),
		DeviceID:  deviceID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SeedConfession stores a fixture confession.
func SeedConfession(t *testing.T, db *gorm.DB, deviceID string, opts ...ConfessionOption) *models.Confession {
	t.Helper()
	c := NewConfession(deviceID, opts...)
	require.NoError(t, db.Create(c).Error)
	return c
}

// SeedComment stores a comment on confessionID owned by deviceID.
func SeedComment(t *testing.T, db *gorm.DB, confessionID, deviceID, text string) *models.Comment {
	t.Helper()
	c := &models.Comment{
		ID:           uuid.NewString(),
		ConfessionID: confessionID,
		Username:     "commenter",
		Text:         text,
		Timestamp:    time.Now().UTC(),
		DeviceID:     deviceID,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// SeedReactions stores n reactions of type rt from distinct devices.
func SeedReactions(t *testing.T, db *gorm.DB, confessionID string, rt models.ReactionType, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.Reaction{
			ID:           uuid.NewString(),
			ConfessionID: confessionID,
			DeviceID:     uuid.NewString(),
			Type:         rt,
			Timestamp:    time.Now().UTC(),
		}).Error)
	}
}
