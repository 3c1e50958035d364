// Package seed creates demo confessions, comments and reactions for
// development and testing. It is never used by the running server.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"unheard/internal/models"
	"unheard/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Factory builds domain rows and persists them unless DryRun is set.
type Factory struct {
	db      *gorm.DB
	opts    Options
	catalog *models.Catalog
	rng     *rand.Rand
	faker   *gofakeit.Faker
	avatars validation.AvatarSeeder
}

// NewFactory creates a Factory bound to db. A zero Options.RandomSeed seeds
// from the clock.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:      db,
		opts:    opts,
		catalog: models.DefaultCatalog(),
		rng:     rand.New(rand.NewSource(seed)),
		faker:   gofakeit.New(seed),
		avatars: validation.NewAvatarSeeder(opts.AvatarKey),
	}
}

// NewDeviceID returns a device id shaped like the ones clients generate.
func (f *Factory) NewDeviceID() string {
	return "device-" + f.faker.UUID()
}

// confessionText returns filler that passes confession validation.
func (f *Factory) confessionText() string {
	for {
		text := f.faker.Sentence(validation.MinConfessionWords + f.rng.Intn(10))
		if _, err := validation.ValidateConfessionText(text); err == nil {
			return text
		}
	}
}

// pastTimestamp spreads rows over the last MaxDays days.
func (f *Factory) pastTimestamp() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().UTC().Add(-back)
}

func (f *Factory) pickTags() []string {
	n := f.rng.Intn(3)
	if n == 0 || len(f.catalog.Tags) == 0 {
		return []string{}
	}
	picked := make([]string, 0, n)
	for _, i := range f.rng.Perm(len(f.catalog.Tags))[:n] {
		picked = append(picked, f.catalog.Tags[i])
	}
	return picked
}

func (f *Factory) pickMood() string {
	if len(f.catalog.Moods) == 0 || f.rng.Intn(3) == 0 {
		return ""
	}
	return f.catalog.Moods[f.rng.Intn(len(f.catalog.Moods))]
}

// BuildConfession returns an unsaved confession owned by deviceID in topic.
// An empty topic leaves it untopiced.
func (f *Factory) BuildConfession(deviceID, topic string, overrides ...func(*models.Confession)) *models.Confession {
	anonymous := f.rng.Intn(4) == 0
	username := ""
	if !anonymous {
		username = f.faker.Username()
	}
	c := &models.Confession{
		ID:        uuid.NewString(),
		Text:      f.confessionText(),
		Tags:      f.pickTags(),
		Timestamp: f.pastTimestamp(),
		Username:  validation.ConfessionUsername(username, anonymous, deviceID),
		Avatar:    f.avatars.DeviceAvatar(deviceID),
		Mood:      f.pickMood(),
		Topic:     topic,
		Anonymous: anonymous,
		DeviceID:  deviceID,
	}
	for _, override := range overrides {
		override(c)
	}
	return c
}

// BuildComment returns an unsaved comment on c written after it.
func (f *Factory) BuildComment(c *models.Confession, deviceID string) *models.Comment {
	username := ""
	if f.rng.Intn(2) == 0 {
		username = f.faker.Username()
	}
	ts := c.Timestamp.Add(time.Duration(1+f.rng.Intn(48*60)) * time.Minute)
	if now := time.Now().UTC(); ts.After(now) {
		ts = now
	}
	return &models.Comment{
		ID:           uuid.NewString(),
		ConfessionID: c.ID,
		Username:     validation.CommentUsername(username, deviceID),
		Text:         f.faker.Sentence(3 + f.rng.Intn(12)),
		Timestamp:    ts,
		Avatar:       f.avatars.DeviceAvatar(deviceID),
		DeviceID:     deviceID,
	}
}

// BuildReaction returns an unsaved reaction of a random type.
func (f *Factory) BuildReaction(c *models.Confession, deviceID string) *models.Reaction {
	return &models.Reaction{
		ID:           uuid.NewString(),
		ConfessionID: c.ID,
		DeviceID:     deviceID,
		Type:         models.ReactionTypes[f.rng.Intn(len(models.ReactionTypes))],
		Timestamp:    c.Timestamp.Add(time.Duration(1+f.rng.Intn(600)) * time.Minute),
	}
}

// insert persists rows in batches. rows must be a slice of pointers.
func insert[T any](f *Factory, label string, rows []*T) error {
	if len(rows) == 0 {
		return nil
	}
	if f.opts.DryRun {
		log.Printf("[dry-run] %s: %d rows (no DB write)", label, len(rows))
		return nil
	}
	if err := f.db.CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("insert %s: %w", label, err)
	}
	return nil
}
