package seed

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"unheard/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	Devices     int
	Confessions int
	// MaxComments and MaxReactions bound the per-confession engagement.
	MaxComments  int
	MaxReactions int
	// HighlightThreshold mirrors the server setting so stored flags agree
	// with what the API would compute.
	HighlightThreshold int
	MaxDays            int
	// LegacyRows adds confessions with no owner, for exercising the backfill.
	LegacyRows int
	Clean      bool
	DryRun     bool
	RandomSeed int64
	// AvatarKey must match the server's JWT secret for default avatars to
	// agree with the ones the API assigns.
	AvatarKey string
}

// DefaultOptions is a small but lively dataset.
func DefaultOptions() Options {
	return Options{
		Devices:            60,
		Confessions:        120,
		MaxComments:        6,
		MaxReactions:       40,
		HighlightThreshold: 30,
		MaxDays:            30,
	}
}

// Presets are named option sets for cmd/seed.
var Presets = map[string]Options{
	"demo": DefaultOptions(),
	"empty": {
		Clean: true,
	},
	"busy": {
		Devices:            200,
		Confessions:        2000,
		MaxComments:        15,
		MaxReactions:       150,
		HighlightThreshold: 30,
		MaxDays:            90,
	},
	"legacy": {
		Devices:            10,
		Confessions:        30,
		MaxComments:        3,
		MaxReactions:       10,
		HighlightThreshold: 30,
		MaxDays:            60,
		LegacyRows:         20,
	},
}

// Preset returns the named option set.
func Preset(name string) (Options, error) {
	opts, ok := Presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(Presets))
		for n := range Presets {
			names = append(names, n)
		}
		sort.Strings(names)
		return Options{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(names, ", "))
	}
	return opts, nil
}

// Report counts what a run wrote.
type Report struct {
	Devices     []string
	Confessions int
	Comments    int
	Reactions   int
	Highlighted int
}

// TopicWeights is the relative share of confessions per catalog topic. The
// remainder after every listed topic goes untopiced.
var TopicWeights = map[string]int{
	"Mental Health":     4,
	"Relationships":     4,
	"Career Struggles":  2,
	"Academic Pressure": 2,
	"Family Issues":     2,
	"Personal Growth":   1,
	"Social Anxiety":    1,
}

// untopicedWeight keeps some confessions out of every topic.
const untopicedWeight = 4

// Seeder populates the database.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder returns a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Run optionally clears the tables, then writes devices' confessions,
// comments and reactions. Stored comment counts and highlight flags are
// computed from the generated rows.
func (s *Seeder) Run(ctx context.Context) (*Report, error) {
	if s.opts.Clean && !s.opts.DryRun {
		if err := ClearAll(ctx, s.db); err != nil {
			return nil, err
		}
	}

	report := &Report{}
	if s.opts.Devices <= 0 || s.opts.Confessions <= 0 {
		return report, s.seedLegacy(ctx, report)
	}

	for i := 0; i < s.opts.Devices; i++ {
		report.Devices = append(report.Devices, s.factory.NewDeviceID())
	}

	f := s.factory
	var (
		confessions []*models.Confession
		comments    []*models.Comment
		reactions   []*models.Reaction
	)
	topics := topicPlan(s.opts.Confessions, TopicWeights)
	f.rng.Shuffle(len(topics), func(i, j int) { topics[i], topics[j] = topics[j], topics[i] })
	for i := 0; i < s.opts.Confessions; i++ {
		author := report.Devices[f.rng.Intn(len(report.Devices))]
		c := f.BuildConfession(author, topics[i])

		for n := f.rng.Intn(s.opts.MaxComments + 1); n > 0; n-- {
			comments = append(comments, f.BuildComment(c, report.Devices[f.rng.Intn(len(report.Devices))]))
			c.CommentsCount++
		}

		// one reaction per reacting device keeps (confession, device, type) unique
		n := f.rng.Intn(s.opts.MaxReactions + 1)
		if n > len(report.Devices) {
			n = len(report.Devices)
		}
		for _, d := range f.rng.Perm(len(report.Devices))[:n] {
			reactions = append(reactions, f.BuildReaction(c, report.Devices[d]))
		}
		if n > s.opts.HighlightThreshold {
			c.IsHighlighted = true
			report.Highlighted++
		}
		confessions = append(confessions, c)
	}

	write := func(tx *gorm.DB) error {
		txFactory := *f
		txFactory.db = tx
		if err := insert(&txFactory, "confessions", confessions); err != nil {
			return err
		}
		if err := insert(&txFactory, "comments", comments); err != nil {
			return err
		}
		return insert(&txFactory, "reactions", reactions)
	}
	var err error
	if s.opts.DryRun {
		err = write(nil)
	} else {
		err = s.db.WithContext(ctx).Transaction(write)
	}
	if err != nil {
		return nil, err
	}

	report.Confessions = len(confessions)
	report.Comments = len(comments)
	report.Reactions = len(reactions)
	if err := s.seedLegacy(ctx, report); err != nil {
		return nil, err
	}

	log.Printf("seeded %d confessions, %d comments, %d reactions from %d devices (%d highlighted)",
		report.Confessions, report.Comments, report.Reactions, len(report.Devices), report.Highlighted)
	return report, nil
}

// seedLegacy writes ownerless confessions as they existed before devices.
func (s *Seeder) seedLegacy(ctx context.Context, report *Report) error {
	if s.opts.LegacyRows <= 0 {
		return nil
	}
	rows := make([]*models.Confession, 0, s.opts.LegacyRows)
	for i := 0; i < s.opts.LegacyRows; i++ {
		rows = append(rows, s.factory.BuildConfession("", "", func(c *models.Confession) {
			c.Username = "Anonymous"
			c.Anonymous = true
		}))
	}
	f := *s.factory
	if !s.opts.DryRun {
		f.db = s.db.WithContext(ctx)
	}
	if err := insert(&f, "legacy confessions", rows); err != nil {
		return err
	}
	report.Confessions += len(rows)
	return nil
}

// ClearAll deletes every seeded row. Sessions are kept.
func ClearAll(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Reaction{}, &models.Comment{}, &models.Confession{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// topicPlan assigns a topic (or "") to each of total confessions so the
// shares follow weights. Order is deterministic: topics by name, then the
// untopiced remainder.
func topicPlan(total int, weights map[string]int) []string {
	names := make([]string, 0, len(weights))
	sum := untopicedWeight
	for name, w := range weights {
		names = append(names, name)
		sum += w
	}
	sort.Strings(names)

	plan := make([]string, 0, total)
	for _, name := range names {
		for i := 0; i < computeShare(total, weights[name], sum); i++ {
			plan = append(plan, name)
		}
	}
	for len(plan) < total {
		plan = append(plan, "")
	}
	return plan[:total]
}

// computeShare is weight/sum of total, rounded down.
func computeShare(total, weight, sum int) int {
	if sum <= 0 {
		return 0
	}
	return total * weight / sum
}
