package service

import (
	"context"
	"log/slog"
	"time"

	"unheard/internal/featureflags"
	"unheard/internal/models"
	"unheard/internal/observability"
	"unheard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultHighlightThreshold is the reaction total a confession must exceed.
	DefaultHighlightThreshold = 30
	defaultEnrichConcurrency  = 8
)

// AggregatorOptions tunes enrichment.
type AggregatorOptions struct {
	HighlightThreshold int
	Concurrency        int
}

// Aggregator joins confessions with their comments and reactions and keeps the
// stored highlight flag in line with what it observes.
type Aggregator struct {
	confessions repository.ConfessionRepository
	comments    repository.CommentRepository
	reactions   repository.ReactionRepository
	effects     *EffectQueue
	flags       *featureflags.Manager
	threshold   int
	concurrency int
}

func NewAggregator(
	confessions repository.ConfessionRepository,
	comments repository.CommentRepository,
	reactions repository.ReactionRepository,
	effects *EffectQueue,
	flags *featureflags.Manager,
	opts AggregatorOptions,
) *Aggregator {
	if opts.HighlightThreshold <= 0 {
		opts.HighlightThreshold = DefaultHighlightThreshold
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultEnrichConcurrency
	}
	return &Aggregator{
		confessions: confessions,
		comments:    comments,
		reactions:   reactions,
		effects:     effects,
		flags:       flags,
		threshold:   opts.HighlightThreshold,
		concurrency: opts.Concurrency,
	}
}

// Highlighted reports whether total reactions exceed the threshold.
func (a *Aggregator) Highlighted(state models.ReactionState) bool {
	return state.Total() > a.threshold
}

// Enrich returns one enriched view per confession, in input order. A
// confession whose comments or reactions cannot be loaded is returned
// unenriched; the batch itself never fails.
func (a *Aggregator) Enrich(ctx context.Context, actor models.Actor, confessions []models.Confession) []models.EnrichedConfession {
	start := time.Now()
	defer observability.ObserveSince(observability.EnrichLatency, start)

	out := make([]models.EnrichedConfession, len(confessions))
	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for i := range confessions {
		g.Go(func() error {
			out[i] = a.EnrichOne(ctx, actor, confessions[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// EnrichOne enriches a single confession.
func (a *Aggregator) EnrichOne(ctx context.Context, actor models.Actor, c models.Confession) models.EnrichedConfession {
	span, ctx := observability.NewSpan(ctx, "aggregator.enrich",
		attribute.String("confession.id", c.ID),
	)
	defer span.End()

	view := models.EnrichedConfession{
		Confession: c,
		IsMine:     actor.DeviceID != "" && c.DeviceID == actor.DeviceID,
	}

	var (
		comments []models.Comment
		state    models.ReactionState
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		comments, err = a.comments.ListByConfession(gctx, c.ID)
		return err
	})
	g.Go(func() error {
		var err error
		state, err = a.reactions.State(gctx, c.ID, actor.DeviceID)
		return err
	})
	if err := g.Wait(); err != nil {
		span.SetError(err)
		observability.EnrichFailuresTotal.Inc()
		observability.GlobalLogger.WarnContext(ctx, "confession returned unenriched",
			slog.String("confession_id", c.ID),
			slog.String("error", err.Error()),
		)
		return view
	}

	if comments == nil {
		comments = []models.Comment{}
	}
	for i := range comments {
		comments[i].IsMine = actor.DeviceID != "" && comments[i].DeviceID == actor.DeviceID
	}
	view.Comments = comments
	view.Reactions = state.Summaries()

	highlighted := a.Highlighted(state)
	span.AddAttributes(
		attribute.Int("reactions.total", state.Total()),
		attribute.Bool("highlighted", highlighted),
	)
	if highlighted != c.IsHighlighted {
		view.IsHighlighted = highlighted
		a.writeBackHighlight(ctx, actor, c.ID, highlighted)
	}
	return view
}

func (a *Aggregator) writeBackHighlight(ctx context.Context, actor models.Actor, id string, highlighted bool) {
	if a.effects == nil || !a.flags.Enabled(featureflags.HighlightWriteBack, actor.DeviceID) {
		return
	}
	a.effects.Enqueue(ctx, EffectHighlight, id, func(ctx context.Context) error {
		return a.confessions.UpdateDerived(ctx, id, models.DerivedFields{IsHighlighted: &highlighted})
	})
}
