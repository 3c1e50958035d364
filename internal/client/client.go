package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"unheard/internal/identity"
	"unheard/internal/models"
	"unheard/internal/observability"
	"unheard/internal/service"
	"unheard/internal/validation"
)

// ErrStaleResponse is returned by Feed when a newer feed request was issued
// while this one was in flight.
var ErrStaleResponse = errors.New("response superseded by a newer request")

// Client performs every operation as the device owned by its Provider.
// Each call first obtains a session; a 401 drops the cached session and the
// call is retried once with a fresh one.
type Client struct {
	api      *API
	provider *identity.Provider
	catalog  *models.Catalog
	feedSeq  Sequencer
}

// New returns a Client. A nil catalog uses the embedded default.
func New(api *API, provider *identity.Provider, catalog *models.Catalog) *Client {
	if catalog == nil {
		catalog = models.DefaultCatalog()
	}
	return &Client{api: api, provider: provider, catalog: catalog}
}

// DeviceID returns the local device id.
func (c *Client) DeviceID() string {
	return c.provider.DeviceID()
}

// Session returns the current session, acquiring one if needed.
func (c *Client) Session(ctx context.Context) (*identity.Session, error) {
	return c.provider.Session(ctx)
}

// Profile returns the display name and avatar used for the last post.
func (c *Client) Profile() identity.Profile {
	return c.provider.Profile()
}

// withSession runs call with a bearer token, retrying once after a 401. This
// is the only resend in the client: a 401 is produced by the session
// middleware before any handler runs, so the first attempt wrote nothing.
func (c *Client) withSession(ctx context.Context, call func(token string) error) error {
	session, err := c.provider.Session(ctx)
	if err != nil {
		return err
	}
	err = call(session.Token)
	if models.CodeOf(err) != models.CodeUnauthorized {
		return err
	}

	observability.GlobalLogger.DebugContext(ctx, "session rejected, acquiring a new one")
	c.provider.Invalidate()
	session, err = c.provider.Session(ctx)
	if err != nil {
		return err
	}
	return call(session.Token)
}

// Post validates the submission locally and creates the confession. A
// rejected submission never reaches the network. On success the username and
// avatar are remembered for the next post.
func (c *Client) Post(ctx context.Context, in service.CreateConfessionInput) (*models.EnrichedConfession, error) {
	fields, err := validation.ValidateConfession(c.catalog, validation.ConfessionFields{
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
	in.Text, in.Tags, in.Username, in.Mood, in.Topic = fields.Text, fields.Tags, fields.Username, fields.Mood, fields.Topic

	var out *models.EnrichedConfession
	err = c.withSession(ctx, func(token string) error {
		var err error
		out, err = c.api.CreateConfession(ctx, token, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !in.Anonymous {
		if err := c.provider.SaveProfile(identity.Profile{Username: in.Username, Avatar: out.Avatar}); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "profile not saved", slog.String("error", err.Error()))
		}
	}
	return out, nil
}

// Feed lists confessions. If another Feed call started after this one, the
// result is discarded and ErrStaleResponse returned.
func (c *Client) Feed(ctx context.Context, q ListQuery) ([]models.EnrichedConfession, error) {
	seq := c.feedSeq.Next()
	var out []models.EnrichedConfession
	err := c.withSession(ctx, func(token string) error {
		var err error
		out, err = c.api.ListConfessions(ctx, token, q)
		return err
	})
	if !c.feedSeq.Accept(seq) {
		return nil, ErrStaleResponse
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (*models.EnrichedConfession, error) {
	var out *models.EnrichedConfession
	err := c.withSession(ctx, func(token string) error {
		var err error
		out, err = c.api.GetConfession(ctx, token, id)
		return err
	})
	return out, err
}

// Edit changes the author-editable fields of one of the device's confessions.
func (c *Client) Edit(ctx context.Context, id string, patch models.ConfessionPatch) (*models.EnrichedConfession, error) {
	if patch.Empty() {
		return nil, models.NewValidationError("Nothing to update")
	}
	if patch.Text != nil {
		text, err := validation.ValidateConfessionText(*patch.Text)
		if err != nil {
			return nil, err
		}
		patch.Text = &text
	}
	if patch.Tags != nil {
		tags, err := validation.NormalizeTags(c.catalog, *patch.Tags)
		if err != nil {
			return nil, err
		}
		patch.Tags = &tags
	}

	var out *models.EnrichedConfession
	err := c.withSession(ctx, func(token string) error {
		var err error
		out, err = c.api.UpdateConfession(ctx, token, id, patch)
		return err
	})
	return out, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.withSession(ctx, func(token string) error {
		return c.api.DeleteConfession(ctx, token, id)
	})
}

// React toggles the device's reaction of type t.
func (c *Client) React(ctx context.Context, confessionID string, t models.ReactionType) (*models.ToggleResult, error) {
	if !t.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("Unknown reaction type %q", t))
	}
	var out *models.ToggleResult
	err := c.withSession(ctx, func(token string) error {
		var err error
		out, err = c.api.ToggleReaction(ctx, token, confessionID, t)
		return err
	})
	return out, err
}

func (c *Client) Reactions(ctx context.Context, confessionID string) (*models.ReactionState, error) {
	var out *models.ReactionState
	err := c.withSession(ctx, func(token string) error {
		var err error
		out, err = c.api.Reactions(ctx, token, confessionID)
		return err
	})
	return out, err
}

// Comment validates the text locally before adding it.
func (c *Client) Comment(ctx context.Context, in service.AddCommentInput) (*models.Comment, error) {
	text, username, err := validation.ValidateComment(in.Text, in.Username)
	if err != nil {
		return nil, err
	}
	in.Text, in.Username = text, username

	var out *models.Comment
	err = c.withSession(ctx, func(token string) error {
		var err error
		out, err = c.api.AddComment(ctx, token, in)
		return err
	})
	return out, err
}

func (c *Client) Comments(ctx context.Context, confessionID string) ([]models.Comment, error) {
	var out []models.Comment
	err := c.withSession(ctx, func(token string) error {
		var err error
		out, err = c.api.ListComments(ctx, token, confessionID)
		return err
	})
	return out, err
}

func (c *Client) Uncomment(ctx context.Context, confessionID, commentID string) error {
	return c.withSession(ctx, func(token string) error {
		return c.api.DeleteComment(ctx, token, confessionID, commentID)
	})
}

func (c *Client) Topics(ctx context.Context) ([]models.Topic, error) {
	var out []models.Topic
	err := c.withSession(ctx, func(token string) error {
		var err error
		out, err = c.api.TopicStats(ctx, token)
		return err
	})
	return out, err
}

// Stats returns the community headline numbers.
func (c *Client) Stats(ctx context.Context) (*models.CommunityStats, error) {
	var out *models.CommunityStats
	err := c.withSession(ctx, func(token string) error {
		var err error
		out, err = c.api.CommunityStats(ctx, token)
		return err
	})
	return out, err
}

// SignOut revokes the session on the server and forgets it locally. The
// device id is kept.
func (c *Client) SignOut(ctx context.Context) error {
	session, err := c.provider.Session(ctx)
	if err != nil {
		return err
	}
	if err := c.api.RevokeSession(ctx, session.Token); err != nil && models.CodeOf(err) != models.CodeUnauthorized {
		return err
	}
	return c.provider.Forget()
}
