package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"unheard/internal/models"
	"unheard/internal/observability"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultSessionCacheTTL bounds how long a verified session is reused
// without asking the backend again.
const DefaultSessionCacheTTL = 30 * time.Second

// DefaultAcquireTimeout bounds one shared session acquisition.
const DefaultAcquireTimeout = 15 * time.Second

// ErrSessionUnavailable matches (errors.Is) the error returned when every
// way of obtaining a session failed.
var ErrSessionUnavailable = &models.AppError{Code: models.CodeSessionUnavailable, Message: "Session unavailable"}

// Authenticator is the backend half of anonymous sessions.
type Authenticator interface {
	// CreateSession needs previousSessionID once the device has had a session.
	CreateSession(ctx context.Context, deviceID, previousSessionID string) (*models.IssuedSession, error)
	RecoverSession(ctx context.Context, sessionID, deviceID string) (*models.IssuedSession, error)
	CurrentSession(ctx context.Context, token string) (*models.AnonymousSession, error)
}

// Session is what callers need to authenticate requests.
type Session struct {
	ID        string
	DeviceID  string
	Token     string
	ExpiresAt time.Time
}

// Profile is the last display name and avatar used on this device.
type Profile struct {
	Username string
	Avatar   string
}

// Provider owns the device id and the current session. It is safe for
// concurrent use; concurrent Session calls share one acquisition.
type Provider struct {
	store          Keystore
	auth           Authenticator
	ttl            time.Duration
	acquireTimeout time.Duration
	now            func() time.Time

	idMu     sync.Mutex
	deviceID string

	mu       sync.Mutex
	cached   *Session
	cachedAt time.Time

	group singleflight.Group
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithCacheTTL overrides DefaultSessionCacheTTL.
func WithCacheTTL(d time.Duration) ProviderOption {
	return func(p *Provider) { p.ttl = d }
}

// WithAcquireTimeout overrides DefaultAcquireTimeout.
func WithAcquireTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) { p.acquireTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) { p.now = now }
}

func NewProvider(store Keystore, auth Authenticator, opts ...ProviderOption) *Provider {
	p := &Provider{
		store:          store,
		auth:           auth,
		ttl:            DefaultSessionCacheTTL,
		acquireTimeout: DefaultAcquireTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DeviceID returns the persisted device id, minting one on first use. It
// never fails: if the id cannot be persisted it still holds for this process.
func (p *Provider) DeviceID() string {
	p.idMu.Lock()
	defer p.idMu.Unlock()
	if p.deviceID != "" {
		return p.deviceID
	}

	id, err := p.store.Get(KeyDeviceID)
	if err != nil {
		observability.GlobalLogger.Warn("device id unreadable, minting a new one", slog.String("error", err.Error()))
	}
	if id == "" {
		id = uuid.NewString()
		if err := p.store.Set(KeyDeviceID, id); err != nil {
			observability.GlobalLogger.Warn("device id not persisted", slog.String("error", err.Error()))
		}
	}
	p.deviceID = id
	return id
}

// Session returns a usable session. In order it reuses the stored token,
// recovers the stored session id, or creates a new session.
func (p *Provider) Session(ctx context.Context) (*Session, error) {
	if s := p.fresh(); s != nil {
		return s, nil
	}
	// the shared attempt outlives any single caller; each caller still stops
	// waiting when its own ctx is done
	ch := p.group.DoChan("session", func() (interface{}, error) {
		if s := p.fresh(); s != nil {
			return s, nil
		}
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.acquireTimeout)
		defer cancel()
		s, err := p.acquire(actx)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.cached = s
		p.cachedAt = p.now()
		p.mu.Unlock()
		return s, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			observability.SingleflightSharedTotal.WithLabelValues("session").Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		s := *res.Val.(*Session)
		return &s, nil
	}
}

// Invalidate drops the cached session so the next Session call asks the
// backend again.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

func (p *Provider) fresh() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil || p.now().Sub(p.cachedAt) >= p.ttl {
		return nil
	}
	s := *p.cached
	return &s
}

func (p *Provider) acquire(ctx context.Context) (*Session, error) {
	deviceID := p.DeviceID()
	var errs []error

	if token, _ := p.store.Get(KeySessionToken); token != "" {
		current, err := p.auth.CurrentSession(ctx, token)
		if err == nil && current.DeviceID == deviceID {
			return &Session{ID: current.ID, DeviceID: deviceID, Token: token, ExpiresAt: current.ExpiresAt}, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	previous, _ := p.store.Get(KeyPreviousSessionID)
	if id, _ := p.store.Get(KeySessionID); id != "" {
		issued, err := p.auth.RecoverSession(ctx, id, deviceID)
		if err == nil {
			return p.persist(issued), nil
		}
		errs = append(errs, err)
		previous = id
	}

	issued, err := p.auth.CreateSession(ctx, deviceID, previous)
	if err == nil {
		return p.persist(issued), nil
	}
	errs = append(errs, err)

	return nil, &models.AppError{
		Code:    models.CodeSessionUnavailable,
		Message: "Session unavailable",
		Err:     errors.Join(errs...),
	}
}

func (p *Provider) persist(issued *models.IssuedSession) *Session {
	for key, value := range map[string]string{
		KeySessionID:         issued.Session.ID,
		KeySessionToken:      issued.Token,
		KeyPreviousSessionID: issued.Session.ID,
	} {
		if err := p.store.Set(key, value); err != nil {
			observability.GlobalLogger.Warn("session not persisted", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return &Session{
		ID:        issued.Session.ID,
		DeviceID:  issued.Session.DeviceID,
		Token:     issued.Token,
		ExpiresAt: issued.Session.ExpiresAt,
	}
}

// Forget removes the stored session so the next acquisition creates a new
// one. KeyPreviousSessionID is kept as proof of the device.
func (p *Provider) Forget() error {
	p.Invalidate()
	if err := p.store.Delete(KeySessionToken); err != nil {
		return err
	}
	return p.store.Delete(KeySessionID)
}

// Profile returns the last used display name and avatar.
func (p *Provider) Profile() Profile {
	username, _ := p.store.Get(KeyUsername)
	avatar, _ := p.store.Get(KeyAvatar)
	return Profile{Username: username, Avatar: avatar}
}

// SaveProfile remembers the display name and avatar for later submissions.
func (p *Provider) SaveProfile(profile Profile) error {
	if err := p.store.Set(KeyUsername, profile.Username); err != nil {
		return err
	}
	return p.store.Set(KeyAvatar, profile.Avatar)
}
