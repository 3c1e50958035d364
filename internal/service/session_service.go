package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"unheard/internal/cache"
	"unheard/internal/models"
	"unheard/internal/observability"
	"unheard/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultSessionTTL = 30 * 24 * time.Hour
	maxDeviceIDChars  = 64
)

// SessionService issues and checks anonymous sessions. It implements
// middleware.SessionVerifier.
type SessionService struct {
	repo   repository.SessionRepository
	cache  *cache.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(repo repository.SessionRepository, store *cache.Store, secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		repo:   repo,
		cache:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func validateDeviceID(deviceID string) error {
	if deviceID == "" {
		return models.NewValidationError("device_id is required")
	}
	if utf8.RuneCountInString(deviceID) > maxDeviceIDChars {
		return models.NewValidationError(fmt.Sprintf("device_id must be at most %d characters", maxDeviceIDChars))
	}
	if models.IsLegacyOwner(deviceID) {
		return models.NewValidationError("device_id is reserved")
	}
	return nil
}

// CreateAnonymous starts a new session for deviceID. A device that was
// issued a session before must name one of its earlier sessions in
// previousSessionID; otherwise anyone who learned the device id could act
// as that device.
func (s *SessionService) CreateAnonymous(ctx context.Context, deviceID, previousSessionID string) (*models.IssuedSession, error) {
	if err := validateDeviceID(deviceID); err != nil {
		return nil, err
	}
	if len(s.secret) == 0 {
		return nil, models.NewInternalError(errors.New("session secret not configured"))
	}
	if err := s.checkEnrollment(ctx, deviceID, previousSessionID); err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.AnonymousSession{
		ID:         uuid.NewString(),
		DeviceID:   deviceID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
		LastSeenAt: now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, models.NewSessionUnavailableError(err)
	}
	token, err := s.sign(session)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.SessionsIssuedTotal.WithLabelValues("created").Inc()
	observability.GlobalLogger.InfoContext(ctx, "anonymous session created", slog.String("session_id", session.ID))
	return &models.IssuedSession{Session: *session, Token: token}, nil
}

func (s *SessionService) checkEnrollment(ctx context.Context, deviceID, previousSessionID string) error {
	enrolled, err := s.repo.DeviceEnrolled(ctx, deviceID)
	if err != nil {
		return models.NewSessionUnavailableError(err)
	}
	if !enrolled {
		return nil
	}
	if previousSessionID != "" {
		previous, err := s.repo.GetByID(ctx, previousSessionID)
		if err != nil && models.CodeOf(err) != models.CodeNotFound {
			return models.NewSessionUnavailableError(err)
		}
		if err == nil && previous.DeviceID == deviceID {
			return nil
		}
	}
	observability.GlobalLogger.WarnContext(ctx, "session refused for enrolled device")
	return models.NewPermissionDeniedError("Device already has a session; recover it instead")
}

// Recover issues a fresh token for an existing session of the same device
// and extends its expiry. Revoked sessions cannot be recovered.
func (s *SessionService) Recover(ctx context.Context, sessionID, deviceID string) (*models.IssuedSession, error) {
	if err := validateDeviceID(deviceID); err != nil {
		return nil, err
	}
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		if models.CodeOf(err) == models.CodeNotFound {
			return nil, err
		}
		return nil, models.NewSessionUnavailableError(err)
	}
	if session.DeviceID != deviceID {
		return nil, models.NewPermissionDeniedError("Session belongs to another device")
	}
	if session.RevokedAt != nil {
		return nil, models.NewUnauthorizedError("Session has been revoked")
	}

	now := s.now()
	session.ExpiresAt = now.Add(s.ttl)
	session.LastSeenAt = now
	if err := s.repo.Renew(ctx, session.ID, session.ExpiresAt, session.LastSeenAt); err != nil {
		if models.CodeOf(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("Session has been revoked")
		}
		return nil, models.NewSessionUnavailableError(err)
	}
	s.cache.Invalidate(ctx, cache.SessionKey(session.ID))

	token, err := s.sign(session)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.SessionsIssuedTotal.WithLabelValues("recovered").Inc()
	return &models.IssuedSession{Session: *session, Token: token}, nil
}

// Verify parses a bearer token and returns its active session.
func (s *SessionService) Verify(ctx context.Context, token string) (*models.AnonymousSession, error) {
	claims := &models.SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(models.SessionIssuer),
		jwt.WithAudience(models.SessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" || claims.DeviceID == "" {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	session, err := s.load(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if session.DeviceID != claims.DeviceID || !session.Active(s.now()) {
		return nil, models.NewUnauthorizedError("Session is no longer active")
	}
	return session, nil
}

// Revoke ends the actor's current session.
func (s *SessionService) Revoke(ctx context.Context, actor models.Actor) error {
	if actor.SessionID == "" {
		return models.NewUnauthorizedError("A session is required")
	}
	if err := s.repo.Revoke(ctx, actor.SessionID, s.now()); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.SessionKey(actor.SessionID))
	return nil
}

// Get returns the session row for id.
func (s *SessionService) Get(ctx context.Context, id string) (*models.AnonymousSession, error) {
	return s.load(ctx, id)
}

func (s *SessionService) load(ctx context.Context, id string) (*models.AnonymousSession, error) {
	var session models.AnonymousSession
	err := s.cache.Aside(ctx, cache.SessionKey(id), &session, cache.SessionTTL, func() error {
		row, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		session = *row
		return nil
	})
	if err != nil {
		if models.CodeOf(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("Unknown session")
		}
		return nil, models.NewTransientStoreError("load session", err)
	}
	return &session, nil
}

func (s *SessionService) sign(session *models.AnonymousSession) (string, error) {
	claims := models.SessionClaims{
		DeviceID: session.DeviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    models.SessionIssuer,
			Subject:   session.ID,
			Audience:  jwt.ClaimStrings{models.SessionAudience},
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
