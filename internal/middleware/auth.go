package middleware

import (
	"context"
	"strings"

	"unheard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionVerifier resolves a bearer token to a live anonymous session.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*models.AnonymousSession, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SessionRequired enforces a valid anonymous session. On success the device
// and session ids are stored in c.Locals("deviceID") and c.Locals("sessionID")
// and the device id is attached to the request context for logging.
func SessionRequired(verifier SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c)
		if !ok {
			return models.RespondWithAppError(c, models.NewUnauthorizedError("Authorization required"))
		}

		session, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}

		c.Locals("deviceID", session.DeviceID)
		c.Locals("sessionID", session.ID)
		c.SetUserContext(WithDeviceID(c.UserContext(), session.DeviceID))

		return c.Next()
	}
}

// ActorFrom returns the device acting on the request. It is only meaningful
// behind SessionRequired.
func ActorFrom(c *fiber.Ctx) models.Actor {
	deviceID, _ := c.Locals("deviceID").(string)
	sessionID, _ := c.Locals("sessionID").(string)
	return models.Actor{DeviceID: deviceID, SessionID: sessionID}
}
