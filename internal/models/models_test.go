package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Len(t, c.Topics, 13)
	assert.Equal(t, "🧠", c.IconFor("Mental Health"))
	assert.Equal(t, "❤️", c.IconFor("Relationships"))
	assert.Equal(t, "📝", c.IconFor("Underwater Basket Weaving"))
	assert.Equal(t, "📝", c.IconFor(""))

	assert.True(t, c.IsTag("#anxiety"))
	assert.False(t, c.IsTag("anxiety"))
	assert.True(t, c.IsMood("inspired"))
	assert.False(t, c.IsMood("ecstatic"))

	topics := c.DefaultTopics()
	require.Len(t, topics, len(c.Topics))
	for _, tp := range topics {
		assert.Zero(t, tp.Count)
	}
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := map[string]string{
		"malformed":        "topics: [",
		"missing fallback": "topics: []\n",
		"incomplete topic": "fallback_icon: x\ntopics:\n  - name: A\n",
		"duplicate topic":  "fallback_icon: x\ntopics:\n  - {name: A, icon: a}\n  - {name: A, icon: b}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestReactionState(t *testing.T) {
	s := NewReactionState()
	assert.Len(t, s.Counts, 5)
	assert.Zero(t, s.Total())

	s.Counts[ReactionFire] = 3
	s.Counts[ReactionHeart] = 2
	s.UserReactions = append(s.UserReactions, ReactionFire)

	assert.Equal(t, 5, s.Total())
	assert.True(t, s.HasReacted(ReactionFire))
	assert.False(t, s.HasReacted(ReactionHeart))

	sums := s.Summaries()
	require.Len(t, sums, 5)
	assert.Equal(t, ReactionHeart, sums[0].Type)
	assert.Equal(t, 2, sums[0].Count)
	assert.Equal(t, ReactionSummary{Type: ReactionFire, Count: 3, UserHasReacted: true}, sums[4])

	assert.True(t, ReactionType("😂").Valid())
	assert.False(t, ReactionType("🤡").Valid())
}

func TestConfessionJSON_HidesDeviceID(t *testing.T) {
	c := EnrichedConfession{
		Confession: Confession{ID: "c1", Text: "hello", DeviceID: "device-secret", Timestamp: time.Unix(0, 0).UTC()},
		IsMine:     true,
	}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "device-secret")
	assert.Contains(t, string(b), `"is_mine":true`)
}

func TestIsLegacyOwner(t *testing.T) {
	assert.True(t, IsLegacyOwner("legacy-1234"))
	assert.False(t, IsLegacyOwner("8f1c"))
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	s := AnonymousSession{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.Active(now))
	assert.False(t, s.Active(now.Add(2*time.Hour)))

	revoked := now
	s.RevokedAt = &revoked
	assert.False(t, s.Active(now))
}

func TestAppError_IsAndStatus(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NewNotFoundError("Confession", "x"))

	assert.True(t, errors.Is(wrapped, &AppError{Code: CodeNotFound}))
	assert.False(t, errors.Is(wrapped, &AppError{Code: CodeValidation}))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))

	cases := map[error]int{
		NewValidationError("bad"):                         http.StatusBadRequest,
		wrapped:                                           http.StatusNotFound,
		NewPermissionDeniedError("no"):                    http.StatusForbidden,
		NewUnauthorizedError("no"):                        http.StatusUnauthorized,
		NewSessionUnavailableError(nil):                   http.StatusServiceUnavailable,
		NewTransientStoreError("list", errors.New("x")):   http.StatusServiceUnavailable,
		&AppError{Code: CodeRateLimited, Message: "slow"}: http.StatusTooManyRequests,
		errors.New("plain"):                               http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, StatusFor(err), err.Error())
	}
}

func TestRespondWithAppError(t *testing.T) {
	app := fiber.New()
	app.Get("/denied", func(c *fiber.Ctx) error {
		return RespondWithAppError(c, NewPermissionDeniedError("not yours"))
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return RespondWithAppError(c, NewInternalError(errors.New("db password leaked")))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/denied", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, CodePermissionDenied, body.Code)
	assert.Equal(t, "not yours", body.Error)

	resp2, err := app.Test(httptest.NewRequest(http.MethodGet, "/internal", nil))
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp2.StatusCode)
	var body2 ErrorResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&body2))
	assert.Empty(t, body2.Details)
}
