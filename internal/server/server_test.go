package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"unheard/internal/config"
	"unheard/internal/models"
	"unheard/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret-that-is-long-enough-for-hs256",
		SessionTTLHours:    24,
		Port:               "0",
		Env:                "test",
		AllowedOrigins:     "http://localhost:5173",
		HighlightThreshold: 30,
		EffectWorkers:      2,
		EffectQueueSize:    64,
		EnrichConcurrency:  4,
	}
}

// newTestServer wires a Server over in-memory SQLite and miniredis.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv, err := NewServerWithDeps(testConfig(), testutil.NewTestDB(t), rdb)
	require.NoError(t, err)
	t.Cleanup(srv.effects.Close)

	return srv, srv.App()
}

// do sends a JSON request and returns the status code and raw body.
func do(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// newSession creates an anonymous session for deviceID and returns it.
func newSession(t *testing.T, app *fiber.App, deviceID string) models.IssuedSession {
	t.Helper()
	status, body := do(t, app, http.MethodPost, "/api/account/sessions/anonymous", "", DeviceRequest{DeviceID: deviceID})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	issued := decode[models.IssuedSession](t, body)
	require.NotEmpty(t, issued.Token)
	return issued
}

func flushEffects(t *testing.T, srv *Server) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.effects.Flush(ctx))
}

const tenWords = "one two three four five six seven eight nine ten"
