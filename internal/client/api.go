// Package client talks to the Unheard HTTP API on behalf of one device.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"unheard/internal/models"
	"unheard/internal/service"
)

const defaultTimeout = 15 * time.Second

// API is a thin typed wrapper over the HTTP endpoints. Every call that needs
// a session takes the bearer token explicitly. API implements
// identity.Authenticator.
type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI returns an API rooted at baseURL, e.g. "http://localhost:8375".
// A nil httpClient uses a client with a 15s timeout.
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// ListQuery selects a page of confessions.
type ListQuery struct {
	Filter models.ConfessionFilter
	Limit  int
	Offset int
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Filter.Tag != "" {
		v.Set("tag", q.Filter.Tag)
	}
	if q.Filter.Topic != "" {
		v.Set("topic", q.Filter.Topic)
	}
	if q.Filter.Highlighted {
		v.Set("highlighted", "true")
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// Catalog is the server's vocabulary listing.
type Catalog struct {
	Tags      []string                 `json:"tags"`
	Moods     []string                 `json:"moods"`
	Topics    []models.TopicDefinition `json:"topics"`
	Reactions []models.ReactionType    `json:"reactions"`
}

func (a *API) CreateSession(ctx context.Context, deviceID, previousSessionID string) (*models.IssuedSession, error) {
	var out models.IssuedSession
	body := map[string]string{"device_id": deviceID}
	if previousSessionID != "" {
		body["previous_session_id"] = previousSessionID
	}
	err := a.do(ctx, http.MethodPost, "/api/account/sessions/anonymous", "", body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) RecoverSession(ctx context.Context, sessionID, deviceID string) (*models.IssuedSession, error) {
	var out models.IssuedSession
	path := "/api/account/sessions/" + url.PathEscape(sessionID) + "/recover"
	if err := a.do(ctx, http.MethodPost, path, "", map[string]string{"device_id": deviceID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) CurrentSession(ctx context.Context, token string) (*models.AnonymousSession, error) {
	var out models.AnonymousSession
	if err := a.do(ctx, http.MethodGet, "/api/account", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) RevokeSession(ctx context.Context, token string) error {
	return a.do(ctx, http.MethodDelete, "/api/account/sessions/current", token, nil, nil)
}

func (a *API) ListConfessions(ctx context.Context, token string, q ListQuery) ([]models.EnrichedConfession, error) {
	path := "/api/confessions"
	if v := q.values(); len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out []models.EnrichedConfession
	if err := a.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) CreateConfession(ctx context.Context, token string, in service.CreateConfessionInput) (*models.EnrichedConfession, error) {
	var out models.EnrichedConfession
	if err := a.do(ctx, http.MethodPost, "/api/confessions", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) GetConfession(ctx context.Context, token, id string) (*models.EnrichedConfession, error) {
	var out models.EnrichedConfession
	if err := a.do(ctx, http.MethodGet, confessionPath(id), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) UpdateConfession(ctx context.Context, token, id string, patch models.ConfessionPatch) (*models.EnrichedConfession, error) {
	var out models.EnrichedConfession
	if err := a.do(ctx, http.MethodPatch, confessionPath(id), token, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) DeleteConfession(ctx context.Context, token, id string) error {
	return a.do(ctx, http.MethodDelete, confessionPath(id), token, nil, nil)
}

func (a *API) Reactions(ctx context.Context, token, confessionID string) (*models.ReactionState, error) {
	var out models.ReactionState
	if err := a.do(ctx, http.MethodGet, confessionPath(confessionID)+"/reactions", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ToggleReaction(ctx context.Context, token, confessionID string, t models.ReactionType) (*models.ToggleResult, error) {
	var out models.ToggleResult
	body := map[string]models.ReactionType{"type": t}
	if err := a.do(ctx, http.MethodPost, confessionPath(confessionID)+"/reactions", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ListComments(ctx context.Context, token, confessionID string) ([]models.Comment, error) {
	var out []models.Comment
	if err := a.do(ctx, http.MethodGet, confessionPath(confessionID)+"/comments", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) AddComment(ctx context.Context, token string, in service.AddCommentInput) (*models.Comment, error) {
	var out models.Comment
	if err := a.do(ctx, http.MethodPost, confessionPath(in.ConfessionID)+"/comments", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) DeleteComment(ctx context.Context, token, confessionID, commentID string) error {
	path := confessionPath(confessionID) + "/comments/" + url.PathEscape(commentID)
	return a.do(ctx, http.MethodDelete, path, token, nil, nil)
}

func (a *API) TopicStats(ctx context.Context, token string) ([]models.Topic, error) {
	var out []models.Topic
	if err := a.do(ctx, http.MethodGet, "/api/topics", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) CommunityStats(ctx context.Context, token string) (*models.CommunityStats, error) {
	var out models.CommunityStats
	if err := a.do(ctx, http.MethodGet, "/api/stats", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) TopicCatalog(ctx context.Context, token string) ([]models.Topic, error) {
	var out []models.Topic
	if err := a.do(ctx, http.MethodGet, "/api/topics/catalog", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) Catalog(ctx context.Context) (*Catalog, error) {
	var out Catalog
	if err := a.do(ctx, http.MethodGet, "/api/catalog", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func confessionPath(id string) string {
	return "/api/confessions/" + url.PathEscape(id)
}

// do sends one request. Non-2xx responses come back as *models.AppError;
// transport failures as a transient store error.
func (a *API) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return models.NewTransientStoreError(method+" "+path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload models.ErrorResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload = models.ErrorResponse{Error: strings.TrimSpace(string(raw))}
	}
	if payload.Error == "" {
		payload.Error = http.StatusText(resp.StatusCode)
	}

	appErr := &models.AppError{
		Code:    payload.Code,
		Message: payload.Error,
	}
	if appErr.Code == "" {
		appErr.Code = codeForStatus(resp.StatusCode)
	}
	if payload.Details != "" {
		appErr.Err = errors.New(payload.Details)
	}
	return appErr
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return models.CodeValidation
	case http.StatusUnauthorized:
		return models.CodeUnauthorized
	case http.StatusForbidden:
		return models.CodePermissionDenied
	case http.StatusNotFound:
		return models.CodeNotFound
	case http.StatusTooManyRequests:
		return models.CodeRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return models.CodeTransientStore
	default:
		return models.CodeInternal
	}
}
