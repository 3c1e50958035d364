package server

import (
	"unheard/internal/middleware"
	"unheard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// DeviceRequest carries the caller's device identity. PreviousSessionID is
// required when the device was issued a session before.
type DeviceRequest struct {
	DeviceID          string `json:"device_id"`
	PreviousSessionID string `json:"previous_session_id,omitempty"`
}

// CreateAnonymousSession godoc
// @Summary Create anonymous session
// @Description Issue a new anonymous session bound to the given device id. A device that already has sessions must name one of them.
// @Tags account
// @Accept json
// @Produce json
// @Param request body DeviceRequest true "Device identity"
// @Success 201 {object} models.IssuedSession
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /account/sessions/anonymous [post]
func (s *Server) CreateAnonymousSession(c *fiber.Ctx) error {
	var req DeviceRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}

	issued, err := s.sessionService.CreateAnonymous(c.UserContext(), req.DeviceID, req.PreviousSessionID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(issued)
}

// RecoverSession godoc
// @Summary Recover session
// @Description Re-issue a token for an existing session owned by the device
// @Tags account
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body DeviceRequest true "Device identity"
// @Success 200 {object} models.IssuedSession
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /account/sessions/{id}/recover [post]
func (s *Server) RecoverSession(c *fiber.Ctx) error {
	sessionID, err := requireParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	var req DeviceRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}

	issued, err := s.sessionService.Recover(c.UserContext(), sessionID, req.DeviceID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(issued)
}

// GetAccount godoc
// @Summary Current session
// @Tags account
// @Produce json
// @Success 200 {object} models.AnonymousSession
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /account [get]
func (s *Server) GetAccount(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	session, err := s.sessionService.Get(c.UserContext(), actor.SessionID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(session)
}

// RevokeSession godoc
// @Summary Revoke current session
// @Tags account
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /account/sessions/current [delete]
func (s *Server) RevokeSession(c *fiber.Ctx) error {
	if err := s.sessionService.Revoke(c.UserContext(), middleware.ActorFrom(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
