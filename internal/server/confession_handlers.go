package server

import (
	"unheard/internal/middleware"
	"unheard/internal/models"
	"unheard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListConfessions godoc
// @Summary List confessions
// @Description Newest first, or filtered by one of tag, topic or highlighted
// @Tags confessions
// @Produce json
// @Param tag query string false "Tag filter, with or without leading #"
// @Param topic query string false "Topic filter"
// @Param highlighted query bool false "Only highlighted confessions"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.EnrichedConfession
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /confessions [get]
func (s *Server) ListConfessions(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	confessions, err := s.confessionService.List(c.UserContext(), middleware.ActorFrom(c), service.ListConfessionsInput{
		Filter: parseConfessionFilter(c),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(confessions)
}

// CreateConfession godoc
// @Summary Create confession
// @Tags confessions
// @Accept json
// @Produce json
// @Param request body service.CreateConfessionInput true "Confession"
// @Success 201 {object} models.EnrichedConfession
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /confessions [post]
func (s *Server) CreateConfession(c *fiber.Ctx) error {
	var in service.CreateConfessionInput
	if err := parseBody(c, &in); err != nil {
		return models.RespondWithAppError(c, err)
	}

	confession, err := s.confessionService.Create(c.UserContext(), middleware.ActorFrom(c), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(confession)
}

// GetConfession godoc
// @Summary Get confession
// @Tags confessions
// @Produce json
// @Param id path string true "Confession ID"
// @Success 200 {object} models.EnrichedConfession
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /confessions/{id} [get]
func (s *Server) GetConfession(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	confession, err := s.confessionService.Get(c.UserContext(), middleware.ActorFrom(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(confession)
}

// UpdateConfession godoc
// @Summary Update confession
// @Description Only the device that wrote the confession may edit it
// @Tags confessions
// @Accept json
// @Produce json
// @Param id path string true "Confession ID"
// @Param request body models.ConfessionPatch true "Fields to change"
// @Success 200 {object} models.EnrichedConfession
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /confessions/{id} [patch]
func (s *Server) UpdateConfession(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	var patch models.ConfessionPatch
	if err := parseBody(c, &patch); err != nil {
		return models.RespondWithAppError(c, err)
	}

	confession, err := s.confessionService.Update(c.UserContext(), middleware.ActorFrom(c), id, patch)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(confession)
}

// DeleteConfession godoc
// @Summary Delete confession
// @Description Removes the confession with its comments and reactions
// @Tags confessions
// @Param id path string true "Confession ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /confessions/{id} [delete]
func (s *Server) DeleteConfession(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if err := s.confessionService.Delete(c.UserContext(), middleware.ActorFrom(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
