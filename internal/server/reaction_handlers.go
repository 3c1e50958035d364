package server

import (
	"unheard/internal/middleware"
	"unheard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleReactionRequest names the reaction to add or remove.
type ToggleReactionRequest struct {
	Type models.ReactionType `json:"type"`
}

// GetReactions godoc
// @Summary Reaction state
// @Description Counts per reaction type and the caller's own reactions
// @Tags reactions
// @Produce json
// @Param id path string true "Confession ID"
// @Success 200 {object} models.ReactionState
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /confessions/{id}/reactions [get]
func (s *Server) GetReactions(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	state, err := s.reactionService.State(c.UserContext(), middleware.ActorFrom(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(state)
}

// ToggleReaction godoc
// @Summary Toggle reaction
// @Description Adds the caller's reaction of the given type or removes it if present
// @Tags reactions
// @Accept json
// @Produce json
// @Param id path string true "Confession ID"
// @Param request body ToggleReactionRequest true "Reaction type"
// @Success 200 {object} models.ToggleResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /confessions/{id}/reactions [post]
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	var req ToggleReactionRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithAppError(c, err)
	}

	result, err := s.reactionService.Toggle(c.UserContext(), middleware.ActorFrom(c), id, req.Type)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}
