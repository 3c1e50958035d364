package server

import (
	"unheard/internal/middleware"
	"unheard/internal/models"
	"unheard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListComments godoc
// @Summary List comments
// @Tags comments
// @Produce json
// @Param id path string true "Confession ID"
// @Success 200 {array} models.Comment
// @Security BearerAuth
// @Router /confessions/{id}/comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	comments, err := s.commentService.List(c.UserContext(), middleware.ActorFrom(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment godoc
// @Summary Add comment
// @Tags comments
// @Accept json
// @Produce json
// @Param id path string true "Confession ID"
// @Param request body service.AddCommentInput true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /confessions/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	var in service.AddCommentInput
	if err := parseBody(c, &in); err != nil {
		return models.RespondWithAppError(c, err)
	}
	in.ConfessionID = id

	comment, err := s.commentService.Add(c.UserContext(), middleware.ActorFrom(c), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment godoc
// @Summary Delete comment
// @Tags comments
// @Param id path string true "Confession ID"
// @Param commentId path string true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /confessions/{id}/comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	commentID, err := requireParam(c, "commentId")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if err := s.commentService.Delete(c.UserContext(), middleware.ActorFrom(c), service.DeleteCommentInput{
		ConfessionID: id,
		CommentID:    commentID,
	}); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
