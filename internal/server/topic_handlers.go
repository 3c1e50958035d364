package server

import (
	"unheard/internal/middleware"
	"unheard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CatalogResponse lists the closed vocabularies a client validates against.
type CatalogResponse struct {
	Tags      []string                 `json:"tags"`
	Moods     []string                 `json:"moods"`
	Topics    []models.TopicDefinition `json:"topics"`
	Reactions []models.ReactionType    `json:"reactions"`
}

// GetTopicStats godoc
// @Summary Topic statistics
// @Description Confession count per topic, most used first
// @Tags topics
// @Produce json
// @Success 200 {array} models.Topic
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /topics [get]
func (s *Server) GetTopicStats(c *fiber.Ctx) error {
	topics, err := s.topicService.Stats(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(topics)
}

// GetCommunityStats godoc
// @Summary Community statistics
// @Description Total confessions, distinct voices and confessions filed under a topic
// @Tags topics
// @Produce json
// @Success 200 {object} models.CommunityStats
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /stats [get]
func (s *Server) GetCommunityStats(c *fiber.Ctx) error {
	stats, err := s.topicService.Community(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(stats)
}

// GetTopicCatalog godoc
// @Summary Topic catalog
// @Description Every known topic with its icon and a zero count
// @Tags topics
// @Produce json
// @Success 200 {array} models.Topic
// @Security BearerAuth
// @Router /topics/catalog [get]
func (s *Server) GetTopicCatalog(c *fiber.Ctx) error {
	return c.JSON(s.topicService.Catalog())
}

// GetCatalog godoc
// @Summary Vocabulary catalog
// @Tags catalog
// @Produce json
// @Success 200 {object} CatalogResponse
// @Router /catalog [get]
func (s *Server) GetCatalog(c *fiber.Ctx) error {
	return c.JSON(CatalogResponse{
		Tags:      s.catalog.Tags,
		Moods:     s.catalog.Moods,
		Topics:    s.catalog.Topics,
		Reactions: models.ReactionTypes,
	})
}
