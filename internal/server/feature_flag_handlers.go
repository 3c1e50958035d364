package server

import (
	"unheard/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags godoc
// @Summary Feature flags
// @Description Flags as evaluated for the calling device
// @Tags account
// @Produce json
// @Success 200 {object} map[string]bool
// @Security BearerAuth
// @Router /account/features [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(map[string]bool{})
	}
	return c.JSON(s.featureFlags.Snapshot(middleware.ActorFrom(c).DeviceID))
}
