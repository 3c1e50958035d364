package server

import (
	"strings"

	"unheard/internal/models"
	"unheard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > service.MaxPageSize {
		limit = service.MaxPageSize
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseConfessionFilter reads the tag, topic and highlighted query parameters.
func parseConfessionFilter(c *fiber.Ctx) models.ConfessionFilter {
	return models.ConfessionFilter{
		Tag:         strings.TrimSpace(c.Query("tag")),
		Topic:       strings.TrimSpace(c.Query("topic")),
		Highlighted: c.QueryBool("highlighted", false),
	}
}

// requireParam returns the trimmed route parameter or a validation error.
func requireParam(c *fiber.Ctx, name string) (string, error) {
	v := strings.TrimSpace(c.Params(name))
	if v == "" {
		return "", models.NewValidationError(name + " is required")
	}
	return v, nil
}

// parseBody decodes the request body into dest.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}
