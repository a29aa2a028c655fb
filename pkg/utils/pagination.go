package utils

import (
	"github.com/gofiber/fiber/v2"
)

const (
	DefaultPageLimit = 5
	MaxPageLimit     = 100
)

type Pagination struct {
	Page  int
	Limit int
}

// ParsePagination reads page and limit query parameters, clamping them to
// sane bounds.
func ParsePagination(c *fiber.Ctx) Pagination {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	limit := c.QueryInt("limit", DefaultPageLimit)
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	return Pagination{Page: page, Limit: limit}
}
