// Package httpx holds request parsing helpers shared by the handlers.
package httpx

import (
	"strconv"

	"gcdl-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

const TimestampLayout = "2006-01-02 15:04:05"

// ParamID reads a positive integer route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("%s must be a positive integer", name)
	}
	return uint(id), nil
}

// QueryID reads an optional positive integer query parameter. A missing
// parameter yields nil.
func QueryID(c *fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, apperr.Validation("%s must be a positive integer", name)
	}
	v := uint(id)
	return &v, nil
}

// Page reads limit/offset with a default limit of 50 and a ceiling of 500.
func Page(c *fiber.Ctx) (limit, offset int, err error) {
	limit = c.QueryInt("limit", 50)
	offset = c.QueryInt("offset", 0)
	if limit <= 0 || limit > 500 {
		return 0, 0, apperr.Validation("limit must be between 1 and 500")
	}
	if offset < 0 {
		return 0, 0, apperr.Validation("offset must not be negative")
	}
	return limit, offset, nil
}

// Body parses the JSON body into out.
func Body(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// List is the envelope every collection endpoint returns.
func List[T any](c *fiber.Ctx, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(fiber.Map{"total": len(items), "data": items})
}
