package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/geo-drilldown/internal/pkg/errors"
)

// parseOptionalBody decodes the body when one was sent.
func parseOptionalBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return errors.ErrInvalidRequest.WithReason("invalid request body")
	}
	return nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errors.ErrInvalidRequest.WithReason("invalid request body")
	}
	return nil
}

func parseQuery(c *fiber.Ctx, out interface{}) error {
	if err := c.QueryParser(out); err != nil {
		return errors.ErrInvalidRequest.WithReason("invalid query parameters")
	}
	return nil
}
