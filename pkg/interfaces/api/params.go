package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/errs"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02"}

// queryTime parses an optional RFC3339 or date query parameter
func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errs.Validation("api", "invalid %s %q: use RFC3339 or YYYY-MM-DD", key, raw)
}

func queryPeriod(c *fiber.Ctx) (*time.Time, *time.Time, error) {
	from, err := queryTime(c, "from")
	if err != nil {
		return nil, nil, err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errs.Validation("api", "invalid %s %q", key, raw)
	}
	return &v, nil
}

func queryDecimal(c *fiber.Ctx, key, fallback string) (decimal.Decimal, error) {
	raw := c.Query(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errs.Validation("api", "invalid %s %q", key, raw)
	}
	return d, nil
}

func paramUUID(c *fiber.Ctx, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(key))
	if err != nil {
		return uuid.Nil, errs.Validation("api", "invalid %s %q", key, c.Params(key))
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}
