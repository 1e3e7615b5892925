package server

import (
	"errors"
	"log/slog"
	"strconv"

	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// respondError writes err with the status its code maps to. Unexpected
// errors are logged before their details are hidden from the client.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status == fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// currentUserID returns the ID stored by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// queryInt parses an optional integer query parameter. Range checks belong
// to the service layer.
func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewInvalidArgumentError(key + " must be an integer")
	}
	return n, nil
}

// parsePage reads limit and offset. On failure it writes a 400 response and
// returns errResponseWritten.
func parsePage(c *fiber.Ctx) (service.Page, error) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, err)
		return service.Page{}, errResponseWritten
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, err)
		return service.Page{}, errResponseWritten
	}
	return service.Page{Limit: limit, Offset: offset}, nil
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewInvalidArgumentError("Invalid "+param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseBody decodes the JSON request body into dest. On failure it writes a
// 400 response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewInvalidArgumentError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}
