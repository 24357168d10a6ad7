package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hivex-io/hivex/internal/service"
)

// statusByCode maps service error codes to HTTP statuses. Unlisted codes are 500.
var statusByCode = map[string]int{
	service.CodeValidation:          fiber.StatusBadRequest,
	service.CodeNotFound:            fiber.StatusNotFound,
	service.CodeForbidden:           fiber.StatusForbidden,
	service.CodeCapExceeded:         fiber.StatusBadRequest,
	service.CodePoolExhausted:       fiber.StatusBadRequest,
	service.CodeAlreadyClaimed:      fiber.StatusBadRequest,
	service.CodeAlreadyRedeemed:     fiber.StatusBadRequest,
	service.CodeExpired:             fiber.StatusBadRequest,
	service.CodeNotOwned:            fiber.StatusForbidden,
	service.CodeConcurrencyConflict: fiber.StatusConflict,
	service.CodeDealAlreadyIssued:   fiber.StatusBadRequest,
	service.CodeDealFrozen:          fiber.StatusBadRequest,
	service.CodeDealInactive:        fiber.StatusBadRequest,
	service.CodeDuplicateTitle:      fiber.StatusBadRequest,
	service.CodeEmailInUse:          fiber.StatusBadRequest,
	service.CodeInvalidCredentials:  fiber.StatusBadRequest,
}

// respondError writes err as {"error", "code"}.
// Errors without a client code are logged and answered with a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	code := service.ErrorCode(err)
	status, ok := statusByCode[code]
	if !ok {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
			"code":  service.CodeInternal,
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"code":  service.CodeValidation,
	})
}

// formatValidationError converts the first validator error into a client message.
// Field names are the JSON names registered by the validator package.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return "invalid request: " + field + " is required"
	case "notblank":
		return "invalid request: " + field + " cannot be whitespace only"
	case "email":
		return "invalid request: " + field + " must be a valid email"
	case "max":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("invalid request: %s exceeds maximum of %s entries", field, fe.Param())
		}
		return fmt.Sprintf("invalid request: %s exceeds maximum length of %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("invalid request: %s must be at least %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("invalid request: %s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("invalid request: %s must be at most %s", field, fe.Param())
	case "notnil_uuid":
		return "invalid request: " + field + " must not contain the nil uuid"
	default:
		return "invalid request: " + field + " is invalid"
	}
}

// bind parses the JSON body into req and validates it.
// On failure the 400 response is already written and ok is false.
func bind(c *fiber.Ctx, v *validator.Validate, req any) (ok bool, err error) {
	if err := c.BodyParser(req); err != nil {
		return false, badRequest(c, "invalid request body")
	}
	if err := v.Struct(req); err != nil {
		return false, badRequest(c, formatValidationError(err))
	}
	return true, nil
}

// uuidParam parses a path parameter as a uuid.
func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
