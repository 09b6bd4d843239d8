package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type body struct {
	Error detail `json:"error"`
}

type detail struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// ErrorHandler renders every error returned by a route as
// {"error": {"kind", "message"}}. Storage failures are logged in full and
// answered with a generic message.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *Error
		if errors.As(err, &appErr) {
			if appErr.Kind == KindStorage {
				log.WithError(err).WithFields(logrus.Fields{
					"method": c.Method(),
					"path":   c.Path(),
				}).Error("storage error")
				return c.Status(fiber.StatusInternalServerError).JSON(body{
					Error: detail{Kind: KindStorage, Message: "internal storage error"},
				})
			}
			return c.Status(appErr.Kind.Status()).JSON(body{
				Error: detail{Kind: appErr.Kind, Message: appErr.Message},
			})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(body{
				Error: detail{Kind: kindForStatus(fe.Code), Message: fe.Message},
			})
		}

		log.WithError(err).WithField("path", c.Path()).Error("unexpected error")
		return c.Status(fiber.StatusInternalServerError).JSON(body{
			Error: detail{Kind: KindStorage, Message: "unexpected server error"},
		})
	}
}

func kindForStatus(code int) Kind {
	switch code {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
		return KindValidation
	case fiber.StatusUnauthorized:
		return KindUnauthenticated
	case fiber.StatusForbidden:
		return KindForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return KindNotFound
	case fiber.StatusConflict:
		return KindConflict
	default:
		return KindStorage
	}
}
