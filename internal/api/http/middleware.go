package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/api/dto"
	"github.com/deskline/ticket-sync/internal/observability"
	apperrors "github.com/deskline/ticket-sync/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware renders errors as {"detail": message}, the shape the client reads
// server messages from.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				status, response := renderError(err)
				metrics.RecordError(c.Path(), c.Method(), response.Code)
				if status >= 500 {
					logger.Error("request failed", zap.Error(err))
				}
				c.Status(status)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

func renderError(err error) (int, dto.ErrorResponse) {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return fiberErr.Code, dto.ErrorResponse{Detail: fiberErr.Message}
	}
	domainErr := apperrors.ToDomainError(err)
	status := domainErr.HTTPStatus
	if status == 0 {
		status = fiber.StatusBadGateway
	}
	response := dto.ErrorResponse{Detail: domainErr.Message, Code: domainErr.Code}
	if len(domainErr.Details) > 0 {
		response.Extra = domainErr.Details
	}
	return status, response
}
