package http

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/eservice/internal/config"
	"github.com/spec-kit/eservice/internal/observability"
	apperrors "github.com/spec-kit/eservice/pkg/util/errorutil"
)

const tracerName = "github.com/spec-kit/eservice/internal/api/http"

// MiddlewareConfig bundles the knobs for the global middleware chain.
type MiddlewareConfig struct {
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	RequestTimeout time.Duration
	RateLimit      config.RateLimitConfig
	CORS           config.CORSConfig
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app.Use(requestid.New())
	app.Use(observability.TracingMiddleware(tracerName))
	app.Use(observability.RequestLogger(logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(logger, cfg.Metrics))
	if len(cfg.CORS.Origins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(cfg.CORS.Origins, ","),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Request-ID",
		}))
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.Requests > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.Requests,
			Expiration: cfg.RateLimit.Window(),
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return apperrors.NewRateLimitError("")
			},
		}))
	}
	if cfg.RequestTimeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.RequestTimeout))
	}
}

// ErrorHandler is the fiber app level fallback; it renders errors that escape
// the middleware chain in the same shape.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, logger, nil, err)
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		var domainErr *apperrors.DomainError
		if err != nil && !errors.As(err, &domainErr) && errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewTimeoutError("request", timeout.Seconds(), err)
		}
		return err
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				err = writeError(c, logger, metrics, err)
			}
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) error {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(c.Method(), observability.RouteLabel(c), domainErr.Code)

	details := domainErr.Details
	if details == nil {
		details = map[string]any{}
	}
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("error_code", domainErr.Code),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(domainErr),
		)
	}

	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
		"error_code": domainErr.Code,
		"message":    domainErr.Message,
		"details":    details,
	})
}
