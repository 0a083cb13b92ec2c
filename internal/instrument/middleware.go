package instrument

import (
	"errors"
	"math/rand"

	"github.com/gofiber/fiber/v2"

	"ogabook-admin/internal/config"
	"ogabook-admin/internal/metadata"
)

// Middleware returns a Fiber middleware that sets up tracing for each request.
// It propagates or generates an X-Trace-ID, creates a root HTTP span and injects
// the instrumenter into the request context for downstream handlers.
// The trace ID is always echoed back so log lines can be correlated with
// responses, even for sampled-out requests.
func Middleware(cfg config.InstrumentationConfig, inst Instrumenter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get("X-Trace-ID")
		if traceID == "" {
			traceID = newUUID()
		}
		c.Set("X-Trace-ID", traceID)

		ctx := WithTraceID(c.UserContext(), traceID)
		c.SetUserContext(ctx)

		if !cfg.Enabled || inst == nil {
			return c.Next()
		}

		// Sampling: skip span recording for a proportion of requests
		if cfg.SamplingRate < 1.0 && rand.Float64() > cfg.SamplingRate {
			return c.Next()
		}

		ctx = WithInstrumenter(ctx, inst)
		ctx, span := inst.StartSpan(ctx, "http", "handler", "request")
		span.SetMetadata("method", c.Method())
		span.SetMetadata("path", c.Path())
		c.SetUserContext(ctx)

		err := c.Next()

		// The auth middleware stores the principal in c.Locals("user")
		if user, ok := c.Locals("user").(*metadata.Principal); ok && user != nil {
			span.SetMetadata("user_id", user.ID)
		}

		statusCode := c.Response().StatusCode()
		if err != nil {
			var coded interface{ StatusCode() int }
			var fe *fiber.Error
			switch {
			case errors.As(err, &coded):
				statusCode = coded.StatusCode()
			case errors.As(err, &fe):
				statusCode = fe.Code
			case statusCode < fiber.StatusBadRequest:
				statusCode = fiber.StatusInternalServerError
			}
		}
		span.SetMetadata("status_code", statusCode)
		if statusCode >= fiber.StatusBadRequest {
			span.SetStatus("error")
		} else {
			span.SetStatus("ok")
		}
		span.End()

		return err
	}
}
