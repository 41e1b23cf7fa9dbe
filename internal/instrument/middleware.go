package instrument

import (
	"errors"
	"math/rand/v2"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"corisa-backend/internal/config"
)

// UserLocal is the fiber.Ctx local under which auth stores the caller's subject.
const UserLocal = "user_id"

const traceHeader = "X-Trace-ID"

// Middleware opens an "http" root span per sampled request. The trace id is
// taken from X-Trace-ID when the caller sends one and echoed back either way.
func Middleware(cfg config.InstrumentationConfig, buffer *EventBuffer) fiber.Handler {
	if !cfg.Enabled || buffer == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	tracer := NewInstrumenter(buffer)

	return func(c *fiber.Ctx) error {
		if cfg.SamplingRate < 1 && rand.Float64() >= cfg.SamplingRate {
			return c.Next()
		}

		traceID := c.Get(traceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceHeader, traceID)

		ctx := WithInstrumenter(WithTraceID(c.UserContext(), traceID), tracer)
		ctx, span := tracer.StartSpan(ctx, "http", "handler", "request")
		c.SetUserContext(ctx)
		defer span.End()

		err := c.Next()

		span.SetMetadata("method", c.Method())
		span.SetMetadata("path", c.Path())
		if user, _ := c.Locals(UserLocal).(string); user != "" {
			span.SetMetadata("user_id", user)
		}
		code := responseStatus(c, err)
		span.SetMetadata("status_code", code)
		if code >= fiber.StatusBadRequest {
			span.SetStatus("error")
		} else {
			span.SetStatus("ok")
		}
		return err
	}
}

// responseStatus is the status the error handler will send for err.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		return coded.StatusCode()
	}
	return fiber.StatusInternalServerError
}
