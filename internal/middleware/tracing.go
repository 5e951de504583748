package middleware

import (
	"fmt"

	"folio/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware opens a server span for every request and continues any
// trace carried in the request headers. Spans are named "METHOD route" with
// the matched route pattern, so /media files and other static paths share a
// single name. Requests that match no route are named by method alone.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Join the caller's trace, if any
		carrier := propagation.HeaderCarrier(c.GetReqHeaders())
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		ctx, span := observability.Tracer.Start(ctx, c.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.Path()),
				attribute.String("http.client_ip", c.IP()),
				attribute.String("http.user_agent", c.Get("User-Agent")),
			),
		)
		defer span.End()

		// Expose the trace to the logger and the client
		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set("X-Trace-ID", traceID)
		if rid, ok := c.Locals("requestid").(string); ok {
			span.SetAttributes(attribute.String("request.id", rid))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		// The route is only known once the chain has run
		if route := matchedRoute(c); route != "" {
			span.SetName(c.Method() + " " + route)
			span.SetAttributes(attribute.String("http.route", route))
		}

		status := responseStatus(c, err)
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
		}
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}

		if username, ok := c.Locals("username").(string); ok {
			span.SetAttributes(attribute.String("user.name", username))
		}

		return err
	}
}

// matchedRoute returns the pattern of the last route that ran for c, or ""
// when the chain never got past the root middleware.
func matchedRoute(c *fiber.Ctx) string {
	r := c.Route()
	// Root middleware is mounted at "/" and matches every path.
	if r == nil || (r.Path == "/" && c.Path() != "/") {
		return ""
	}
	return r.Path
}

// responseStatus is the status the client will see. Errors returned up the
// chain are turned into responses later by the app's error handler.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	if fe, ok := err.(*fiber.Error); ok {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
