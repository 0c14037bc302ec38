// Package header sets the response headers the relay owes its browser and
// terminal clients:
//
//	Client <--> Relay <--> Gemini
//
// CORS headers go on every response, including errors and preflights, and
// streaming responses additionally carry the SSE headers. No client header
// is ever forwarded upstream.
package header

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AllowedHeaders are the request headers a browser client may send.
var AllowedHeaders = []string{
	"authorization",
	"x-client-info",
	"apikey",
	"content-type",
}

// cors is the fixed set of CORS headers.
var cors = map[string]string{
	fiber.HeaderAccessControlAllowOrigin:  "*",
	fiber.HeaderAccessControlAllowHeaders: strings.Join(AllowedHeaders, ", "),
}

// stream is the fixed set of headers on an SSE response.
var stream = map[string]string{
	fiber.HeaderContentType:  "text/event-stream",
	fiber.HeaderCacheControl: "no-cache",
	fiber.HeaderConnection:   "keep-alive",
}

// Handler manages headers on relay responses.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// CORS returns middleware that stamps the CORS headers on every response and
// answers any OPTIONS request with an empty 204.
func (h *Handler) CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		h.SetCORSHeaders(c)

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}

// SetCORSHeaders sets the CORS headers on the response.
func (h *Handler) SetCORSHeaders(c *fiber.Ctx) {
	for k, v := range cors {
		c.Set(k, v)
	}
}

// SetStreamHeaders sets the SSE headers on the response.
func (h *Handler) SetStreamHeaders(c *fiber.Ctx) {
	for k, v := range stream {
		c.Set(k, v)
	}
}
