package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_api/internal/admission"
)

// RateLimit rejects requests once the client address has used up its
// allowance. A nil admitter disables limiting.
func RateLimit(admitter admission.Admitter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if admitter == nil {
			return c.Next()
		}
		if !admitter.Admit(c.UserContext(), c.IP()) {
			return fiber.NewError(http.StatusTooManyRequests, "rate limit exceeded, try again later")
		}
		return c.Next()
	}
}
