package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_api/internal/wallet"
)

// RegisterWalletRoutes wires wallet endpoints. mutation runs in front of the
// operation endpoint only.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, mutation ...fiber.Handler) {
	r.Post("/wallet", append(mutation, h.Submit)...)
	r.Get("/wallet/:walletId", h.Balance)
	r.Delete("/wallet/:walletId/cache", h.EvictCache)
}
