package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/wallet_api/internal/admission"
	"github.com/congo-pay/wallet_api/internal/config"
	"github.com/congo-pay/wallet_api/internal/ledger"
	"github.com/congo-pay/wallet_api/internal/middleware"
	"github.com/congo-pay/wallet_api/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg        config.Config
	Store      ledger.Store
	Cache      *redis.Client
	Logger     *slog.Logger
	Engine     *wallet.Engine
	Dispatcher *wallet.Dispatcher
	Admitter   admission.Admitter
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Store == nil || d.Engine == nil || d.Dispatcher == nil {
		return fmt.Errorf("routes: store, engine and dispatcher are required")
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	walletHandler := wallet.NewHandler(d.Engine, d.Dispatcher, d.Logger)
	RegisterWalletRoutes(api, walletHandler,
		middleware.RateLimit(d.Admitter),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)

	return nil
}
