package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/wallet_api/internal/admission"
	"github.com/congo-pay/wallet_api/internal/config"
	"github.com/congo-pay/wallet_api/internal/ledger"
	"github.com/congo-pay/wallet_api/internal/routes"
	"github.com/congo-pay/wallet_api/internal/wallet"
)

// Server wraps the Fiber application and the wallet runtime behind it.
type Server struct {
	app        *fiber.App
	cfg        config.Config
	logger     *slog.Logger
	dispatcher *wallet.Dispatcher
	stopSweep  context.CancelFunc
	sweepDone  chan struct{}
}

// New builds the wallet engine, dispatcher and rate limiter, then delegates
// route wiring to routes.Setup. cache may be nil, in which case the balance
// cache and rate limiter are kept in process.
func New(cfg config.Config, store ledger.Store, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	var balanceCache wallet.Cache = wallet.NewMemoryCache()
	if cache != nil {
		balanceCache = wallet.NewRedisCache(cache)
	}
	engine := wallet.NewEngine(store, balanceCache, logger)
	dispatcher := wallet.NewDispatcher(engine, cfg.Workers)

	s := &Server{
		app:        app,
		cfg:        cfg,
		logger:     logger,
		dispatcher: dispatcher,
		stopSweep:  func() {},
	}

	var admitter admission.Admitter
	if cache != nil {
		admitter = admission.NewRedisLimiter(cache, cfg.RateLimitCapacity, cfg.RateLimitWindow, logger)
	} else {
		controller := admission.NewController(cfg.RateLimitCapacity, cfg.RateLimitWindow)
		ctx, cancel := context.WithCancel(context.Background())
		s.stopSweep = cancel
		s.sweepDone = make(chan struct{})
		go func() {
			defer close(s.sweepDone)
			controller.Run(ctx, cfg.RateLimitSweepInterval)
		}()
		admitter = controller
	}

	err := routes.Setup(app, routes.Deps{
		Cfg:        cfg,
		Store:      store,
		Cache:      cache,
		Logger:     logger,
		Engine:     engine,
		Dispatcher: dispatcher,
		Admitter:   admitter,
	})
	if err != nil {
		s.stopSweep()
		return nil, err
	}
	return s, nil
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests, then drains in-flight wallet operations.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.app.ShutdownWithContext(ctx)

	s.stopSweep()
	if s.sweepDone != nil {
		<-s.sweepDone
	}

	dispatchErr := s.dispatcher.Close(ctx)
	if dispatchErr != nil {
		s.logger.Error("wallet operations still running at shutdown", slog.Any("error", dispatchErr))
	}
	return errors.Join(httpErr, dispatchErr)
}
