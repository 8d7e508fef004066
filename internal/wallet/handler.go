package wallet

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/wallet_api/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	engine     *Engine
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(engine *Engine, dispatcher *Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, dispatcher: dispatcher, logger: logger}
}

type operationRequest struct {
	WalletID      string `json:"walletId"`
	OperationType string `json:"operationType"`
	Amount        int64  `json:"amount"`
}

type walletResponse struct {
	WalletID string `json:"walletId"`
	Balance  int64  `json:"balance"`
	Version  int64  `json:"version"`
}

func (r operationRequest) operation() (Operation, error) {
	id, err := uuid.Parse(r.WalletID)
	if err != nil {
		return Operation{}, fmt.Errorf("%w: wallet id: %v", ErrInvalidArgument, err)
	}
	kind, err := ParseKind(r.OperationType)
	if err != nil {
		return Operation{}, err
	}
	op := Operation{WalletID: id, Kind: kind, Amount: r.Amount}
	return op, op.Validate()
}

// Submit decodes a deposit or withdrawal, hands it to the dispatcher and
// waits for the outcome.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req operationRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fmt.Errorf("%w: %v", ErrInvalidArgument, err))
	}
	op, err := req.operation()
	if err != nil {
		return h.fail(c, err)
	}

	ctx := c.UserContext()
	w, err := h.dispatcher.Submit(ctx, op).Await(ctx)
	if err != nil {
		return h.fail(c, err)
	}

	h.logger.Info("wallet operation applied",
		slog.String("wallet_id", w.ID.String()),
		slog.String("kind", string(op.Kind)),
		slog.Int64("amount", op.Amount),
		slog.Int64("version", w.Version),
	)
	return c.Status(http.StatusOK).SendString("Operation successful")
}

// Balance returns the wallet snapshot.
func (h *Handler) Balance(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}
	w, err := h.engine.Balance(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		h.logger.Error("balance lookup failed", slog.String("wallet_id", id.String()), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(walletResponse{
		WalletID: w.ID.String(),
		Balance:  w.Balance,
		Version:  w.Version,
	})
}

// EvictCache drops the cached snapshot of a wallet.
func (h *Handler) EvictCache(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}
	if err := h.engine.Evict(c.UserContext(), id); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	attrs := []any{slog.Int("status", status), slog.Any("error", err)}
	if status >= http.StatusInternalServerError {
		h.logger.Error("wallet operation failed", attrs...)
	} else {
		h.logger.Warn("wallet operation rejected", attrs...)
	}
	return c.Status(status).SendString("Operation failed: " + err.Error())
}

// StatusFor maps an engine error to the HTTP status reported to clients.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
