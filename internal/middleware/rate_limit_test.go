package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_api/internal/admission"
)

func TestRateLimitRejectsOverCapacity(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit(admission.NewController(2, time.Hour)))
	calls := 0
	app.Post("/api/v1/wallet", func(c *fiber.Ctx) error {
		calls++
		return c.SendStatus(fiber.StatusOK)
	})

	want := []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}
	for i, status := range want {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/api/v1/wallet", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != status {
			t.Fatalf("request %d: expected %d got %d", i, status, resp.StatusCode)
		}
	}
	if calls != 2 {
		t.Fatalf("denied request reached the handler: %d calls", calls)
	}
}

type denyAll struct{}

func (denyAll) Admit(context.Context, string) bool { return false }

func TestRateLimitNilAdmitterAllows(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit(nil))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}

	app = fiber.New()
	app.Use(RateLimit(denyAll{}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, resp.StatusCode)
	}
}
