package newsletter

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/aurelle/shop-backend/internal/turnstile"
)

type Handler struct {
	service  *Service
	verifier turnstile.Verifier
}

type subscribeRequest struct {
	Email          string `json:"email"`
	TurnstileToken string `json:"turnstileToken"`
}

func NewHandler(service *Service, verifier turnstile.Verifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/v1/newsletter/subscribe", h.subscribe)
	app.Get("/api/v1/newsletter/unsubscribe", h.unsubscribe)
}

func (h *Handler) subscribe(c *fiber.Ctx) error {
	payload := new(subscribeRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	if payload.TurnstileToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Missing captcha token"})
	}
	if err := h.verifier.Verify(c.Context(), payload.TurnstileToken, c.IP()); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Captcha verification failed"})
	}

	if err := h.service.Subscribe(c.Context(), payload.Email); err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid email address"})
		case errors.Is(err, ErrBlockedDomain):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"success": false, "message": "This email domain is not accepted"})
		default:
			log.Printf("newsletter subscribe: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Subscription failed"})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Subscribed"})
}

func (h *Handler) unsubscribe(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Missing token"})
	}

	email, err := h.service.Unsubscribe(c.Context(), token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid or expired link"})
		}
		log.Printf("newsletter unsubscribe: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Unsubscribe failed"})
	}
	return c.JSON(fiber.Map{"success": true, "message": "Unsubscribed", "email": email})
}
