package locale

import (
	"context"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Repository is the read surface the handler needs.
type Repository interface {
	ActiveLocales(ctx context.Context) ([]Locale, error)
	Translations(ctx context.Context, code string, namespaces []string) ([]Translation, error)
}

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/locales", h.list)
	app.Get("/api/v1/locales/:code/translations", h.translations)
}

func (h *Handler) list(c *fiber.Ctx) error {
	locales, err := h.repo.ActiveLocales(c.Context())
	if err != nil {
		log.Printf("list locales: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load locales"})
	}
	return c.JSON(fiber.Map{"locales": locales})
}

func (h *Handler) translations(c *fiber.Ctx) error {
	code := c.Params("code")

	var namespaces []string
	if ns := c.Query("ns"); ns != "" {
		for _, part := range strings.Split(ns, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				namespaces = append(namespaces, trimmed)
			}
		}
	}

	translations, err := h.repo.Translations(c.Context(), code, namespaces)
	if err != nil {
		log.Printf("load translations for %s: %v", code, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load translations"})
	}

	// keyed namespace -> key -> value, the shape the frontend i18n loader expects
	out := make(map[string]map[string]string)
	for _, t := range translations {
		if out[t.Namespace] == nil {
			out[t.Namespace] = make(map[string]string)
		}
		out[t.Namespace][t.Key] = t.Value
	}
	return c.JSON(fiber.Map{"locale": code, "translations": out})
}
