package product

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/products", h.list)
	app.Get("/api/v1/products/:slug", h.get)
}

func (h *Handler) list(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	products, err := h.repo.ListVisible(c.Context(), limit, offset)
	if err != nil {
		log.Printf("list products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load products"})
	}
	if products == nil {
		products = []Product{}
	}
	return c.JSON(fiber.Map{"products": products})
}

func (h *Handler) get(c *fiber.Ctx) error {
	p, err := h.repo.FindBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
		}
		log.Printf("get product %s: %v", c.Params("slug"), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load product"})
	}
	return c.JSON(p)
}
