package checkout

import (
	"errors"
	"log"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aurelle/shop-backend/internal/auth"
	"github.com/aurelle/shop-backend/internal/cart"
	"github.com/aurelle/shop-backend/internal/order"
	"github.com/aurelle/shop-backend/internal/promotion"
	"github.com/aurelle/shop-backend/internal/tax"
	"github.com/aurelle/shop-backend/internal/turnstile"
)

type Handler struct {
	service  *Service
	verifier turnstile.Verifier
}

type addressPayload struct {
	FullName    string `json:"fullName"`
	Company     string `json:"company"`
	Line1       string `json:"addressLine1"`
	Line2       string `json:"addressLine2"`
	City        string `json:"city"`
	RegionName  string `json:"regionName"`
	RegionCode  string `json:"regionCode"`
	Zip         string `json:"zip"`
	CountryName string `json:"countryName"`
	CountryCode string `json:"countryCode"`
}

func (p addressPayload) toAddress() order.Address {
	return order.Address{
		FullName:    p.FullName,
		Company:     p.Company,
		Line1:       p.Line1,
		Line2:       p.Line2,
		City:        p.City,
		RegionName:  p.RegionName,
		RegionCode:  p.RegionCode,
		Zip:         p.Zip,
		CountryName: p.CountryName,
		CountryCode: p.CountryCode,
	}
}

type checkoutRequest struct {
	Email            string `json:"email"`
	PhoneNumber      string `json:"phoneNumber"`
	AcceptsMarketing bool   `json:"acceptsMarketing"`

	ShippingAddress                      addressPayload  `json:"shippingAddress"`
	BillingAddress                       *addressPayload `json:"billingAddress"`
	BillingAddressMatchesShippingAddress bool            `json:"billingAddressMatchesShippingAddress"`
	ShippingMethod                       string          `json:"shippingMethod"`

	PromotionCode  string `json:"promotionCode"`
	Locale         string `json:"locale"`
	TurnstileToken string `json:"turnstileToken"`
}

func NewHandler(service *Service, verifier turnstile.Verifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/checkout", h.checkout)
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	ident, err := auth.FromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	payload := new(checkoutRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	if msg := validateCheckout(payload); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": msg})
	}

	if err := h.verifier.Verify(c.Context(), payload.TurnstileToken, c.IP()); err != nil {
		if errors.Is(err, turnstile.ErrRejected) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Captcha verification failed"})
		}
		log.Printf("turnstile verify: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "message": "Captcha verification unavailable"})
	}

	email := payload.Email
	if email == "" {
		email = ident.Email
	}

	var billingAddr order.Address
	if payload.BillingAddress != nil {
		billingAddr = payload.BillingAddress.toAddress()
	}

	result, err := h.service.Checkout(c.Context(), Request{
		AuthUserID:       ident.SubjectID,
		IsAnonymous:      ident.IsAnonymous,
		Email:            email,
		PhoneNumber:      payload.PhoneNumber,
		AcceptsMarketing: payload.AcceptsMarketing,

		ShippingAddress:                      payload.ShippingAddress.toAddress(),
		BillingAddress:                       billingAddr,
		BillingAddressMatchesShippingAddress: payload.BillingAddressMatchesShippingAddress,
		ShippingMethod:                       payload.ShippingMethod,

		PromotionCode: strings.TrimSpace(payload.PromotionCode),
		Locale:        payload.Locale,
		ClientIP:      c.IP(),
	})
	if err != nil {
		return h.checkoutError(c, err)
	}

	if result.Reused {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Checkout session already in progress",
			"url":     result.URL,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Checkout session created",
		"url":     result.URL,
	})
}

func (h *Handler) checkoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, cart.ErrNotFound), errors.Is(err, cart.ErrEmpty):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Your cart is empty"})
	case errors.Is(err, cart.ErrUnavailable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Some items in your cart are no longer available"})
	case errors.Is(err, promotion.ErrNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid promotion code"})
	case errors.Is(err, tax.ErrNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "We cannot ship to this destination"})
	case errors.Is(err, ErrInvalidPricing):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"success": false, "message": "Order total could not be computed"})
	case errors.Is(err, ErrTooManyPending):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "message": "Too many pending checkouts, please try again later"})
	default:
		log.Printf("checkout failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Checkout failed"})
	}
}

func validateCheckout(payload *checkoutRequest) string {
	if payload.TurnstileToken == "" {
		return "Missing captcha token"
	}
	if msg := validateAddress(payload.ShippingAddress, "Shipping"); msg != "" {
		return msg
	}
	if !payload.BillingAddressMatchesShippingAddress {
		if payload.BillingAddress == nil {
			return "Billing address is required"
		}
		if msg := validateAddress(*payload.BillingAddress, "Billing"); msg != "" {
			return msg
		}
	}
	if payload.ShippingMethod == "" {
		return "Shipping method is required"
	}
	if payload.Email != "" {
		if _, err := mail.ParseAddress(payload.Email); err != nil {
			return "Invalid email address"
		}
	}
	return ""
}

func validateAddress(a addressPayload, label string) string {
	switch {
	case a.FullName == "":
		return label + " full name is required"
	case a.Line1 == "":
		return label + " address line is required"
	case a.City == "":
		return label + " city is required"
	case a.Zip == "":
		return label + " postal code is required"
	case a.CountryName == "":
		return label + " country is required"
	}
	return ""
}
