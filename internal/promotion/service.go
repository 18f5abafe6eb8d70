package promotion

import (
	"context"
	"errors"
	"log"
	"time"
)

// Service validates promotions for checkout.
type Service struct {
	repo Repository
	// autoApply selects the best active promotion when no code is given.
	autoApply bool
	now       func() time.Time
}

func NewService(repo Repository, autoApply bool) *Service {
	return &Service{repo: repo, autoApply: autoApply, now: func() time.Time { return time.Now().UTC() }}
}

// Validate resolves and validates the promotion for a checkout attempt.
//
// A supplied code that does not resolve to an active promotion with a
// processor coupon is a hard failure (ErrNotFound). Every other rejection
// is soft: the checkout proceeds without a promotion, because an expired
// or exhausted code should never block a purchase. A nil result with a
// nil error means "no promotion applies".
func (s *Service) Validate(ctx context.Context, code, clientIP string) (*Promotion, error) {
	var promo Promotion
	var err error

	switch {
	case code != "":
		promo, err = s.repo.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if !promo.IsActive || promo.StripeCouponID == "" {
			return nil, ErrNotFound
		}
	case s.autoApply:
		promo, err = s.repo.FindBest(ctx)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}

	if !promo.WithinWindow(s.now()) {
		log.Printf("promotion %q outside validity window, checkout proceeds without it", promo.Code)
		return nil, nil
	}

	if promo.UsageLimit != nil {
		redemptions, err := s.repo.CountRedemptions(ctx, promo.ID)
		if err != nil {
			return nil, err
		}
		if redemptions >= *promo.UsageLimit {
			log.Printf("promotion %q usage limit reached (%d), checkout proceeds without it", promo.Code, redemptions)
			return nil, nil
		}
	}

	if promo.UsageLimitPerCustomer != nil && clientIP != "" {
		used, err := s.repo.CountPaidOrdersByClientIP(ctx, clientIP, promo.Code)
		if err != nil {
			return nil, err
		}
		if used >= *promo.UsageLimitPerCustomer {
			log.Printf("promotion %q per-customer limit reached for ip %s, checkout proceeds without it", promo.Code, clientIP)
			return nil, nil
		}
	}

	return &promo, nil
}
