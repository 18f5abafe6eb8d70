package cart

import (
	"context"
	"errors"
)

var (
	// ErrEmpty means the cart exists but holds no lines.
	ErrEmpty = errors.New("cart is empty")
	// ErrUnavailable means at least one line references a variant that is
	// inactive or hidden. The whole checkout is rejected instead of
	// silently dropping lines, so totals always reflect what the buyer saw.
	ErrUnavailable = errors.New("cart has unavailable items")
)

// Service orchestrates cart reads for checkout and the post-purchase
// mutations the webhook reconciler needs.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolveForCheckout loads the owner's cart and its lines with current
// variant pricing. Read-only; validation failures map to the sentinel
// errors above.
func (s *Service) ResolveForCheckout(ctx context.Context, authUserID string) (Cart, []Line, error) {
	c, err := s.repo.FindByOwner(ctx, authUserID)
	if err != nil {
		return Cart{}, nil, err
	}

	lines, err := s.repo.Lines(ctx, c.ID, MaxCheckoutLines)
	if err != nil {
		return Cart{}, nil, err
	}
	if len(lines) == 0 {
		return Cart{}, nil, ErrEmpty
	}
	for _, l := range lines {
		if !l.Variant.IsActive || !l.Variant.IsVisible {
			return Cart{}, nil, ErrUnavailable
		}
	}
	return c, lines, nil
}

// ClearAfterPurchase deletes the cart lines and re-stamps the cart so the
// next checkout derives a fresh idempotency key.
func (s *Service) ClearAfterPurchase(ctx context.Context, c Cart) error {
	if err := s.repo.ClearLines(ctx, c.ID); err != nil {
		return err
	}
	return s.repo.Touch(ctx, c.AuthUserID, nowUTC())
}

// Touch re-stamps the owner's cart without clearing it. Used when a
// checkout session expires: contents stay, the idempotency key must not.
func (s *Service) Touch(ctx context.Context, authUserID string) error {
	return s.repo.Touch(ctx, authUserID, nowUTC())
}

// Repo exposes the repository for collaborators that need direct reads
// (the webhook reconciler re-derives fingerprints from live lines).
func (s *Service) Repo() Repository {
	return s.repo
}
