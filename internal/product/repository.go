package product

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("product not found")

type Repository interface {
	// ListVisible returns active, visible products with their visible
	// variants, newest first.
	ListVisible(ctx context.Context, limit, offset int) ([]Product, error)
	// FindBySlug returns one visible product, or ErrNotFound.
	FindBySlug(ctx context.Context, slug string) (Product, error)
}
