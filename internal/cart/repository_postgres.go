package cart

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const linesQuery = `
        SELECT ci.id, ci.quantity,
               pv.id, COALESCE(pv.stripe_product_id, ''), COALESCE(pv.stripe_price_id, ''),
               pv.name, pv.sku, pv.price, pv.discount_price, pv.inventory_quantity,
               pv.is_shipping_required, pv.is_active, pv.is_visible,
               COALESCE(pi.url, ''), COALESCE(pi.alt_text, '')
        FROM cart_items ci
        INNER JOIN product_variants pv ON pv.id = ci.product_variant_id
        LEFT JOIN product_variant_images pvi
               ON pv.id = pvi.product_variant_id AND pvi.sort_order = 1
        LEFT JOIN product_images pi ON pvi.product_image_id = pi.id
        WHERE ci.cart_id = $1
        LIMIT $2
    `

func (r *PostgresRepository) FindByOwner(ctx context.Context, authUserID string) (Cart, error) {
	var c Cart
	err := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, auth_user_id, created_at, updated_at FROM carts WHERE auth_user_id = $1`,
		authUserID,
	).Scan(&c.ID, &c.CustomerID, &c.AuthUserID, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return Cart{}, ErrNotFound
	}
	if err != nil {
		return Cart{}, fmt.Errorf("find cart for %s: %w", authUserID, err)
	}
	return c, nil
}

func (r *PostgresRepository) Lines(ctx context.Context, cartID string, limit int) ([]Line, error) {
	rows, err := r.db.QueryContext(ctx, linesQuery, cartID, limit)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var l Line
		var discountPrice sql.NullInt64
		if err := rows.Scan(
			&l.ID, &l.Quantity,
			&l.Variant.ID, &l.Variant.StripeProductID, &l.Variant.StripePriceID,
			&l.Variant.Name, &l.Variant.SKU, &l.Variant.Price, &discountPrice,
			&l.Variant.InventoryQuantity, &l.Variant.IsShippingRequired,
			&l.Variant.IsActive, &l.Variant.IsVisible,
			&l.Variant.ImageURL, &l.Variant.ImageAltText,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		if discountPrice.Valid {
			v := discountPrice.Int64
			l.Variant.DiscountPrice = &v
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *PostgresRepository) ClearLines(ctx context.Context, cartID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart %s: %w", cartID, err)
	}
	return nil
}

func (r *PostgresRepository) Touch(ctx context.Context, authUserID string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE carts SET updated_at = $1 WHERE auth_user_id = $2`, at, authUserID,
	); err != nil {
		return fmt.Errorf("touch cart for %s: %w", authUserID, err)
	}
	return nil
}
