package product

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const productColumns = `
        p.id, p.slug, p.name, COALESCE(p.description, ''),
        p.is_active, p.is_visible, p.created_at, p.updated_at`

const variantQuery = `
        SELECT pv.id, pv.sku, pv.name, pv.price, pv.discount_price,
               pv.inventory_quantity, pv.is_active, pv.is_visible,
               COALESCE(pi.url, ''), COALESCE(pi.alt_text, '')
        FROM product_variants pv
        LEFT JOIN product_variant_images pvi
               ON pvi.product_variant_id = pv.id AND pvi.sort_order = 1
        LEFT JOIN product_images pi ON pi.id = pvi.product_image_id
        WHERE pv.product_id = $1 AND pv.is_visible = TRUE
        ORDER BY pv.sort_order, pv.id`

func (r *PostgresRepository) ListVisible(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+productColumns+`
        FROM products p
        WHERE p.is_active = TRUE AND p.is_visible = TRUE
        ORDER BY p.created_at DESC
        LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		variants, err := r.variants(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Variants = variants
	}
	return products, nil
}

func (r *PostgresRepository) FindBySlug(ctx context.Context, slug string) (Product, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+productColumns+`
        FROM products p
        WHERE p.slug = $1 AND p.is_active = TRUE AND p.is_visible = TRUE`,
		slug)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}

	p.Variants, err = r.variants(ctx, p.ID)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) variants(ctx context.Context, productID string) ([]Variant, error) {
	rows, err := r.db.QueryContext(ctx, variantQuery, productID)
	if err != nil {
		return nil, fmt.Errorf("query variants for product %s: %w", productID, err)
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		var discount sql.NullInt64
		err := rows.Scan(&v.ID, &v.SKU, &v.Name, &v.Price, &discount,
			&v.InventoryQuantity, &v.IsActive, &v.IsVisible,
			&v.ImageURL, &v.ImageAltText)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		if discount.Valid {
			v.DiscountPrice = &discount.Int64
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description,
		&p.IsActive, &p.IsVisible, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}
