package cart

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestFindByOwner_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SELECT id, customer_id, auth_user_id").
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByOwner(context.Background(), "u1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLines_ScansVariantJoin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	cols := []string{
		"id", "quantity",
		"pv_id", "stripe_product_id", "stripe_price_id",
		"name", "sku", "price", "discount_price", "inventory_quantity",
		"is_shipping_required", "is_active", "is_visible",
		"url", "alt_text",
	}
	rows := sqlmock.NewRows(cols).
		AddRow("l1", 2, "v1", "prod_1", "price_1", "Mug", "MUG-1", 500, nil, 10, true, true, true, "/img/mug.jpg", "a mug").
		AddRow("l2", 1, "v2", "prod_2", "price_2", "Cap", "CAP-1", 1000, 800, 5, true, true, true, "", "")

	mock.ExpectQuery("FROM cart_items ci").
		WithArgs("c1", MaxCheckoutLines).
		WillReturnRows(rows)

	lines, err := repo.Lines(context.Background(), "c1", MaxCheckoutLines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Variant.DiscountPrice != nil {
		t.Errorf("line 1 should have no discount price")
	}
	if lines[1].Variant.DiscountPrice == nil || *lines[1].Variant.DiscountPrice != 800 {
		t.Errorf("line 2 discount price not scanned: %+v", lines[1].Variant.DiscountPrice)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTouch_UpdatesTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE carts SET updated_at").
		WithArgs(at, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Touch(context.Background(), "u1", at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
