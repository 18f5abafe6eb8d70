package customer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestUpsertByEmail_ReturnsStoredRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "auth_user_id", "email", "full_name",
		"stripe_customer_id", "accepts_marketing", "created_at", "updated_at",
	}).AddRow(int64(3), "u1", "buyer@example.com", "Ada Buyer", "cus_1", true, now, now)

	mock.ExpectQuery("INSERT INTO customers").
		WithArgs("u1", "buyer@example.com", "Ada Buyer", true, sqlmock.AnyArg()).
		WillReturnRows(rows)

	stored, err := repo.UpsertByEmail(context.Background(), Customer{
		AuthUserID:       "u1",
		Email:            "buyer@example.com",
		FullName:         "Ada Buyer",
		AcceptsMarketing: true,
		CreatedAt:        now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ID != 3 || stored.StripeCustomerID != "cus_1" {
		t.Errorf("unexpected customer: %+v", stored)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFindByAuthUserID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("FROM customers").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByAuthUserID(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
