package locale

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ActiveLocales(ctx context.Context) ([]Locale, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, code, name, is_default, is_active
        FROM locales
        WHERE is_active = TRUE
        ORDER BY is_default DESC, code`)
	if err != nil {
		return nil, fmt.Errorf("query locales: %w", err)
	}
	defer rows.Close()

	var locales []Locale
	for rows.Next() {
		var l Locale
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.IsDefault, &l.IsActive); err != nil {
			return nil, fmt.Errorf("scan locale: %w", err)
		}
		locales = append(locales, l)
	}
	return locales, rows.Err()
}

// Translations loads the locale's strings for the requested namespaces.
// An empty namespace list loads everything.
func (r *PostgresRepository) Translations(ctx context.Context, code string, namespaces []string) ([]Translation, error) {
	query := `
        SELECT t.namespace, t.key, t.value
        FROM translations t
        JOIN locales l ON l.id = t.locale_id
        WHERE l.code = $1`
	args := []any{code}
	if len(namespaces) > 0 {
		query += ` AND t.namespace = ANY($2)`
		args = append(args, pq.Array(namespaces))
	}
	query += ` ORDER BY t.namespace, t.key`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query translations for %s: %w", code, err)
	}
	defer rows.Close()

	var translations []Translation
	for rows.Next() {
		var t Translation
		if err := rows.Scan(&t.Namespace, &t.Key, &t.Value); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		translations = append(translations, t)
	}
	return translations, rows.Err()
}
