package tax

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

// ratesQuery loads every rate configured for the country; region-scoped
// rows carry the region name so the service can filter them.
const ratesQuery = `
        SELECT tr.id, tr.country_id, tr.region_id,
               (tr.rate * 1000)::bigint,
               COALESCE(tr.tax_name, ''), COALESCE(tr.is_inclusive, FALSE),
               COALESCE(rg.name, '')
        FROM tax_rates tr
        INNER JOIN countries co ON co.id = tr.country_id
        LEFT JOIN regions rg ON rg.id = tr.region_id
        WHERE co.name = $1
    `

// RatesForCountry returns all rates for the named country together with
// the region name each region-scoped rate belongs to.
func (r *PostgresRepository) RatesForCountry(ctx context.Context, countryName string) ([]Rate, []string, error) {
	rows, err := r.db.QueryContext(ctx, ratesQuery, countryName)
	if err != nil {
		return nil, nil, fmt.Errorf("load tax rates for %s: %w", countryName, err)
	}
	defer rows.Close()

	var rates []Rate
	var regionNames []string
	for rows.Next() {
		var rate Rate
		var regionID sql.NullInt64
		var regionName string
		if err := rows.Scan(
			&rate.ID, &rate.CountryID, &regionID,
			&rate.MilliPercent, &rate.Name, &rate.IsInclusive, &regionName,
		); err != nil {
			return nil, nil, fmt.Errorf("scan tax rate: %w", err)
		}
		if regionID.Valid {
			rate.RegionID = &regionID.Int64
		}
		rates = append(rates, rate)
		regionNames = append(regionNames, regionName)
	}
	return rates, regionNames, rows.Err()
}
