package tax

import "errors"

// ErrNotFound means no tax rates are configured for the destination
// country. Zero tax is never silently charged for an unconfigured
// destination; callers surface this as an error.
var ErrNotFound = errors.New("tax rates not found")

// Rate is one configured tax rate. RegionID is nil for country-level
// rates; a country-level and a region-level rate may both apply and are
// additive. MilliPercent holds the percentage in thousandths (13.000%
// = 13000), keeping the whole pricing path in integer arithmetic.
type Rate struct {
	ID           int64  `json:"id"`
	CountryID    int64  `json:"countryId"`
	RegionID     *int64 `json:"regionId,omitempty"`
	MilliPercent int64  `json:"milliPercent"`
	Name         string `json:"name,omitempty"`
	IsInclusive  bool   `json:"isInclusive"`
}

// TotalMilliPercent sums the applicable rates.
func TotalMilliPercent(rates []Rate) int64 {
	var total int64
	for _, r := range rates {
		total += r.MilliPercent
	}
	return total
}
