package tax

import "context"

// Repository loads configured tax rates.
type Repository interface {
	RatesForCountry(ctx context.Context, countryName string) ([]Rate, []string, error)
}

// Service resolves the applicable tax rates for a shipping destination.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolveForDestination returns the rates that apply to the destination:
// every country-level rate plus any rate scoped to the named region. A
// destination with no configured rates at all is an error, never a silent
// zero.
func (s *Service) ResolveForDestination(ctx context.Context, countryName, regionName string) ([]Rate, error) {
	rates, regionNames, err := s.repo.RatesForCountry(ctx, countryName)
	if err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, ErrNotFound
	}

	applicable := make([]Rate, 0, len(rates))
	for i, r := range rates {
		if r.RegionID == nil {
			applicable = append(applicable, r)
			continue
		}
		if regionName != "" && regionNames[i] == regionName {
			applicable = append(applicable, r)
		}
	}
	if len(applicable) == 0 {
		return nil, ErrNotFound
	}
	return applicable, nil
}
