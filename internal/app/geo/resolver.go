package geo

import (
	"fmt"
	"strings"

	"github.com/sifan077/PowerStats/internal/app/model"
)

// Resolver turns a beacon's location hint into a full region descriptor.
type Resolver interface {
	Resolve(hint model.RegionHint) model.Region
}

// NewResolver returns the standard chain: payload location first, then the
// configured default country.
func NewResolver(cat *Catalog, defaultCountry string) (Resolver, error) {
	fallback, err := NewDefaultResolver(cat, defaultCountry)
	if err != nil {
		return nil, err
	}
	return &PayloadResolver{Catalog: cat, Fallback: fallback}, nil
}

// PayloadResolver trusts a recognised country code from the beacon and defers
// to Fallback for anything else.
type PayloadResolver struct {
	Catalog  *Catalog
	Fallback Resolver
}

func (r *PayloadResolver) Resolve(hint model.RegionHint) model.Region {
	country, ok := r.Catalog.Lookup(hint.CountryCode)
	if !ok {
		return r.Fallback.Resolve(hint)
	}

	city, ok := country.City(strings.TrimSpace(hint.City))
	if !ok {
		city = country.Cities[0]
	}

	region := model.Region{
		CountryCode: country.Code,
		CountryName: country.Name,
		City:        city.Name,
		Latitude:    city.Latitude,
		Longitude:   city.Longitude,
	}
	if hint.Latitude != nil && hint.Longitude != nil {
		region.Latitude = *hint.Latitude
		region.Longitude = *hint.Longitude
	}
	return region
}

// DefaultResolver answers every hint with the same region: the first city of
// the configured country.
type DefaultResolver struct {
	region model.Region
}

// NewDefaultResolver fails when countryCode is not in the catalog.
func NewDefaultResolver(cat *Catalog, countryCode string) (*DefaultResolver, error) {
	country, ok := cat.Lookup(countryCode)
	if !ok {
		return nil, fmt.Errorf("geo: default country %q is not in the catalog", countryCode)
	}
	city := country.Cities[0]
	return &DefaultResolver{region: model.Region{
		CountryCode: country.Code,
		CountryName: country.Name,
		City:        city.Name,
		Latitude:    city.Latitude,
		Longitude:   city.Longitude,
	}}, nil
}

func (r *DefaultResolver) Resolve(model.RegionHint) model.Region {
	return r.region
}
