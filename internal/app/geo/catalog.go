// Package geo holds the static country/city catalog and the region resolvers
// that attach a location descriptor to every ingested row.
package geo

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// City is a catalog city with its reference coordinates.
type City struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"lat"`
	Longitude float64 `yaml:"lon"`
}

// Country is a catalog country. Cities keep their catalog order.
type Country struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name"`
	Cities []City `yaml:"cities"`
}

// City looks up a city by name, ignoring case.
func (c Country) City(name string) (City, bool) {
	for _, city := range c.Cities {
		if strings.EqualFold(city.Name, name) {
			return city, true
		}
	}
	return City{}, false
}

// Catalog is immutable after Parse returns.
type Catalog struct {
	countries []Country
	byCode    map[string]int
}

// AvailableRegions is the wire form of the catalog.
type AvailableRegions struct {
	Countries []CountryEntry `json:"countries"`
}

// CountryEntry lists a country with its city names.
type CountryEntry struct {
	Code   string   `json:"code"`
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog, parsed on first use.
func Default() *Catalog {
	defaultOnce.Do(func() {
		cat, err := Parse(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("geo: embedded catalog: %v", err))
		}
		defaultCatalog = cat
	})
	return defaultCatalog
}

// Parse builds a catalog from YAML. Country codes are normalised to upper case.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Countries []Country `yaml:"countries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("geo: decode catalog: %w", err)
	}

	cat := &Catalog{byCode: make(map[string]int, len(doc.Countries))}
	for _, c := range doc.Countries {
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		if len(c.Code) != 2 {
			return nil, fmt.Errorf("geo: invalid country code %q", c.Code)
		}
		if len(c.Cities) == 0 {
			return nil, fmt.Errorf("geo: country %s has no cities", c.Code)
		}
		if _, dup := cat.byCode[c.Code]; dup {
			return nil, fmt.Errorf("geo: duplicate country %s", c.Code)
		}
		cat.byCode[c.Code] = len(cat.countries)
		cat.countries = append(cat.countries, c)
	}
	if len(cat.countries) == 0 {
		return nil, fmt.Errorf("geo: catalog is empty")
	}
	return cat, nil
}

// Lookup finds a country by ISO-2 code.
func (c *Catalog) Lookup(code string) (Country, bool) {
	i, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Country{}, false
	}
	return c.countries[i], true
}

// Regions returns the catalog in its wire form.
func (c *Catalog) Regions() AvailableRegions {
	out := AvailableRegions{Countries: make([]CountryEntry, 0, len(c.countries))}
	for _, country := range c.countries {
		names := make([]string, len(country.Cities))
		for i, city := range country.Cities {
			names[i] = city.Name
		}
		out.Countries = append(out.Countries, CountryEntry{
			Code:   country.Code,
			Name:   country.Name,
			Cities: names,
		})
	}
	return out
}
