package repository

import (
	"strings"

	"github.com/sifan077/PowerStats/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter is the fixed set of predicates an aggregate query may apply.
// Empty string fields are not applied.
type Filter struct {
	Window      model.Window
	URLContains string
	CountryCode string
	City        string
}

// RegionOnly drops the URL predicate, for tables without a url column.
func (f Filter) RegionOnly() Filter {
	f.URLContains = ""
	return f
}

// Scopes returns the gorm scopes implementing f.
func (f Filter) Scopes() []func(*gorm.DB) *gorm.DB {
	return []func(*gorm.DB) *gorm.DB{
		InWindow(f.Window),
		URLContains(f.URLContains),
		CountryIs(f.CountryCode),
		CityIs(f.City),
	}
}

var timestampColumn = clause.Column{Name: "timestamp"}

// InWindow restricts rows to [w.Start, w.End).
func InWindow(w model.Window) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where(clause.Gte{Column: timestampColumn, Value: w.Start}).
			Where(clause.Lt{Column: timestampColumn, Value: w.End})
	}
}

// URLContains matches url as a literal substring.
func URLContains(substr string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if substr == "" {
			return db
		}
		return db.Where(clause.Like{
			Column: clause.Column{Name: "url"},
			Value:  "%" + EscapeLike(substr) + "%",
		})
	}
}

// CountryIs matches the country code exactly.
func CountryIs(code string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if code == "" {
			return db
		}
		return db.Where(clause.Eq{Column: clause.Column{Name: "country_code"}, Value: strings.ToUpper(code)})
	}
}

// CityIs matches the city exactly.
func CityIs(city string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if city == "" {
			return db
		}
		return db.Where(clause.Eq{Column: clause.Column{Name: "city"}, Value: city})
	}
}

// PageURLIs matches page_url exactly.
func PageURLIs(pageURL string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: clause.Column{Name: "page_url"}, Value: pageURL})
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so s matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
