package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/sifan077/PowerStats/internal/app/model"
	"gorm.io/gorm"
)

func dryRun(db *gorm.DB, scopes ...func(*gorm.DB) *gorm.DB) (string, []interface{}) {
	stmt := db.Session(&gorm.Session{DryRun: true}).
		Model(&model.Pageview{}).
		Scopes(scopes...).
		Find(&[]model.Pageview{}).
		Statement
	return stmt.SQL.String(), stmt.Vars
}

func TestFilter_AllPredicates(t *testing.T) {
	db, _ := newMockDB(t)
	end := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	start := end.Add(-24 * time.Hour)

	sql, vars := dryRun(db, Filter{
		Window:      model.Window{Start: start, End: end},
		URLContains: "/blog",
		CountryCode: "us",
		City:        "New York",
	}.Scopes()...)

	for _, fragment := range []string{`"timestamp" >=`, `"timestamp" <`, `"url" LIKE`, `"country_code" =`, `"city" =`} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("expected %q in %s", fragment, sql)
		}
	}
	if len(vars) != 5 {
		t.Fatalf("expected 5 bound parameters, got %d (%v)", len(vars), vars)
	}
	if vars[2] != "%/blog%" {
		t.Errorf("expected url pattern, got %v", vars[2])
	}
	if vars[3] != "US" {
		t.Errorf("expected upper-cased country code, got %v", vars[3])
	}
}

func TestFilter_EmptyPredicatesAreSkipped(t *testing.T) {
	db, _ := newMockDB(t)
	now := time.Now()

	sql, vars := dryRun(db, Filter{Window: model.Window{Start: now.Add(-time.Hour), End: now}}.Scopes()...)

	if strings.Contains(sql, "LIKE") || strings.Contains(sql, "country_code") || strings.Contains(sql, `"city"`) {
		t.Fatalf("unexpected optional predicate in %s", sql)
	}
	if len(vars) != 2 {
		t.Fatalf("expected only window parameters, got %v", vars)
	}
}

func TestFilter_RegionOnlyDropsURL(t *testing.T) {
	f := Filter{URLContains: "/x", CountryCode: "DE"}.RegionOnly()
	if f.URLContains != "" || f.CountryCode != "DE" {
		t.Fatalf("unexpected filter %+v", f)
	}
}

func TestFilter_InjectionStaysParameterised(t *testing.T) {
	db, _ := newMockDB(t)
	now := time.Now()
	hostile := "x'; DROP TABLE pageviews; --"

	sql, vars := dryRun(db, Filter{Window: model.Window{Start: now, End: now}, City: hostile}.Scopes()...)

	if strings.Contains(sql, "DROP TABLE") {
		t.Fatalf("user input leaked into SQL text: %s", sql)
	}
	if vars[len(vars)-1] != hostile {
		t.Fatalf("expected hostile value as bound parameter, got %v", vars)
	}
}

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"plain":   "plain",
		"50%":     `50\%`,
		"a_b":     `a\_b`,
		`back\sl`: `back\\sl`,
	}
	for in, want := range cases {
		if got := EscapeLike(in); got != want {
			t.Errorf("EscapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}
