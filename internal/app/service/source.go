package service

import (
	"net/url"
	"strings"

	"github.com/sifan077/PowerStats/internal/app/model"
)

// SourceInfo is the classification of where a session came from.
type SourceInfo struct {
	Type     string
	Name     string
	Campaign string
	Medium   string
	Term     string
}

var (
	searchReferrers = []string{"google", "bing", "yahoo", "duckduckgo", "baidu", "yandex"}
	socialReferrers = []string{"facebook", "linkedin", "twitter", "instagram", "tiktok", "reddit", "youtube"}
	paidMediums     = map[string]bool{"cpc": true, "ppc": true, "paid": true, "paidsearch": true, "paid_social": true, "display": true}
)

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// ClassifySource derives the traffic source from the landing URL's utm_*
// parameters and the referrer. Order of the checks matters.
func ClassifySource(pageURL, referrer string) SourceInfo {
	var info SourceInfo
	if u, err := url.Parse(pageURL); err == nil {
		q := u.Query()
		info.Name = q.Get("utm_source")
		info.Campaign = q.Get("utm_campaign")
		info.Medium = strings.ToLower(q.Get("utm_medium"))
		info.Term = q.Get("utm_term")
	}

	refHost := hostOf(referrer)
	// Navigation within the same site is not a new source.
	if refHost != "" && refHost == hostOf(pageURL) {
		refHost = ""
	}

	if info.Name == "" {
		info.Name = refHost
	}
	hasCampaign := info.Campaign != ""
	origin := strings.ToLower(info.Name)

	switch {
	case !hasCampaign && info.Name == "" && info.Medium == "":
		info.Type = model.SourceDirect
		info.Name = "direct"
	case paidMediums[info.Medium]:
		info.Type = model.SourcePaid
	case hasCampaign && (containsAny(origin, searchReferrers) || containsAny(origin, socialReferrers)):
		info.Type = model.SourcePaid
	case containsAny(origin, searchReferrers) || info.Medium == "organic":
		info.Type = model.SourceOrganic
	case containsAny(origin, socialReferrers) || info.Medium == "social":
		info.Type = model.SourceSocial
	default:
		info.Type = model.SourceReferral
	}
	return info
}
