package core

import (
	"net/url"
	"sort"
	"strings"
)

// Candidate is one web result flowing through the discovery pipeline. It is
// built per query and never persisted. Rating and ReviewCount stay nil when
// the business is unlisted, which is a normal state, not a failure.
type Candidate struct {
	Title              string   `json:"title"`
	URL                string   `json:"url"`
	Description        string   `json:"description"`
	Source             string   `json:"source"`
	Thumbnail          string   `json:"thumbnail,omitempty"`
	Rating             *float64 `json:"googleRating"`
	ReviewCount        *int     `json:"reviewCount"`
	IsKnownSmallSeller bool     `json:"isSME"`
}

// Candidate tiers: well-rated sellers first, unrated ones next (an unknown
// quantity is safer to surface than a demonstrably bad one), poorly rated last.
const (
	TierLowRated  = 0
	TierUnrated   = 1
	TierWellRated = 2
)

// RankingConfig holds the block sets and thresholds as plain data so they can
// be swapped without code changes.
type RankingConfig struct {
	LargeRetailerDomains []string
	MediaSitePatterns    []string
	MinRating            float64
	MaxResults           int
}

// Default block sets for the Romanian market: the big-box retailers the
// assistant must not recommend, and the media/social sites that carry no
// purchasing value.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		LargeRetailerDomains: []string{
			"emag.ro", "altex.ro", "flanco.ro", "dedeman.ro", "ikea.ro",
			"carrefour.ro", "kaufland.ro", "lidl.ro", "auchan.ro", "mediamarkt.ro",
		},
		MediaSitePatterns: []string{
			"zf.ro", "digi24.ro", "stirileprotv.ro", "hotnews.ro", "mediafax.ro",
			"adevarul.ro", "libertatea.ro", "gandul.ro", "ziare.com", "antena3.ro",
			"romaniatv.net", "observatornews.ro", "realitatea.net", "capital.ro",
			"forbes.ro", "businessmagazin.ro", "wall-street.ro", "profit.ro",
			"economica.net", "startupcafe.ro", "g4media.ro", "wikipedia.org",
			"facebook.com", "instagram.com", "youtube.com", "tiktok.com",
			"reddit.com", "blog.", "blogspot.", "wordpress.com", "medium.com",
		},
		MinRating:  3.5,
		MaxResults: 8,
	}
}

// Hostname extracts the lowercase hostname without a leading www. On a URL
// that does not parse, the raw string is matched instead so malformed
// provider links still hit the block sets.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return strings.ToLower(rawURL)
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func hostnameMatchesAny(rawURL string, patterns []string) bool {
	host := Hostname(rawURL)
	for _, p := range patterns {
		if strings.Contains(host, p) {
			return true
		}
	}
	return false
}

// Tier classifies a candidate's rating into the three ordering tiers.
func (c RankingConfig) Tier(candidate Candidate) int {
	switch {
	case candidate.Rating == nil:
		return TierUnrated
	case *candidate.Rating >= c.MinRating:
		return TierWellRated
	default:
		return TierLowRated
	}
}

// Rank filters out blocked domains, orders the survivors by
// (tier desc, rating desc, small-seller flag desc) with a stable sort so ties
// keep provider order, and truncates to MaxResults only after sorting.
// Deterministic for identical inputs.
func (c RankingConfig) Rank(candidates []Candidate) []Candidate {
	filtered := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if hostnameMatchesAny(candidate.URL, c.LargeRetailerDomains) {
			continue
		}
		if hostnameMatchesAny(candidate.URL, c.MediaSitePatterns) {
			continue
		}
		filtered = append(filtered, candidate)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		aTier, bTier := c.Tier(a), c.Tier(b)
		if aTier != bTier {
			return aTier > bTier
		}
		if a.Rating != nil && b.Rating != nil && *a.Rating != *b.Rating {
			return *a.Rating > *b.Rating
		}
		return a.IsKnownSmallSeller && !b.IsKnownSmallSeller
	})

	if len(filtered) > c.MaxResults {
		filtered = filtered[:c.MaxResults]
	}
	return filtered
}
