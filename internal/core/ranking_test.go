package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(url string, rating *float64, smallSeller bool) Candidate {
	return Candidate{Title: url, URL: url, Rating: rating, IsKnownSmallSeller: smallSeller}
}

func TestRankFiltersBlockedDomains(t *testing.T) {
	cfg := DefaultRankingConfig()
	candidates := []Candidate{
		candidate("https://www.emag.ro/produs/tricou", nil, false),
		candidate("https://atelierlocal.ro/tricou", nil, true),
		candidate("https://blog.exemplu.ro/recenzie", nil, false),
		candidate("https://www.hotnews.ro/stire", nil, false),
		candidate("https://sub.facebook.com/pagina", nil, false),
	}

	ranked := cfg.Rank(candidates)

	require.Len(t, ranked, 1)
	assert.Equal(t, "https://atelierlocal.ro/tricou", ranked[0].URL)
	for _, r := range ranked {
		host := Hostname(r.URL)
		for _, blocked := range append(cfg.LargeRetailerDomains, cfg.MediaSitePatterns...) {
			assert.NotContains(t, host, blocked)
		}
	}
}

func TestRankTierOrdering(t *testing.T) {
	cfg := DefaultRankingConfig()
	candidates := []Candidate{
		candidate("https://slab.ro", ptr(2.1), false),     // tier 0
		candidate("https://necotat.ro", nil, false),       // tier 1
		candidate("https://excelent.ro", ptr(4.8), false), // tier 2
		candidate("https://bun.ro", ptr(3.5), false),      // tier 2, threshold inclusive
	}

	ranked := cfg.Rank(candidates)

	require.Len(t, ranked, 4)
	assert.Equal(t, "https://excelent.ro", ranked[0].URL)
	assert.Equal(t, "https://bun.ro", ranked[1].URL)
	assert.Equal(t, "https://necotat.ro", ranked[2].URL)
	assert.Equal(t, "https://slab.ro", ranked[3].URL)

	// Higher tier always precedes lower tier regardless of raw rating.
	for i := 0; i < len(ranked)-1; i++ {
		assert.GreaterOrEqual(t, cfg.Tier(ranked[i]), cfg.Tier(ranked[i+1]))
	}
}

func TestRankSmallSellerBreaksTies(t *testing.T) {
	cfg := DefaultRankingConfig()
	candidates := []Candidate{
		candidate("https://mare.ro", ptr(4.0), false),
		candidate("https://mic.ro", ptr(4.0), true),
	}

	ranked := cfg.Rank(candidates)

	require.Len(t, ranked, 2)
	assert.Equal(t, "https://mic.ro", ranked[0].URL)
}

func TestRankIsStableAndDeterministic(t *testing.T) {
	cfg := DefaultRankingConfig()
	candidates := []Candidate{
		candidate("https://primul.ro", ptr(4.0), false),
		candidate("https://aldoilea.ro", ptr(4.0), false),
		candidate("https://altreilea.ro", nil, false),
		candidate("https://alpatrulea.ro", nil, false),
	}

	first := cfg.Rank(candidates)
	second := cfg.Rank(candidates)

	assert.Equal(t, first, second)
	// Ties preserve provider order.
	assert.Equal(t, "https://primul.ro", first[0].URL)
	assert.Equal(t, "https://aldoilea.ro", first[1].URL)
	assert.Equal(t, "https://altreilea.ro", first[2].URL)
	assert.Equal(t, "https://alpatrulea.ro", first[3].URL)
}

func TestRankTruncatesAfterSorting(t *testing.T) {
	cfg := DefaultRankingConfig()
	cfg.MaxResults = 2

	// The best candidate arrives last from the provider; truncation before
	// sorting would lose it.
	candidates := []Candidate{
		candidate("https://unu.ro", ptr(1.0), false),
		candidate("https://doi.ro", ptr(1.5), false),
		candidate("https://trei.ro", ptr(5.0), false),
	}

	ranked := cfg.Rank(candidates)

	require.Len(t, ranked, 2)
	assert.Equal(t, "https://trei.ro", ranked[0].URL)
	assert.Equal(t, "https://doi.ro", ranked[1].URL)
}

func TestHostname(t *testing.T) {
	assert.Equal(t, "exemplu.ro", Hostname("https://www.exemplu.ro/cale?x=1"))
	assert.Equal(t, "blog.exemplu.ro", Hostname("http://blog.exemplu.ro"))
	assert.Equal(t, "not a url", Hostname("not a url"))
}
