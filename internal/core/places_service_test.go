package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRateReturnsRating(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Atelier Local Romania", r.URL.Query().Get("input"))
		fmt.Fprint(w, `{"status": "OK", "candidates": [{"name": "Atelier Local", "rating": 4.6, "user_ratings_total": 128}]}`)
	}))
	defer server.Close()

	svc := NewPlacesService("test-key", server.URL, zap.NewNop())
	rating, reviews, err := svc.Rate(context.Background(), "Atelier Local")

	require.NoError(t, err)
	require.NotNil(t, rating)
	require.NotNil(t, reviews)
	assert.Equal(t, 4.6, *rating)
	assert.Equal(t, 128, *reviews)
}

func TestRateUnlistedBusinessIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "candidates": []}`)
	}))
	defer server.Close()

	svc := NewPlacesService("test-key", server.URL, zap.NewNop())
	rating, reviews, err := svc.Rate(context.Background(), "Firma Noua")

	require.NoError(t, err)
	assert.Nil(t, rating)
	assert.Nil(t, reviews)
}

func TestEnrichCandidatesFansOut(t *testing.T) {
	var requests int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		fmt.Fprint(w, `{"status": "OK", "candidates": [{"name": "X", "rating": 4.0, "user_ratings_total": 10}]}`)
	}))
	defer server.Close()

	svc := NewPlacesService("test-key", server.URL, zap.NewNop())
	candidates := []Candidate{
		{URL: "https://unu.ro/p", Source: "unu.ro/produse"},
		{URL: "https://doi.ro/p"},
		{URL: "https://trei.ro/p"},
	}

	enriched := svc.EnrichCandidates(context.Background(), candidates)

	require.Len(t, enriched, 3)
	assert.EqualValues(t, 3, atomic.LoadInt64(&requests))
	for i, c := range enriched {
		// Order is preserved even though completion order is not guaranteed.
		assert.Equal(t, candidates[i].URL, c.URL)
		require.NotNil(t, c.Rating)
		assert.Equal(t, 4.0, *c.Rating)
	}
}

func TestEnrichCandidatesFailureSettlesToNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `not json`)
	}))
	defer server.Close()

	svc := NewPlacesService("test-key", server.URL, zap.NewNop())
	enriched := svc.EnrichCandidates(context.Background(), []Candidate{{URL: "https://unu.ro/p"}})

	require.Len(t, enriched, 1)
	assert.Nil(t, enriched[0].Rating)
	assert.Nil(t, enriched[0].ReviewCount)
}

func TestBusinessNameFor(t *testing.T) {
	assert.Equal(t, "magazin.ro", businessNameFor(Candidate{Source: "magazin.ro/produse/tricouri"}))
	assert.Equal(t, "exemplu.ro", businessNameFor(Candidate{URL: "https://www.exemplu.ro/p/1"}))
}
