package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrNotConfigured reports a missing provider credential. Callers must treat
// the accompanying empty result set as a valid, degraded state.
var ErrNotConfigured = errors.New("provider credential not configured")

// purchaseIntentSuffix steers the general web search toward store pages for
// the Romanian market.
const purchaseIntentSuffix = " cumpara online Romania"

// Storefront domains of known small local sellers, used only as a ranking
// preference, never as a filter.
var defaultSmallSellerDomains = []string{
	"tricouriador.ro", "fashionup.ro", "molly.ro", "bonami.ro",
	"vivre.ro", "noriel.ro", "originals.ro", "inart.ro",
}

// SearchService queries a SerpAPI-compatible web search provider and
// normalizes its loosely-typed results into Candidates at the boundary.
type SearchService struct {
	apiKey             string
	baseURL            string
	httpClient         *http.Client
	smallSellerDomains []string
	logger             *zap.Logger
}

func NewSearchService(apiKey, baseURL string, logger *zap.Logger) *SearchService {
	if baseURL == "" {
		baseURL = "https://serpapi.com"
	}
	return &SearchService{
		apiKey:             apiKey,
		baseURL:            strings.TrimSuffix(baseURL, "/"),
		httpClient:         &http.Client{Timeout: 15 * time.Second},
		smallSellerDomains: defaultSmallSellerDomains,
		logger:             logger.Named("search"),
	}
}

// serpResponse covers the slice of the provider payload we consume.
type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title         string `json:"title"`
		Link          string `json:"link"`
		Snippet       string `json:"snippet"`
		DisplayedLink string `json:"displayed_link"`
		Thumbnail     string `json:"thumbnail"`
	} `json:"organic_results"`
}

// Search runs a purchase-intent web search for the query. On a missing
// credential it returns no candidates and ErrNotConfigured; the caller
// proceeds with whatever other context sources succeeded. Self-referential
// search-provider links are discarded and results are de-duplicated by URL.
func (s *SearchService) Search(ctx context.Context, query string) ([]Candidate, error) {
	if s.apiKey == "" {
		s.logger.Info("search skipped: no API key configured")
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query+purchaseIntentSuffix)
	params.Set("location", "Romania")
	params.Set("hl", "ro")
	params.Set("gl", "ro")
	params.Set("num", "15")
	params.Set("api_key", s.apiKey)
	requestURL := s.baseURL + "/search.json?" + params.Encode()

	var payload serpResponse
	if err := s.getJSON(ctx, requestURL, &payload); err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("search provider error: %s", payload.Error)
	}

	seen := make(map[string]bool)
	candidates := make([]Candidate, 0, len(payload.OrganicResults))
	for _, r := range payload.OrganicResults {
		if r.Link == "" || seen[r.Link] {
			continue
		}
		// Links back at the search provider carry no purchasing value.
		if strings.Contains(strings.ToLower(r.Link), "google.") {
			continue
		}
		seen[r.Link] = true

		title := r.Title
		if title == "" {
			title = "Produs"
		}
		candidates = append(candidates, Candidate{
			Title:              title,
			URL:                r.Link,
			Description:        r.Snippet,
			Source:             r.DisplayedLink,
			Thumbnail:          r.Thumbnail,
			IsKnownSmallSeller: hostnameMatchesAny(r.Link, s.smallSellerDomains),
		})
	}

	s.logger.Debug("search completed",
		zap.String("query", query),
		zap.Int("organic_results", len(payload.OrganicResults)),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// getJSON fetches and decodes a provider payload, retrying transient
// failures with exponential backoff.
func (s *SearchService) getJSON(ctx context.Context, requestURL string, out any) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("provider returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("provider returned %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("malformed provider payload: %w", err))
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}
