package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PlacesService looks up a business rating and review count from a Google
// Places compatible provider. Absence of a listing is a normal outcome and
// settles to nil rating; only transport failures are logged as errors.
type PlacesService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewPlacesService(apiKey, baseURL string, logger *zap.Logger) *PlacesService {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	return &PlacesService{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("places"),
	}
}

type placesResponse struct {
	Status     string `json:"status"`
	Candidates []struct {
		Name             string   `json:"name"`
		Rating           *float64 `json:"rating"`
		UserRatingsTotal *int     `json:"user_ratings_total"`
	} `json:"candidates"`
}

// Rate resolves the rating for one business name. A nil rating with nil error
// means the business is unlisted or has no reviews yet.
func (s *PlacesService) Rate(ctx context.Context, businessName string) (rating *float64, reviewCount *int, err error) {
	if s.apiKey == "" {
		return nil, nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("input", businessName+" Romania")
	params.Set("inputtype", "textquery")
	params.Set("fields", "place_id,name,rating,user_ratings_total")
	params.Set("key", s.apiKey)
	requestURL := s.baseURL + "/maps/api/place/findplacefromtext/json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("malformed places payload: %w", err)
	}

	if payload.Status != "OK" || len(payload.Candidates) == 0 {
		// Unlisted business, not a failure.
		return nil, nil, nil
	}

	place := payload.Candidates[0]
	s.logger.Debug("places match",
		zap.String("business", businessName),
		zap.String("match", place.Name))
	return place.Rating, place.UserRatingsTotal, nil
}

// EnrichCandidates fans out one rating lookup per candidate with full
// concurrency and joins before returning; completion order is irrelevant
// because each goroutine writes only its own index. Individual failures
// settle to a nil rating so one bad lookup never poisons the batch.
func (s *PlacesService) EnrichCandidates(ctx context.Context, candidates []Candidate) []Candidate {
	if s.apiKey == "" {
		return candidates
	}

	enriched := make([]Candidate, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		g.Go(func() error {
			rating, reviewCount, err := s.Rate(ctx, businessNameFor(candidate))
			if err != nil {
				s.logger.Warn("rating lookup failed",
					zap.String("url", candidate.URL),
					zap.Error(err))
			}
			candidate.Rating = rating
			candidate.ReviewCount = reviewCount
			enriched[i] = candidate
			return nil
		})
	}
	// Lookups never return errors into the group; Wait only joins.
	_ = g.Wait()
	return enriched
}

// businessNameFor derives the name handed to the places provider: the first
// path-free segment of the displayed source, else the URL hostname.
func businessNameFor(c Candidate) string {
	if c.Source != "" {
		return strings.SplitN(c.Source, "/", 2)[0]
	}
	return Hostname(c.URL)
}
