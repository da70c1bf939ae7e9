// Package steam talks to the two upstream JSON APIs: the paginated review
// listing and the batched player-summary lookup, and merges the two into
// enriched review pages.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/steamlens/steamlens/internal/apperror"
	"github.com/steamlens/steamlens/internal/cache"
)

const (
	maxIDsPerBatch = 100
	maxPerPage     = 100

	placeholderName = "Unknown"
	placeholderURL  = "#"
)

// Options select a page of the review listing. Zero values are defaulted.
type Options struct {
	Filter       string
	Language     string
	DayRange     int
	ReviewType   string
	PurchaseType string
	NumPerPage   int
	Cursor       string
}

func (o Options) withDefaults() Options {
	if o.Filter == "" {
		o.Filter = "recent"
	}
	if o.Language == "" {
		o.Language = "all"
	}
	if o.ReviewType == "" {
		o.ReviewType = "all"
	}
	if o.PurchaseType == "" {
		o.PurchaseType = "all"
	}
	if o.NumPerPage <= 0 {
		o.NumPerPage = 20
	}
	if o.NumPerPage > maxPerPage {
		o.NumPerPage = maxPerPage
	}
	if o.Cursor == "" {
		o.Cursor = "*"
	}
	return o
}

type Client struct {
	httpClient   *http.Client
	storeAPIURL  string
	playerAPIURL string
	apiKey       string
	reviewCache  *cache.Store
	playerCache  *cache.Store
}

// NewClient creates a client for the store and player APIs. The API key is
// read from the apiKeyEnv environment variable.
func NewClient(storeAPIURL, playerAPIURL, apiKeyEnv string, reviewCache, playerCache *cache.Store) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		storeAPIURL:  strings.TrimSuffix(storeAPIURL, "/"),
		playerAPIURL: strings.TrimSuffix(playerAPIURL, "/"),
		apiKey:       os.Getenv(apiKeyEnv),
		reviewCache:  reviewCache,
		playerCache:  playerCache,
	}
}

// IsConfigured returns whether the player API key is available.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// GetAppReviews fetches one page of the review listing for appID.
func (c *Client) GetAppReviews(ctx context.Context, appID string, opts Options) (*ReviewPage, error) {
	if appID == "" {
		return nil, apperror.Validation("app id is required")
	}
	opts = opts.withDefaults()

	key := reviewCacheKey(appID, opts)
	if v, ok := c.reviewCache.Get(key); ok {
		return v.(*ReviewPage), nil
	}

	params := url.Values{
		"json":          {"1"},
		"filter":        {opts.Filter},
		"language":      {opts.Language},
		"day_range":     {strconv.Itoa(opts.DayRange)},
		"review_type":   {opts.ReviewType},
		"purchase_type": {opts.PurchaseType},
		"num_per_page":  {strconv.Itoa(opts.NumPerPage)},
		"cursor":        {opts.Cursor},
	}
	endpoint := fmt.Sprintf("%s/appreviews/%s?%s", c.storeAPIURL, appID, params.Encode())

	var body struct {
		Success      int            `json:"success"`
		QuerySummary QuerySummary   `json:"query_summary"`
		Reviews      []ReviewRecord `json:"reviews"`
		Cursor       string         `json:"cursor"`
	}
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Success != 1 {
		return nil, apperror.Upstream(0,
			fmt.Sprintf("review listing returned success=%d for app %s", body.Success, appID))
	}

	page := &ReviewPage{
		Summary: body.QuerySummary,
		Reviews: body.Reviews,
		Cursor:  body.Cursor,
	}
	c.reviewCache.Set(key, page)
	return page, nil
}

// GetPlayerProfiles fetches profiles for the given ids in chunks of at
// most 100. Ids with no corresponding profile are simply absent from the
// result.
func (c *Client) GetPlayerProfiles(ctx context.Context, ids []string) ([]PlayerProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if !c.IsConfigured() {
		return nil, apperror.Validation("player API key not configured")
	}

	key := playerCacheKey(ids)
	if v, ok := c.playerCache.Get(key); ok {
		return v.([]PlayerProfile), nil
	}

	var all []PlayerProfile
	for start := 0; start < len(ids); start += maxIDsPerBatch {
		end := min(start+maxIDsPerBatch, len(ids))
		chunk, err := c.fetchPlayerChunk(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, chunk...)
	}

	c.playerCache.Set(key, all)
	return all, nil
}

func (c *Client) fetchPlayerChunk(ctx context.Context, ids []string) ([]PlayerProfile, error) {
	params := url.Values{
		"key":      {c.apiKey},
		"steamids": {strings.Join(ids, ",")},
	}
	endpoint := fmt.Sprintf("%s/ISteamUser/GetPlayerSummaries/v2/?%s", c.playerAPIURL, params.Encode())

	var body struct {
		Response *struct {
			Players []PlayerProfile `json:"players"`
		} `json:"response"`
	}
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Response == nil {
		return nil, apperror.Upstream(0, "player summaries response missing player list")
	}
	return body.Response.Players, nil
}

// GetEnrichedReviewPage fetches one review page and replaces every author
// stub with profile data, substituting placeholders for authors whose
// profile is unknown.
func (c *Client) GetEnrichedReviewPage(ctx context.Context, appID string, opts Options) (*EnrichedReviewPage, error) {
	page, err := c.GetAppReviews(ctx, appID, opts)
	if err != nil {
		return nil, err
	}

	ids := distinctAuthorIDs(page.Reviews)
	byID := make(map[string]PlayerProfile, len(ids))
	if c.IsConfigured() {
		profiles, err := c.GetPlayerProfiles(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, p := range profiles {
			byID[p.SteamID] = p
		}
	} else if len(ids) > 0 {
		log.Println("Player API key not configured, skipping profile enrichment")
	}

	enriched := &EnrichedReviewPage{
		Summary: page.Summary,
		Cursor:  page.Cursor,
		Reviews: make([]EnrichedReview, 0, len(page.Reviews)),
	}
	for _, r := range page.Reviews {
		enriched.Reviews = append(enriched.Reviews, EnrichedReview{
			ReviewRecord: r,
			Author:       enrichAuthor(r.Author.SteamID, byID),
		})
	}
	return enriched, nil
}

func enrichAuthor(id string, byID map[string]PlayerProfile) EnrichedAuthor {
	p, ok := byID[id]
	if !ok {
		return EnrichedAuthor{
			SteamID:     id,
			PersonaName: placeholderName,
			ProfileURL:  placeholderURL,
		}
	}
	return EnrichedAuthor{
		SteamID:      id,
		PersonaName:  p.PersonaName,
		ProfileURL:   p.ProfileURL,
		Avatar:       p.Avatar,
		AvatarMedium: p.AvatarMedium,
		AvatarFull:   p.AvatarFull,
	}
}

func distinctAuthorIDs(reviews []ReviewRecord) []string {
	seen := make(map[string]struct{}, len(reviews))
	var ids []string
	for _, r := range reviews {
		id := r.Author.SteamID
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperror.Validation(fmt.Sprintf("building request: %v", err))
	}
	req.Header.Set("User-Agent", "steamlens/1.0 (review aggregator)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.FromTransport(err, endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperror.Upstream(resp.StatusCode,
			fmt.Sprintf("upstream returned %d for %s", resp.StatusCode, req.URL.Path))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Upstream(0, fmt.Sprintf("decoding response from %s: %v", req.URL.Path, err))
	}
	return nil
}

func reviewCacheKey(appID string, opts Options) string {
	return strings.Join([]string{
		"reviews", appID, opts.Filter, opts.Language, strconv.Itoa(opts.DayRange),
		opts.ReviewType, opts.PurchaseType, strconv.Itoa(opts.NumPerPage), opts.Cursor,
	}, "|")
}

func playerCacheKey(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return "players|" + strings.Join(sorted, ",")
}
