// Package crossref visits every distinct reviewer found in a review set,
// walks their public feed pages, and merges the positively-recommended
// entries into one cross-referenced dataset. One reviewer failing never
// aborts the batch; failures are captured as data on that reviewer's
// aggregate.
package crossref

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/steamlens/steamlens/internal/apperror"
	"github.com/steamlens/steamlens/internal/scrape"
	"github.com/steamlens/steamlens/internal/steam"
)

// Fetcher retrieves one external page. Satisfied by *gateway.Gateway.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (content string, fromCache bool, err error)
}

// ProgressFunc is invoked once per completed reviewer, successful or not.
type ProgressFunc func(processed, total int)

// Aggregate is the merged result for one reviewer. Its review map is keyed
// by app id, so multiple appearances of the same title collapse to one.
type Aggregate struct {
	SteamID     string                        `json:"steamid"`
	PersonaName string                        `json:"personaname"`
	ProfileURL  string                        `json:"profileurl"`
	Avatar      string                        `json:"avatar"`
	Reviews     map[string]scrape.ReviewEntry `json:"reviews"`
	TotalPages  int                           `json:"total_pages,omitempty"`
	Err         string                        `json:"error,omitempty"`
}

// Result maps reviewer id to that reviewer's aggregate. Immutable once
// Aggregate returns.
type Result struct {
	Reviewers map[string]*Aggregate `json:"reviewers"`
}

type Engine struct {
	fetcher       Fetcher
	maxConcurrent int
}

// NewEngine creates an Engine. maxConcurrent bounds how many reviewers are
// processed at once; values below 1 default to 5.
func NewEngine(fetcher Fetcher, maxConcurrent int) *Engine {
	if maxConcurrent < 1 {
		maxConcurrent = 5
	}
	return &Engine{fetcher: fetcher, maxConcurrent: maxConcurrent}
}

// Aggregate derives the unique positively-recommending reviewers from the
// seed reviews and walks up to maxPages of each reviewer's feed. Entries
// for excludeAppID are skipped when it is non-empty. onProgress may be nil.
func (e *Engine) Aggregate(ctx context.Context, reviews []steam.EnrichedReview, maxPages int, onProgress ProgressFunc, excludeAppID string) (*Result, error) {
	if maxPages < 1 {
		return nil, apperror.Validation("maxPages must be at least 1")
	}

	seeds := uniquePositiveAuthors(reviews)
	result := &Result{Reviewers: make(map[string]*Aggregate, len(seeds))}
	for _, a := range seeds {
		result.Reviewers[a.SteamID] = &Aggregate{
			SteamID:     a.SteamID,
			PersonaName: a.PersonaName,
			ProfileURL:  a.ProfileURL,
			Avatar:      a.Avatar,
			Reviews:     make(map[string]scrape.ReviewEntry),
		}
	}

	total := len(seeds)
	if total == 0 {
		return result, nil
	}
	log.Printf("Cross-referencing %d reviewers (%d pages each max)", total, maxPages)

	var mu sync.Mutex
	processed := 0
	report := func() {
		mu.Lock()
		processed++
		if onProgress != nil {
			onProgress(processed, total)
		}
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(e.maxConcurrent)
	for _, seed := range seeds {
		agg := result.Reviewers[seed.SteamID]
		g.Go(func() error {
			defer report()
			e.processReviewer(ctx, agg, maxPages, excludeAppID)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // tasks never return errors; failures live on the aggregates

	return result, nil
}

func (e *Engine) processReviewer(ctx context.Context, agg *Aggregate, maxPages int, excludeAppID string) {
	if agg.ProfileURL == "" || agg.ProfileURL == "#" {
		agg.Err = "Profile URL not available"
		return
	}

	// Page 1 reveals the total page count, so it always goes first.
	first, err := e.fetchPage(ctx, agg.ProfileURL, 1)
	if err != nil {
		agg.Err = err.Error()
		log.Printf("Reviewer %s failed: %v", agg.SteamID, err)
		return
	}
	mergeEntries(agg, first.Entries, excludeAppID)

	totalPages := first.Pagination.TotalPages
	limit := min(totalPages, maxPages)
	if limit > 1 {
		pages := make([]*scrape.Page, limit+1)
		inner := new(errgroup.Group)
		for n := 2; n <= limit; n++ {
			n := n
			inner.Go(func() error {
				p, err := e.fetchPage(ctx, agg.ProfileURL, n)
				if err != nil {
					return fmt.Errorf("page %d: %w", n, err)
				}
				pages[n] = p
				return nil
			})
		}
		if err := inner.Wait(); err != nil {
			// Keep whatever page 1 contributed; TotalPages stays unset.
			agg.Err = err.Error()
			log.Printf("Reviewer %s failed: %v", agg.SteamID, err)
			return
		}
		for n := 2; n <= limit; n++ {
			mergeEntries(agg, pages[n].Entries, excludeAppID)
		}
	}

	agg.TotalPages = totalPages
}

func (e *Engine) fetchPage(ctx context.Context, profileURL string, page int) (*scrape.Page, error) {
	feedURL := fmt.Sprintf("%s/recommended/?p=%d", strings.TrimSuffix(profileURL, "/"), page)
	body, _, err := e.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return scrape.ParsePage(body)
}

func mergeEntries(agg *Aggregate, entries []scrape.ReviewEntry, excludeAppID string) {
	for _, entry := range entries {
		if !entry.Recommended || entry.AppID == "" {
			continue
		}
		if excludeAppID != "" && entry.AppID == excludeAppID {
			continue
		}
		agg.Reviews[entry.AppID] = entry
	}
}

// uniquePositiveAuthors keeps the first-seen author stub per id, seeded
// only from positively-recommended reviews.
func uniquePositiveAuthors(reviews []steam.EnrichedReview) []steam.EnrichedAuthor {
	seen := make(map[string]struct{}, len(reviews))
	var authors []steam.EnrichedAuthor
	for _, r := range reviews {
		if !r.VotedUp || r.Author.SteamID == "" {
			continue
		}
		if _, ok := seen[r.Author.SteamID]; ok {
			continue
		}
		seen[r.Author.SteamID] = struct{}{}
		authors = append(authors, r.Author)
	}
	return authors
}
