// Package enrich backfills per-post engagement metrics from detail pages.
package enrich

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"socialpulse/internal/metrics"
	"socialpulse/internal/model"
	"socialpulse/internal/numparse"
)

// PageFetcher fetches rendered page content for a target URL.
type PageFetcher interface {
	Scrape(ctx context.Context, target string) ([]byte, error)
}

// Enricher fills missing metrics for a bounded batch of records per run,
// pacing requests to stay inside the proxy's rate limits.
type Enricher struct {
	fetcher PageFetcher
	batch   int
	pace    time.Duration
	log     *slog.Logger
}

// New creates an Enricher with the default batch and pacing constants.
func New(fetcher PageFetcher, log *slog.Logger) *Enricher {
	return &Enricher{
		fetcher: fetcher,
		batch:   20,
		pace:    2 * time.Second,
		log:     log,
	}
}

// SetBatchLimit overrides the per-run record ceiling.
func (e *Enricher) SetBatchLimit(n int) {
	if n > 0 {
		e.batch = n
	}
}

// SetPacing overrides the delay after each processed record.
func (e *Enricher) SetPacing(d time.Duration) {
	e.pace = d
}

// Run backfills metrics for up to the batch limit of records missing any
// metric value, in store order, mutating posts in place. Records without
// a usable detail URL consume a batch slot but no pacing delay. It
// returns the number of records that gained at least one value; callers
// persist only when that count is nonzero.
func (e *Enricher) Run(ctx context.Context, posts []model.PostRecord) int {
	updated := 0
	picked := 0

	for i := range posts {
		if ctx.Err() != nil {
			break
		}
		if picked >= e.batch {
			break
		}
		if !posts[i].NeedsMetrics() {
			continue
		}
		picked++

		link := posts[i].ArticleLink
		if !strings.HasPrefix(link, "http") {
			continue
		}

		found := e.fetchMetrics(ctx, link)
		if _, ok := found[metrics.Reactions]; !ok && posts[i].Reactions == nil {
			// The feed listing's like total stands in when the detail
			// page shows no reaction count.
			if likes, ok := numparse.Parse(posts[i].TotalLikes); ok {
				found[metrics.Reactions] = likes
			}
		}

		if apply(&posts[i], found) {
			updated++
		}
		time.Sleep(e.pace)
	}

	return updated
}

func (e *Enricher) fetchMetrics(ctx context.Context, link string) map[string]int64 {
	page, err := e.fetcher.Scrape(ctx, link)
	if err != nil {
		e.log.Error("fetch post page", "url", link, "error", err)
		return map[string]int64{}
	}
	return metrics.Extract(page)
}

// apply writes every found metric onto the record and reports whether a
// previously missing field was filled.
func apply(p *model.PostRecord, found map[string]int64) bool {
	gained := false
	set := func(dst **int64, key string) {
		v, ok := found[key]
		if !ok {
			return
		}
		if *dst == nil {
			gained = true
		}
		n := v
		*dst = &n
	}
	set(&p.Impressions, metrics.Impressions)
	set(&p.Reactions, metrics.Reactions)
	set(&p.Comments, metrics.Comments)
	set(&p.Reposts, metrics.Reposts)
	return gained
}
