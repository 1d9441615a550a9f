// Package feed retrieves the company update feed from the scraping proxy.
//
// The proxy exposes the feed under several endpoint/parameter variants
// that differ between plan tiers and API revisions. Fetching walks an
// ordered list of shape descriptors: an unpaginated discovery call seeds
// the result from the first shape that yields updates, then a paginated
// pass walks pages of the first shape that serves any.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"socialpulse/internal/proxy"
)

// Shape describes one endpoint/parameter variant of the feed endpoint.
// New variants are appended to DefaultShapes without touching the fetch
// control flow.
type Shape struct {
	Name  string
	Path  string
	Query func(companyID string) url.Values
}

// DefaultShapes returns the known feed endpoint variants in priority order.
func DefaultShapes() []Shape {
	return []Shape{
		{
			Name: "type+linkId",
			Path: "/linkedin",
			Query: func(id string) url.Values {
				return url.Values{"type": {"company"}, "linkId": {id}}
			},
		},
		{
			Name: "type+username",
			Path: "/linkedin",
			Query: func(id string) url.Values {
				return url.Values{"type": {"company"}, "username": {id}}
			},
		},
		{
			Name: "path+linkId",
			Path: "/linkedin/company",
			Query: func(id string) url.Values {
				return url.Values{"linkId": {id}}
			},
		},
		{
			Name: "path+username",
			Path: "/linkedin/company",
			Query: func(id string) url.Values {
				return url.Values{"username": {id}}
			},
		},
	}
}

// Fetcher retrieves the full reachable feed for a company.
type Fetcher struct {
	client   *proxy.Client
	shapes   []Shape
	pageSize int
	pageCap  int
	pace     time.Duration
	log      *slog.Logger
}

// New creates a Fetcher with the default shapes and paging constants.
func New(client *proxy.Client, log *slog.Logger) *Fetcher {
	return &Fetcher{
		client:   client,
		shapes:   DefaultShapes(),
		pageSize: 20,
		pageCap:  10,
		pace:     1 * time.Second,
		log:      log,
	}
}

// SetPageSize overrides the records-per-page constant.
func (f *Fetcher) SetPageSize(n int) {
	if n > 0 {
		f.pageSize = n
	}
}

// SetPageCap overrides the per-shape page ceiling.
func (f *Fetcher) SetPageCap(n int) {
	if n > 0 {
		f.pageCap = n
	}
}

// SetPacing overrides the delay between consecutive page requests.
func (f *Fetcher) SetPacing(d time.Duration) {
	f.pace = d
}

// FetchAll returns every raw feed update reachable for the company, in
// feed order. Failed attempts are logged and contribute nothing; the
// merger downstream resolves duplicates between the discovery and
// pagination results.
func (f *Fetcher) FetchAll(ctx context.Context, companyID string) []map[string]any {
	var all []map[string]any

	for _, sh := range f.shapes {
		if ctx.Err() != nil {
			return all
		}
		updates, err := f.fetchPage(ctx, sh, companyID, 0, 0)
		if err != nil {
			f.log.Error("feed discovery", "shape", sh.Name, "error", err)
			continue
		}
		if len(updates) > 0 {
			f.log.Debug("feed shape discovered", "shape", sh.Name, "updates", len(updates))
			all = append(all, updates...)
			break
		}
	}

	for _, sh := range f.shapes {
		if ctx.Err() != nil {
			return all
		}
		got := f.paginate(ctx, sh, companyID, &all)
		if got > 0 {
			f.log.Info("fetched feed pages", "shape", sh.Name, "updates", got)
			break
		}
	}

	return all
}

// paginate walks one shape's pages until an empty or short page, the page
// ceiling, or a failed request. It returns the number of updates gathered.
func (f *Fetcher) paginate(ctx context.Context, sh Shape, companyID string, all *[]map[string]any) int {
	got := 0
	for page := 0; page < f.pageCap; page++ {
		if page > 0 {
			time.Sleep(f.pace)
		}
		if ctx.Err() != nil {
			return got
		}

		updates, err := f.fetchPage(ctx, sh, companyID, page*f.pageSize, f.pageSize)
		if err != nil {
			f.log.Error("feed page", "shape", sh.Name, "start", page*f.pageSize, "error", err)
			return got
		}
		if len(updates) == 0 {
			return got
		}

		*all = append(*all, updates...)
		got += len(updates)

		// A short page signals the end of the feed.
		if len(updates) < f.pageSize {
			return got
		}
	}
	return got
}

func (f *Fetcher) fetchPage(ctx context.Context, sh Shape, companyID string, start, limit int) ([]map[string]any, error) {
	q := sh.Query(companyID)
	if limit > 0 {
		q.Set("start", strconv.Itoa(start))
		q.Set("limit", strconv.Itoa(limit))
	}

	body, err := f.client.Get(ctx, sh.Path, q)
	if err != nil {
		return nil, err
	}
	return parseUpdates(body)
}

// parseUpdates decodes the proxy's feed payload: an array whose first
// element carries the updates list.
func parseUpdates(body []byte) ([]map[string]any, error) {
	var payload []struct {
		Updates []map[string]any `json:"updates"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}
	return payload[0].Updates, nil
}
