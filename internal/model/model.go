// Package model defines the domain types used across the application.
package model

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// PostRecord is one company feed update in the persisted post store.
// Feed fields come from the feed listing; metric fields stay nil until
// enrichment fills them from the post's detail page.
type PostRecord struct {
	Text        string
	PostedDate  string
	TotalLikes  string
	Title       string
	Subtitle    string
	ArticleLink string

	Impressions *int64
	Reactions   *int64
	Comments    *int64
	Reposts     *int64
}

// NeedsMetrics reports whether any of the four metric fields is still
// missing. Partially enriched records qualify for another backfill pass.
func (p *PostRecord) NeedsMetrics() bool {
	return p.Impressions == nil || p.Reactions == nil || p.Comments == nil || p.Reposts == nil
}

// PostFromUpdate projects a raw scraped feed update down to the known
// feed-field set. Unknown scraped fields are dropped.
func PostFromUpdate(u map[string]any) PostRecord {
	return PostRecord{
		Text:        stringField(u, "text"),
		PostedDate:  stringField(u, "article_posted_date"),
		TotalLikes:  stringField(u, "total_likes"),
		Title:       stringField(u, "article_title"),
		Subtitle:    stringField(u, "article_sub_title"),
		ArticleLink: stringField(u, "article_link"),
	}
}

func stringField(u map[string]any, key string) string {
	switch v := u[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; keep integral counts readable.
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// FollowerObservation is one follower-count sample. Observations are
// append-only; their file order is chronological.
type FollowerObservation struct {
	Timestamp time.Time
	SourceURL string
	Followers int64
}

// DailyFollowerPoint is the derived end-of-day follower figure with the
// signed delta from the previous day.
type DailyFollowerPoint struct {
	Date         string
	Followers    int64
	NewFollowers int64
}

// ChannelSummary is the single derived cross-channel reporting row,
// fully recomputed each run.
type ChannelSummary struct {
	Platform        string
	TotalFollowers  int64
	NewFollowers    int64
	PostShares      int64
	PostImpressions int64
}
