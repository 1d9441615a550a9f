// Package report derives the daily and summary aggregates from the
// accumulated stores. Both are fully recomputed each run.
package report

import (
	"sort"

	"socialpulse/internal/model"
)

const dateLayout = "2006-01-02"

// DailyPoints groups follower observations by calendar date, keeps the
// last observation of each day, and computes the signed day-over-day
// delta. The first date's delta is zero.
func DailyPoints(obs []model.FollowerObservation) []model.DailyFollowerPoint {
	if len(obs) == 0 {
		return nil
	}

	// Observations are in append (chronological) order, so the last
	// write per date wins.
	latest := make(map[string]int64, len(obs))
	for _, o := range obs {
		latest[o.Timestamp.Format(dateLayout)] = o.Followers
	}

	dates := make([]string, 0, len(latest))
	for d := range latest {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	points := make([]model.DailyFollowerPoint, 0, len(dates))
	for i, d := range dates {
		p := model.DailyFollowerPoint{Date: d, Followers: latest[d]}
		if i > 0 {
			p.NewFollowers = p.Followers - points[i-1].Followers
		}
		points = append(points, p)
	}
	return points
}

// Summary builds the single cross-channel reporting row from the daily
// points and the post store. Absent metric values count as zero.
func Summary(platform string, points []model.DailyFollowerPoint, posts []model.PostRecord) model.ChannelSummary {
	sum := model.ChannelSummary{Platform: platform}

	if n := len(points); n > 0 {
		sum.TotalFollowers = points[n-1].Followers
		sum.NewFollowers = points[n-1].NewFollowers
	}

	for _, p := range posts {
		if p.Impressions != nil {
			sum.PostImpressions += *p.Impressions
		}
		if p.Reposts != nil {
			sum.PostShares += *p.Reposts
		}
	}
	return sum
}
