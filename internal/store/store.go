// Package store persists the pipeline's tabular state as CSV files.
//
// Four tables live under a data directory: the append-only follower log,
// the post-record table, and the two derived reporting tables. Each is a
// flat delimited file with a stable header row; a missing file is the
// normal first-run state, not an error.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"socialpulse/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

const (
	followersFile = "linkedin_followers.csv"
	postsFile     = "linkedin_posts.csv"
	dailyFile     = "daily_followers.csv"
	summaryFile   = "channel_summary.csv"
)

var (
	followerHeader = []string{"timestamp", "linkedin_url", "followers"}
	postHeader     = []string{
		"text", "article_posted_date", "total_likes", "article_title",
		"article_sub_title", "article_link",
		"impressions", "reactions", "comments", "reposts",
	}
	dailyHeader   = []string{"date", "followers", "new_followers"}
	summaryHeader = []string{"platform", "total_followers", "new_followers", "post_shares", "post_impressions"}
)

// Store reads and writes the CSV tables under a single directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// FollowersPath returns the follower log's file path.
func (s *Store) FollowersPath() string { return filepath.Join(s.dir, followersFile) }

// PostsPath returns the post table's file path.
func (s *Store) PostsPath() string { return filepath.Join(s.dir, postsFile) }

// DailyPath returns the derived daily-follower table's file path.
func (s *Store) DailyPath() string { return filepath.Join(s.dir, dailyFile) }

// SummaryPath returns the derived summary table's file path.
func (s *Store) SummaryPath() string { return filepath.Join(s.dir, summaryFile) }

// AppendFollower appends one observation to the follower log, writing the
// header when the file is new.
func (s *Store) AppendFollower(obs model.FollowerObservation) error {
	f, err := os.OpenFile(s.FollowersPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open follower log: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat follower log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(followerHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	row := []string{
		obs.Timestamp.Format(timeLayout),
		obs.SourceURL,
		strconv.FormatInt(obs.Followers, 10),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write observation: %w", err)
	}
	w.Flush()
	return w.Error()
}

// LoadFollowers reads the full follower log in append (chronological)
// order. A missing file yields an empty log.
func (s *Store) LoadFollowers() ([]model.FollowerObservation, error) {
	rows, header, err := readTable(s.FollowersPath())
	if err != nil || rows == nil {
		return nil, err
	}

	col := columnIndex(header)
	var obs []model.FollowerObservation
	for _, row := range rows {
		ts, err := time.ParseInLocation(timeLayout, field(row, col, "timestamp"), time.Local)
		if err != nil {
			continue
		}
		count, err := strconv.ParseInt(field(row, col, "followers"), 10, 64)
		if err != nil {
			continue
		}
		obs = append(obs, model.FollowerObservation{
			Timestamp: ts,
			SourceURL: field(row, col, "linkedin_url"),
			Followers: count,
		})
	}
	return obs, nil
}

// LoadPosts reads the full post table. A missing file yields an empty set.
func (s *Store) LoadPosts() ([]model.PostRecord, error) {
	rows, header, err := readTable(s.PostsPath())
	if err != nil || rows == nil {
		return nil, err
	}

	col := columnIndex(header)
	posts := make([]model.PostRecord, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, model.PostRecord{
			Text:        field(row, col, "text"),
			PostedDate:  field(row, col, "article_posted_date"),
			TotalLikes:  field(row, col, "total_likes"),
			Title:       field(row, col, "article_title"),
			Subtitle:    field(row, col, "article_sub_title"),
			ArticleLink: field(row, col, "article_link"),
			Impressions: parseMetric(field(row, col, "impressions")),
			Reactions:   parseMetric(field(row, col, "reactions")),
			Comments:    parseMetric(field(row, col, "comments")),
			Reposts:     parseMetric(field(row, col, "reposts")),
		})
	}
	return posts, nil
}

// SavePosts overwrites the post table with the given record set.
func (s *Store) SavePosts(posts []model.PostRecord) error {
	rows := make([][]string, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, []string{
			p.Text, p.PostedDate, p.TotalLikes, p.Title, p.Subtitle, p.ArticleLink,
			formatMetric(p.Impressions), formatMetric(p.Reactions),
			formatMetric(p.Comments), formatMetric(p.Reposts),
		})
	}
	return writeTable(s.PostsPath(), postHeader, rows)
}

// SaveDailyPoints overwrites the derived daily-follower table.
func (s *Store) SaveDailyPoints(points []model.DailyFollowerPoint) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			p.Date,
			strconv.FormatInt(p.Followers, 10),
			strconv.FormatInt(p.NewFollowers, 10),
		})
	}
	return writeTable(s.DailyPath(), dailyHeader, rows)
}

// SaveSummary overwrites the single-row summary table.
func (s *Store) SaveSummary(sum model.ChannelSummary) error {
	row := []string{
		sum.Platform,
		strconv.FormatInt(sum.TotalFollowers, 10),
		strconv.FormatInt(sum.NewFollowers, 10),
		strconv.FormatInt(sum.PostShares, 10),
		strconv.FormatInt(sum.PostImpressions, 10),
	}
	return writeTable(s.SummaryPath(), summaryHeader, [][]string{row})
}

// readTable returns the data rows and header of a CSV file, or (nil, nil)
// when the file does not exist yet.
func readTable(path string) ([][]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[1:], records[0], nil
}

func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// columnIndex maps header names to positions so that column order may
// drift without breaking reloads.
func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	return col
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseMetric(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func formatMetric(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
