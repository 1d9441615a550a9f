package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"socialpulse/internal/config"
	"socialpulse/internal/model"
	"socialpulse/internal/store"
)

const (
	companyURL = "https://www.linkedin.com/company/acme"

	linkA = "https://example.com/posts/a"
	linkB = "https://example.com/posts/b"
	linkC = "https://example.com/posts/c"
	linkD = "https://example.com/posts/d"
)

// channelTransport simulates the proxy for a whole collection run: the
// company page, the feed endpoint, and per-post detail pages. The run
// field selects which feed snapshot and follower count it serves.
type channelTransport struct {
	t   *testing.T
	run int

	feeds     map[int][]map[string]any
	followers map[int]string
	pages     map[string]string

	scrapeCalls map[string]int
}

func (c *channelTransport) Do(req *http.Request) (*http.Response, error) {
	q := req.URL.Query()
	switch {
	case req.URL.Path == "/scrape":
		target := q.Get("url")
		c.scrapeCalls[target]++
		if target == companyURL {
			return htmlResponse(fmt.Sprintf("<html><body><span>%s followers</span></body></html>", c.followers[c.run])), nil
		}
		page, ok := c.pages[target]
		if !ok {
			c.t.Errorf("unexpected detail page fetch: %s", target)
			return htmlResponse("<html></html>"), nil
		}
		return htmlResponse(page), nil

	case req.URL.Path == "/linkedin" && q.Get("linkId") != "":
		body, err := json.Marshal([]map[string]any{{"updates": c.feeds[c.run]}})
		if err != nil {
			c.t.Fatalf("marshal feed: %v", err)
		}
		return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(body))}, nil

	default:
		return &http.Response{StatusCode: 404, Body: io.NopCloser(bytes.NewBufferString("not found"))}, nil
	}
}

func htmlResponse(page string) *http.Response {
	return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewBufferString(page))}
}

func metricPage(impressions, reactions, comments, reposts int) string {
	return fmt.Sprintf("<html><body><p>%d impressions, %d reactions, %d comments, %d reposts</p></body></html>",
		impressions, reactions, comments, reposts)
}

func update(text, link string) map[string]any {
	return map[string]any{"text": text, "article_link": link}
}

func testConfig(dataDir string) *config.Config {
	return &config.Config{
		ProxyAPIKey:   "k",
		ProxyBaseURL:  "https://proxy.test",
		CompanyLinkID: "acme",
		CompanyURL:    companyURL,
		Platform:      "linkedin",
		DataDir:       dataDir,
		FeedPageSize:  20,
		FeedPageCap:   10,
		EnrichBatch:   20,
	}
}

func TestRunAcrossTwoCollections(t *testing.T) {
	dataDir := t.TempDir()
	transport := &channelTransport{
		t:   t,
		run: 1,
		feeds: map[int][]map[string]any{
			1: {update("post a", linkA), update("post b", linkB), update("post c", linkC)},
			2: {update("post b refreshed", linkB), update("post d", linkD)},
		},
		followers: map[int]string{1: "52,345", 2: "52,400"},
		pages: map[string]string{
			linkA: metricPage(100, 10, 1, 1),
			linkB: metricPage(200, 20, 2, 2),
			linkC: metricPage(300, 30, 3, 3),
			linkD: metricPage(400, 40, 4, 4),
		},
		scrapeCalls: map[string]int{},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	days := map[int]time.Time{
		1: time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local),
		2: time.Date(2025, 3, 2, 9, 0, 0, 0, time.Local),
	}

	for run := 1; run <= 2; run++ {
		transport.run = run
		p := New(testConfig(dataDir), transport, log)
		p.now = func() time.Time { return days[run] }
		p.Run(context.Background())
	}

	s := store.New(dataDir)
	posts, err := s.LoadPosts()
	if err != nil {
		t.Fatalf("load posts: %v", err)
	}

	// Keep-last dedupe: b was refetched in run 2, so it follows c.
	var links []string
	for _, p := range posts {
		links = append(links, p.ArticleLink)
	}
	if diff := cmp.Diff([]string{linkA, linkC, linkB, linkD}, links); diff != "" {
		t.Fatalf("post set mismatch (-want +got):\n%s", diff)
	}

	// b's feed fields refresh but its run 1 metrics survive the merge,
	// so it is never refetched.
	b := posts[2]
	if diff := cmp.Diff("post b refreshed", b.Text); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
	if b.Impressions == nil || *b.Impressions != 200 {
		t.Errorf("expected b's impressions=200 retained, got %v", b.Impressions)
	}
	for _, link := range []string{linkA, linkB, linkC, linkD} {
		if diff := cmp.Diff(1, transport.scrapeCalls[link]); diff != "" {
			t.Errorf("detail fetch count for %s mismatch (-want +got):\n%s", link, diff)
		}
	}

	// Every record ends the second run fully enriched.
	for i, p := range posts {
		if p.NeedsMetrics() {
			t.Errorf("record %d (%s) still missing metrics", i, p.ArticleLink)
		}
	}

	obs, err := s.LoadFollowers()
	if err != nil {
		t.Fatalf("load followers: %v", err)
	}
	wantObs := []model.FollowerObservation{
		{Timestamp: days[1], SourceURL: companyURL, Followers: 52345},
		{Timestamp: days[2], SourceURL: companyURL, Followers: 52400},
	}
	if diff := cmp.Diff(wantObs, obs); diff != "" {
		t.Errorf("follower log mismatch (-want +got):\n%s", diff)
	}

	daily, err := os.ReadFile(s.DailyPath())
	if err != nil {
		t.Fatalf("read daily table: %v", err)
	}
	wantDaily := "date,followers,new_followers\n2025-03-01,52345,0\n2025-03-02,52400,55"
	if diff := cmp.Diff(wantDaily, strings.TrimSpace(string(daily))); diff != "" {
		t.Errorf("daily table mismatch (-want +got):\n%s", diff)
	}

	summary, err := os.ReadFile(s.SummaryPath())
	if err != nil {
		t.Fatalf("read summary table: %v", err)
	}
	wantSummary := "platform,total_followers,new_followers,post_shares,post_impressions\nlinkedin,52400,55,10,1000"
	if diff := cmp.Diff(wantSummary, strings.TrimSpace(string(summary))); diff != "" {
		t.Errorf("summary table mismatch (-want +got):\n%s", diff)
	}
}

func TestRunWithoutStorageEndpoint(t *testing.T) {
	// StorageURL empty: the pipeline must run with uploads disabled.
	cfg := testConfig(t.TempDir())
	transport := &channelTransport{
		t:           t,
		run:         1,
		feeds:       map[int][]map[string]any{1: nil},
		followers:   map[int]string{1: "100"},
		pages:       map[string]string{},
		scrapeCalls: map[string]int{},
	}

	p := New(cfg, transport, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if p.uploader != nil {
		t.Fatal("expected uploads disabled without a storage endpoint")
	}
	p.Run(context.Background())

	obs, err := store.New(cfg.DataDir).LoadFollowers()
	if err != nil {
		t.Fatalf("load followers: %v", err)
	}
	if len(obs) != 1 || obs[0].Followers != 100 {
		t.Errorf("expected one observation of 100 followers, got %+v", obs)
	}
}

func TestRunCompanyPageWithoutFollowerCount(t *testing.T) {
	cfg := testConfig(t.TempDir())
	transport := &channelTransport{
		t:           t,
		run:         1,
		feeds:       map[int][]map[string]any{1: nil},
		followers:   map[int]string{1: ""},
		pages:       map[string]string{},
		scrapeCalls: map[string]int{},
	}

	p := New(cfg, transport, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.Run(context.Background())

	obs, err := store.New(cfg.DataDir).LoadFollowers()
	if err != nil {
		t.Fatalf("load followers: %v", err)
	}
	if len(obs) != 0 {
		t.Errorf("expected no observations, got %+v", obs)
	}
}
