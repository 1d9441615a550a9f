package metrics

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func loadFixture(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return data
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		page string
		want map[string]int64
	}{
		{
			name: "rendered text counts",
			page: `<html><body>
				<span>500 impressions</span>
				<span>20 reactions</span>
				<span>4 comments</span>
				<span>2 reposts</span>
			</body></html>`,
			want: map[string]int64{Impressions: 500, Reactions: 20, Comments: 4, Reposts: 2},
		},
		{
			name: "views and likes synonyms",
			page: `<html><body><p>1.2K views and 88 likes, 1 comment, 3 shares</p></body></html>`,
			want: map[string]int64{Impressions: 1200, Reactions: 88, Comments: 1, Reposts: 3},
		},
		{
			name: "magnitude suffixes",
			page: `<html><body><p>3M impressions 846K reactions</p></body></html>`,
			want: map[string]int64{Impressions: 3000000, Reactions: 846000},
		},
		{
			name: "embedded data fills what text missed",
			page: `<html><body><p>7 comments</p>
				<script>{"impressions": "900", "likes": "15", "shares": 2}</script>
			</body></html>`,
			want: map[string]int64{Impressions: 900, Reactions: 15, Comments: 7, Reposts: 2},
		},
		{
			name: "embedded synonym preference",
			page: `<html><body><script>{"views": "10", "impressions": "20", "replies": "1", "comments": "6"}</script></body></html>`,
			want: map[string]int64{Impressions: 20, Comments: 6},
		},
		{
			name: "rendered text beats embedded data",
			page: `<html><body><p>100 impressions</p><script>{"impressions": "999"}</script></body></html>`,
			want: map[string]int64{Impressions: 100},
		},
		{
			name: "no counts anywhere",
			page: `<html><body><p>nothing to see here</p></body></html>`,
			want: map[string]int64{},
		},
		{
			name: "empty content",
			page: "",
			want: map[string]int64{},
		},
		{
			name: "not markup at all",
			page: "plain text without numbers",
			want: map[string]int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract([]byte(tt.page))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractFixture(t *testing.T) {
	page := loadFixture(t, "../../testdata/post_page.html")

	want := map[string]int64{
		Impressions: 1200,
		Reactions:   88,
		Comments:    5,
		Reposts:     3, // from the embedded "shares" pair
	}
	got := Extract(page)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestFollowers(t *testing.T) {
	tests := []struct {
		name   string
		page   string
		want   int64
		wantOK bool
	}{
		{
			name:   "plain count",
			page:   `<html><body><span>4,120 followers</span></body></html>`,
			want:   4120,
			wantOK: true,
		},
		{
			name:   "magnitude suffix",
			page:   `<html><body><div>12K followers</div></body></html>`,
			want:   12000,
			wantOK: true,
		},
		{
			name:   "no follower count",
			page:   `<html><body><p>About us</p></body></html>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Followers([]byte(tt.page))
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Fatalf("ok mismatch (-want +got):\n%s", diff)
			}
			if tt.wantOK {
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("count mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestFollowersFixture(t *testing.T) {
	page := loadFixture(t, "../../testdata/company_page.html")
	got, ok := Followers(page)
	if !ok {
		t.Fatal("expected follower count in fixture")
	}
	if diff := cmp.Diff(int64(52345), got); diff != "" {
		t.Errorf("count mismatch (-want +got):\n%s", diff)
	}
}
