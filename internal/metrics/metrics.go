// Package metrics extracts engagement counts from scraped pages.
//
// Extraction is a two-phase cascade: visible-text patterns over the
// rendered page first, then key/value pairs embedded in the raw markup
// for whatever the first phase left unfilled. Both phases feed captured
// numeric tokens through numparse.
package metrics

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"socialpulse/internal/numparse"
)

// Metric keys returned by Extract.
const (
	Impressions = "impressions"
	Reactions   = "reactions"
	Comments    = "comments"
	Reposts     = "reposts"
)

const countToken = `(\d[\d,.]*\s*[km]?)`

// Phase 1: ordered patterns against the page's visible text, first match
// per metric wins.
var textPatterns = []struct {
	key      string
	patterns []*regexp.Regexp
}{
	{Impressions, compileCounts("impressions", "views")},
	{Reactions, compileCounts("reactions", "likes")},
	{Comments, compileCounts("comments?")},
	{Reposts, compileCounts("reposts?", "shares?")},
}

// Phase 2: embedded structured-data keys, listed in preference order per
// metric (e.g. an "impressions" pair beats a "views" pair).
var embeddedKeys = []struct {
	key  string
	syns []string
}{
	{Impressions, []string{"impressions", "views"}},
	{Reactions, []string{"reactions", "likes"}},
	{Comments, []string{"comments", "replies"}},
	{Reposts, []string{"reposts", "shares"}},
}

var embeddedRes = map[string]*regexp.Regexp{}

func init() {
	for _, e := range embeddedKeys {
		for _, name := range e.syns {
			embeddedRes[name] = regexp.MustCompile(`(?i)"` + name + `"\s*:\s*"?` + countToken + `"?`)
		}
	}
}

func compileCounts(labels ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(labels))
	for _, label := range labels {
		res = append(res, regexp.MustCompile(`(?i)`+countToken+`\s*`+label))
	}
	return res
}

// Extract recovers engagement counts from raw page content. Keys are
// present only when a value was found; malformed content yields an empty
// map, never an error.
func Extract(page []byte) map[string]int64 {
	out := make(map[string]int64)
	if len(page) == 0 {
		return out
	}

	if text, ok := visibleText(page); ok {
		for _, tp := range textPatterns {
			for _, re := range tp.patterns {
				m := re.FindStringSubmatch(text)
				if m == nil {
					continue
				}
				if n, ok := numparse.Parse(m[1]); ok {
					out[tp.key] = n
				}
				break
			}
		}
	}

	raw := string(page)
	for _, e := range embeddedKeys {
		if _, done := out[e.key]; done {
			continue
		}
		for _, name := range e.syns {
			m := embeddedRes[name].FindStringSubmatch(raw)
			if m == nil {
				continue
			}
			if n, ok := numparse.Parse(m[1]); ok {
				out[e.key] = n
				break
			}
		}
	}

	return out
}

var followersRe = regexp.MustCompile(`(?i)(\d[\d,.]*\s*[km]?)\s*followers`)

// Followers extracts the company follower count from a rendered company
// page.
func Followers(page []byte) (int64, bool) {
	text, ok := visibleText(page)
	if !ok {
		return 0, false
	}
	m := followersRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return numparse.Parse(m[1])
}

// visibleText flattens markup to whitespace-joined text.
func visibleText(page []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", false
	}
	return strings.Join(strings.Fields(doc.Text()), " "), true
}
