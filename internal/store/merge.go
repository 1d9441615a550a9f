package store

import "socialpulse/internal/model"

// MergePosts appends newly fetched feed updates to the existing record
// set, deduplicating by article link with the last occurrence kept in
// place. Feed fields come from the most recent occurrence of a link;
// metric values collected by earlier occurrences are carried forward
// whenever a later occurrence lacks them, so a re-fetched post never
// loses its enriched metrics. Records without a link are always retained.
func MergePosts(existing []model.PostRecord, updates []map[string]any) []model.PostRecord {
	combined := make([]model.PostRecord, 0, len(existing)+len(updates))
	combined = append(combined, existing...)
	for _, u := range updates {
		combined = append(combined, model.PostFromUpdate(u))
	}

	lastIdx := make(map[string]int, len(combined))
	for i, rec := range combined {
		if rec.ArticleLink != "" {
			lastIdx[rec.ArticleLink] = i
		}
	}

	type carried struct {
		impressions, reactions, comments, reposts *int64
	}
	carry := make(map[string]carried, len(lastIdx))

	out := make([]model.PostRecord, 0, len(combined))
	for i, rec := range combined {
		if rec.ArticleLink == "" {
			out = append(out, rec)
			continue
		}

		c := carry[rec.ArticleLink]
		c.impressions = firstNonNil(rec.Impressions, c.impressions)
		c.reactions = firstNonNil(rec.Reactions, c.reactions)
		c.comments = firstNonNil(rec.Comments, c.comments)
		c.reposts = firstNonNil(rec.Reposts, c.reposts)
		carry[rec.ArticleLink] = c

		if lastIdx[rec.ArticleLink] != i {
			continue
		}
		rec.Impressions = c.impressions
		rec.Reactions = c.reactions
		rec.Comments = c.comments
		rec.Reposts = c.reposts
		out = append(out, rec)
	}
	return out
}

func firstNonNil(a, b *int64) *int64 {
	if a != nil {
		return a
	}
	return b
}
