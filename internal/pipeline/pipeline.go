// Package pipeline orchestrates a single collection run: follower
// sampling, feed merge, metric enrichment, and aggregate derivation.
// Phases run strictly sequentially; no phase failure is fatal to the
// run — a failed fetch simply skips that phase's writes.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"socialpulse/internal/config"
	"socialpulse/internal/enrich"
	"socialpulse/internal/feed"
	"socialpulse/internal/metrics"
	"socialpulse/internal/model"
	"socialpulse/internal/proxy"
	"socialpulse/internal/report"
	"socialpulse/internal/store"
	"socialpulse/internal/upload"
)

// Pipeline wires the collection components for one company channel.
type Pipeline struct {
	cfg      *config.Config
	proxy    *proxy.Client
	feed     *feed.Fetcher
	enricher *enrich.Enricher
	store    *store.Store
	uploader *upload.Uploader
	log      *slog.Logger
	now      func() time.Time
}

// New builds a Pipeline from the configuration. The HTTP client is shared
// by the proxy and the storage uploader; the uploader is disabled when no
// storage endpoint is configured.
func New(cfg *config.Config, client proxy.HTTPClient, log *slog.Logger) *Pipeline {
	p := proxy.New(cfg.ProxyBaseURL, cfg.ProxyAPIKey, client)

	f := feed.New(p, log)
	f.SetPageSize(cfg.FeedPageSize)
	f.SetPageCap(cfg.FeedPageCap)
	f.SetPacing(cfg.FeedPace)

	e := enrich.New(p, log)
	e.SetBatchLimit(cfg.EnrichBatch)
	e.SetPacing(cfg.EnrichPace)

	var up *upload.Uploader
	if cfg.StorageURL != "" {
		up = upload.New(cfg.StorageURL, cfg.StorageKey, cfg.Bucket, client)
	}

	return &Pipeline{
		cfg:      cfg,
		proxy:    p,
		feed:     f,
		enricher: e,
		store:    store.New(cfg.DataDir),
		uploader: up,
		log:      log,
		now:      time.Now,
	}
}

// Run executes one full collection pass.
func (p *Pipeline) Run(ctx context.Context) {
	p.runFollowers(ctx)
	p.runPosts(ctx)
	p.runAggregates(ctx)
}

// runFollowers samples the company page's follower count and appends it
// to the follower log. A failed fetch skips persistence for this run.
func (p *Pipeline) runFollowers(ctx context.Context) {
	page, err := p.proxy.Scrape(ctx, p.cfg.CompanyURL)
	if err != nil {
		p.log.Error("fetch company page", "url", p.cfg.CompanyURL, "error", err)
		return
	}

	count, ok := metrics.Followers(page)
	if !ok {
		p.log.Warn("no follower count on company page", "url", p.cfg.CompanyURL)
		return
	}

	obs := model.FollowerObservation{
		Timestamp: p.now(),
		SourceURL: p.cfg.CompanyURL,
		Followers: count,
	}
	if err := p.store.AppendFollower(obs); err != nil {
		p.log.Error("append follower observation", "error", err)
		return
	}
	p.log.Info("recorded follower count", "followers", count)

	p.upload(ctx, p.store.FollowersPath())
}

// runPosts merges freshly fetched feed updates into the post store and
// backfills metrics for a bounded batch.
func (p *Pipeline) runPosts(ctx context.Context) {
	existing, err := p.store.LoadPosts()
	if err != nil {
		p.log.Error("load post store", "error", err)
		return
	}

	posts := existing
	updates := p.feed.FetchAll(ctx, p.cfg.CompanyLinkID)
	if len(updates) == 0 {
		p.log.Info("no feed updates returned")
	} else {
		posts = store.MergePosts(existing, updates)
		if err := p.store.SavePosts(posts); err != nil {
			p.log.Error("save post store", "error", err)
			return
		}
		p.log.Info("merged feed updates", "fetched", len(updates), "total", len(posts))
	}

	if updated := p.enricher.Run(ctx, posts); updated > 0 {
		if err := p.store.SavePosts(posts); err != nil {
			p.log.Error("save post store", "error", err)
			return
		}
		p.log.Info("enriched post metrics", "records", updated)
	}

	if len(posts) > 0 {
		p.upload(ctx, p.store.PostsPath())
	}
}

// runAggregates recomputes the daily follower points and the channel
// summary from the accumulated stores.
func (p *Pipeline) runAggregates(ctx context.Context) {
	obs, err := p.store.LoadFollowers()
	if err != nil {
		p.log.Error("load follower log", "error", err)
		return
	}

	points := report.DailyPoints(obs)
	if len(points) == 0 {
		return
	}
	if err := p.store.SaveDailyPoints(points); err != nil {
		p.log.Error("save daily points", "error", err)
		return
	}

	posts, err := p.store.LoadPosts()
	if err != nil {
		p.log.Error("load post store", "error", err)
		return
	}
	sum := report.Summary(p.cfg.Platform, points, posts)
	if err := p.store.SaveSummary(sum); err != nil {
		p.log.Error("save summary", "error", err)
		return
	}
	p.log.Info("recomputed aggregates", "days", len(points), "total_followers", sum.TotalFollowers)

	p.upload(ctx, p.store.DailyPath())
	p.upload(ctx, p.store.SummaryPath())
}

func (p *Pipeline) upload(ctx context.Context, path string) {
	if p.uploader == nil {
		return
	}
	if err := p.uploader.Upload(ctx, path); err != nil {
		p.log.Error("upload table", "file", filepath.Base(path), "error", err)
		return
	}
	p.log.Info("uploaded table", "file", filepath.Base(path))
}
