// internal/app/harvest.go

// Package app wires the FreshRSS client, the media pipeline, and the
// artifact store into one harvest run. Both binaries drive it: the CLI for
// one-shot runs, the server for periodic ones.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/griogair/embedfeed/internal/config"
	"github.com/griogair/embedfeed/internal/freshrss"
	"github.com/griogair/embedfeed/internal/output"
	"github.com/griogair/embedfeed/internal/pages"
	"github.com/griogair/embedfeed/internal/pipeline"
	"github.com/griogair/embedfeed/internal/resolver"
	"github.com/griogair/embedfeed/internal/utils"
)

// App holds the assembled components for harvest runs.
type App struct {
	cfg     *config.Config
	client  *freshrss.Client
	runner  *pipeline.Runner
	store   *output.ArtifactStore
	history *output.HistoryStore
	logger  utils.Logger
}

// Summary is the outcome of one harvest run across all configured feeds.
type Summary struct {
	Feeds    []FeedOutcome
	Failed   int
	Entries  int
	Duration time.Duration
}

// FeedOutcome is one feed's slice of the run.
type FeedOutcome struct {
	Name     string
	Counters pipeline.Counters
	Entries  int
	Err      error
}

// New assembles an App from configuration. metrics may be nil.
func New(cfg *config.Config, metrics pipeline.MetricsRecorder, logger utils.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel))
	}

	client := freshrss.NewClient(cfg.Server.URL, cfg.Server.Username, cfg.Server.Password, logger)

	res := resolver.New(resolver.Config{
		RetryAttempts: cfg.Resolver.RetryAttempts,
		RetryDelay:    cfg.Resolver.RetryDelay,
		Timeout:       cfg.Resolver.Timeout,
		RateLimit:     cfg.Resolver.RateLimit,
		UserAgent:     cfg.Resolver.UserAgent,
	}, logger)

	store, err := output.NewArtifactStore(cfg.Output.Directory, logger)
	if err != nil {
		return nil, err
	}

	var history *output.HistoryStore
	if cfg.Output.HistoryDB != "" {
		history, err = output.NewHistoryStore(cfg.Output.HistoryDB)
		if err != nil {
			// history is best-effort, the harvest still runs
			logger.WithField("error", err.Error()).Warn("run history disabled")
			history = nil
		}
	}

	runner := pipeline.NewRunner(client, res, cfg.Resolver.Concurrency, metrics, logger)

	return &App{
		cfg:     cfg,
		client:  client,
		runner:  runner,
		store:   store,
		history: history,
		logger:  logger,
	}, nil
}

// Store exposes the artifact store, for serving the output directory.
func (a *App) Store() *output.ArtifactStore {
	return a.store
}

// Close releases held resources.
func (a *App) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

// target is one named stream to harvest into its own artifact.
type target struct {
	name     string
	selector freshrss.Selector
}

// Harvest authenticates, processes every configured feed and category, and
// writes one artifact per target. A failing target is logged and counted;
// it never aborts the rest of the run.
func (a *App) Harvest(ctx context.Context) (*Summary, error) {
	started := time.Now()

	if err := a.client.Authenticate(ctx); err != nil {
		return nil, err
	}

	targets, unmatched, err := a.resolveTargets(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, outcome := range unmatched {
		summary.Feeds = append(summary.Feeds, outcome)
		summary.Failed++
	}
	var records []output.FeedRecord
	for _, t := range targets {
		outcome := a.harvestTarget(ctx, t)
		summary.Feeds = append(summary.Feeds, outcome)
		if outcome.Err != nil {
			summary.Failed++
			continue
		}
		summary.Entries += outcome.Entries
		records = append(records, output.FeedRecord{
			Feed:     outcome.Name,
			Counters: outcome.Counters,
			Entries:  outcome.Entries,
		})
	}
	summary.Duration = time.Since(started)

	if a.history != nil {
		if err := a.history.RecordRun(started, time.Now(), summary.Failed, records); err != nil {
			a.logger.WithField("error", err.Error()).Warn("failed to record run history")
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"feeds":    len(summary.Feeds),
		"failed":   summary.Failed,
		"entries":  summary.Entries,
		"duration": summary.Duration.String(),
	}).Info("harvest complete")

	return summary, nil
}

func (a *App) harvestTarget(ctx context.Context, t target) FeedOutcome {
	outcome := FeedOutcome{Name: t.name}

	result, err := a.runner.ProcessFeed(ctx, pipeline.NewRunState(), t.selector,
		a.cfg.MaxArticles, a.cfg.UnreadOnly)
	if err != nil {
		a.logger.WithFields(map[string]interface{}{
			"feed":  t.name,
			"error": err.Error(),
		}).Error("feed harvest failed")
		outcome.Err = err
		return outcome
	}

	pm := pages.Paginate(result.Entries, a.cfg.Output.ItemsPerPage)
	if err := a.store.Write(t.name, pm, pages.Meta{ItemsPerPage: a.cfg.Output.ItemsPerPage}); err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Counters = result.Counters
	outcome.Entries = len(result.Entries)
	return outcome
}

// resolveTargets maps configured feed names and categories onto stream
// selectors. Feed names match subscription titles or raw stream ids. A name
// that matches nothing is returned as a failed outcome so a typo in one
// entry never blocks the remaining feeds.
func (a *App) resolveTargets(ctx context.Context) ([]target, []FeedOutcome, error) {
	var targets []target
	var unmatched []FeedOutcome

	if len(a.cfg.Feeds) > 0 {
		subscriptions, err := a.client.ListFeeds(ctx)
		if err != nil {
			return nil, nil, err
		}
		byTitle := make(map[string]freshrss.Feed, len(subscriptions))
		byID := make(map[string]freshrss.Feed, len(subscriptions))
		for _, f := range subscriptions {
			byTitle[f.Title] = f
			byID[f.ID] = f
		}

		for _, name := range a.cfg.Feeds {
			feed, ok := byTitle[name]
			if !ok {
				feed, ok = byID[name]
			}
			if !ok {
				a.logger.WithField("feed", name).Warn("skipping feed: not subscribed on the server")
				unmatched = append(unmatched, FeedOutcome{
					Name: name,
					Err:  fmt.Errorf("feed %q is not subscribed on the server", name),
				})
				continue
			}
			targets = append(targets, target{
				name:     feed.Title,
				selector: freshrss.Selector{FeedID: feed.ID},
			})
		}
	}

	for _, category := range a.cfg.Categories {
		targets = append(targets, target{
			name:     category,
			selector: freshrss.Selector{Category: category},
		})
	}

	return targets, unmatched, nil
}
