// internal/pipeline/runner.go
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/griogair/embedfeed/internal/freshrss"
	"github.com/griogair/embedfeed/internal/pages"
	"github.com/griogair/embedfeed/internal/resolver"
	"github.com/griogair/embedfeed/internal/scanner"
	"github.com/griogair/embedfeed/internal/utils"
)

// ArticleSource supplies ordered articles for a stream selector.
type ArticleSource interface {
	GetArticles(ctx context.Context, sel freshrss.Selector, count int, unreadOnly bool) ([]freshrss.Article, error)
}

// EmbedResolver recovers a Bandcamp identifier for a candidate URL.
type EmbedResolver interface {
	Resolve(ctx context.Context, url string) (*resolver.Resolution, error)
}

// MetricsRecorder receives pipeline events. monitoring.Metrics implements
// it; a nil recorder disables instrumentation.
type MetricsRecorder interface {
	ArticleScanned()
	CandidateFound(kind string)
	DuplicateSkipped(kind string)
	ResolutionSucceeded()
	ResolutionFailed()
}

// Counters summarizes one feed's processing outcome.
type Counters struct {
	Articles   int
	Found      map[pages.MediaKind]int
	Duplicates map[pages.MediaKind]int
	Resolved   int
	Skipped    int
}

// FeedResult is the ordered entry list for one feed plus its counters.
type FeedResult struct {
	Entries  []pages.Entry
	Counters Counters
}

// Runner drives the scan-resolve-order pipeline for feed streams.
type Runner struct {
	source      ArticleSource
	resolver    EmbedResolver
	concurrency int
	metrics     MetricsRecorder
	logger      utils.Logger
}

// NewRunner creates a runner. concurrency bounds simultaneous Bandcamp
// resolutions; 1 reproduces strictly sequential behavior.
func NewRunner(source ArticleSource, res EmbedResolver, concurrency int, metrics MetricsRecorder, logger utils.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		source:      source,
		resolver:    res,
		concurrency: concurrency,
		metrics:     metrics,
		logger:      logger,
	}
}

// candidate is one deduplicated media reference awaiting materialization.
// Candidates keep their discovery position so final ordering never depends
// on resolution completion order.
type candidate struct {
	kind         pages.MediaKind
	url          string
	article      freshrss.Article
	articleIndex int
	needsResolve bool
	resolution   *resolver.Resolution
	failed       bool
}

// ProcessFeed scans up to maxArticles articles from the selector, resolves
// Bandcamp candidates, and returns entries ordered by publish time
// descending with article order as tiebreak. Callers create a fresh
// RunState per feed; each feed's artifact deduplicates independently.
func (r *Runner) ProcessFeed(ctx context.Context, state *RunState, sel freshrss.Selector, maxArticles int, unreadOnly bool) (*FeedResult, error) {
	log := r.logger.WithField("stream", sel.String())

	articles, err := r.source.GetArticles(ctx, sel, maxArticles, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch articles: %w", err)
	}

	log.Infof("processing %d articles", len(articles))

	counters := Counters{
		Articles:   len(articles),
		Found:      make(map[pages.MediaKind]int),
		Duplicates: make(map[pages.MediaKind]int),
	}

	candidates := r.collectCandidates(articles, state, &counters)
	r.resolveCandidates(ctx, candidates, &counters, log)

	entries := materialize(candidates)

	for _, kind := range pages.Kinds {
		counters.Duplicates[kind] = state.Duplicates(kind)
	}

	log.WithFields(map[string]interface{}{
		"entries":  len(entries),
		"resolved": counters.Resolved,
		"skipped":  counters.Skipped,
	}).Info("feed processed")

	return &FeedResult{Entries: entries, Counters: counters}, nil
}

// collectCandidates scans every article and claims each first-seen URL in
// the run state. Claiming happens here, before dispatch, so the worker pool
// can never race two resolutions of one URL.
func (r *Runner) collectCandidates(articles []freshrss.Article, state *RunState, counters *Counters) []*candidate {
	var candidates []*candidate

	for i, article := range articles {
		if r.metrics != nil {
			r.metrics.ArticleScanned()
		}

		// body plus canonical link: some feeds only carry the link
		matches := scanner.Scan(article.Content + " " + article.Link)

		for _, kind := range pages.Kinds {
			for _, url := range matches[kind] {
				if r.metrics != nil {
					r.metrics.CandidateFound(string(kind))
				}

				if !state.MarkSeen(kind, url) {
					if r.metrics != nil {
						r.metrics.DuplicateSkipped(string(kind))
					}
					continue
				}

				counters.Found[kind]++
				candidates = append(candidates, &candidate{
					kind:         kind,
					url:          url,
					article:      article,
					articleIndex: i,
					needsResolve: kind == pages.KindBandcamp,
				})
			}
		}
	}

	return candidates
}

// resolveCandidates runs Bandcamp resolutions through a bounded worker
// pool. Each worker writes only its own candidate, so no locking is needed
// on the slice.
func (r *Runner) resolveCandidates(ctx context.Context, candidates []*candidate, counters *Counters, log utils.Logger) {
	jobs := make(chan *candidate)
	var wg sync.WaitGroup

	var mu sync.Mutex // guards counters

	for w := 0; w < r.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				res, err := r.resolver.Resolve(ctx, cand.url)

				mu.Lock()
				if err != nil {
					cand.failed = true
					counters.Skipped++
					if r.metrics != nil {
						r.metrics.ResolutionFailed()
					}
					log.WithField("url", cand.url).Warnf("dropping candidate: %v", err)
				} else {
					cand.resolution = res
					counters.Resolved++
					if r.metrics != nil {
						r.metrics.ResolutionSucceeded()
					}
				}
				mu.Unlock()
			}
		}()
	}

	for _, cand := range candidates {
		if cand.needsResolve {
			jobs <- cand
		}
	}
	close(jobs)
	wg.Wait()
}

// materialize turns surviving candidates into artifact entries, ordered by
// publish time descending, stable on discovery order.
func materialize(candidates []*candidate) []pages.Entry {
	var ordered []*candidate
	for _, cand := range candidates {
		if cand.needsResolve && cand.resolution == nil {
			// unresolved Bandcamp references are never materialized
			continue
		}
		ordered = append(ordered, cand)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].article.Published > ordered[j].article.Published
	})

	entries := make([]pages.Entry, 0, len(ordered))
	for _, cand := range ordered {
		entries = append(entries, cand.toEntry())
	}
	return entries
}

// toEntry builds the persisted entry for a candidate. Bandcamp entries use
// the resolved identifier as display id; other kinds use their canonical
// URL.
func (c *candidate) toEntry() pages.Entry {
	entry := pages.Entry{
		Type:        string(c.kind),
		URL:         c.url,
		Title:       c.article.Title,
		ArticleLink: c.article.Link,
		Author:      c.article.Author,
		Feed:        c.article.FeedTitle,
		Date:        time.Unix(c.article.Published, 0).Format(pages.DateFormat),
		ID:          c.url,
	}

	if c.resolution != nil {
		entry.ID = c.resolution.ID
		entry.EmbedHTML = c.resolution.EmbedHTML
	}

	return entry
}
