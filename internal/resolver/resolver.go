// internal/resolver/resolver.go
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/griogair/embedfeed/internal/utils"
)

// defaultUserAgent is a realistic desktop identity; Bandcamp rejects
// obviously scripted clients.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config defines the resolver's fetch behavior.
type Config struct {
	RetryAttempts int           // total fetch attempts per URL
	RetryDelay    time.Duration // fixed delay between attempts
	Timeout       time.Duration // per-attempt timeout
	RateLimit     float64       // fetches per second across all URLs
	RateBurst     int
	UserAgent     string
}

// Resolver fetches Bandcamp pages and runs the extraction cascade.
type Resolver struct {
	config     Config
	httpClient *http.Client
	strategies []Strategy
	limiter    *rate.Limiter
	logger     utils.Logger
}

// New creates a resolver with the default strategy cascade.
func New(config Config, logger utils.Logger) *Resolver {
	if config.RetryAttempts < 1 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 2 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1.0
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}

	return &Resolver{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		strategies: DefaultStrategies(),
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		logger:     logger,
	}
}

// Resolve fetches the page at targetURL and recovers its identifier through
// the cascade. A 404 aborts immediately; any other failing status and
// transport errors retry up to the configured budget with a fixed delay
// between attempts. A page
// that fetches cleanly but matches no strategy also consumes an attempt and
// is re-fetched, matching the observed Bandcamp behavior of intermittently
// serving pages without script data.
func (r *Resolver) Resolve(ctx context.Context, targetURL string) (*Resolution, error) {
	log := r.logger.WithField("url", targetURL)

	var lastErr error
	for attempt := 1; attempt <= r.config.RetryAttempts; attempt++ {
		if attempt > 1 {
			log.Debugf("retrying (%d/%d)", attempt, r.config.RetryAttempts)
			select {
			case <-time.After(r.config.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		page, err := r.fetch(ctx, targetURL)
		if err != nil {
			if utils.CodeOf(err) == utils.ErrCodeFetchTerminal {
				log.WithField("reason", err).Info("resolution aborted")
				return nil, err
			}
			lastErr = err
			continue
		}

		if res, ok := r.runCascade(page, log); ok {
			return res, nil
		}

		lastErr = utils.NewCodedError(utils.ErrCodeNoEmbedFound, utils.SeverityWarning,
			fmt.Errorf("no strategy matched page content"))
	}

	return nil, utils.NewCodedError(utils.ErrCodeFetchExhausted, utils.SeverityWarning,
		fmt.Errorf("resolution failed after %d attempts: %w", r.config.RetryAttempts, lastErr))
}

// fetch performs one GET attempt, classifying failures as terminal or
// retryable.
func (r *Resolver) fetch(ctx context.Context, targetURL string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", utils.NewCodedError(utils.ErrCodeFetchTerminal, utils.SeverityWarning,
			fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", r.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", utils.NewCodedError(utils.ErrCodeFetchRetryable, utils.SeverityWarning,
			fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to body read
	case resp.StatusCode == http.StatusNotFound:
		return "", utils.NewCodedError(utils.ErrCodeFetchTerminal, utils.SeverityWarning,
			fmt.Errorf("page does not exist (404)"))
	default:
		// everything except a 404 may be transient (429, 403 challenges,
		// 5xx), so it stays within the retry budget
		return "", utils.NewCodedError(utils.ErrCodeFetchRetryable, utils.SeverityWarning,
			fmt.Errorf("unexpected status: HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", utils.NewCodedError(utils.ErrCodeFetchRetryable, utils.SeverityWarning,
			fmt.Errorf("failed to read page body: %w", err))
	}

	return string(body), nil
}

// runCascade tries each strategy in precedence order.
func (r *Resolver) runCascade(page string, log utils.Logger) (*Resolution, bool) {
	for _, strategy := range r.strategies {
		if res, ok := strategy.Extract(page); ok {
			log.WithFields(map[string]interface{}{
				"strategy": strategy.Name(),
				"id":       res.ID,
			}).Debug("identifier extracted")
			return res, true
		}
	}
	return nil, false
}
