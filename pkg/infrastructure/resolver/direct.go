// Package resolver implements the origin resolver: the direct-to-target
// fetch that is tried once before any relay.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
)

// SourceName identifies the resolver in attempt logs and results
const SourceName = "resolver"

// DefaultUpstreamTimeout bounds each upstream fetch of the direct resolver
const DefaultUpstreamTimeout = 15 * time.Second

// BrowserHeaders is the request header set sent to origin servers
func BrowserHeaders() http.Header {
	return http.Header{
		"User-Agent":      {"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
		"Accept":          {"text/plain, text/html, */*"},
		"Accept-Language": {"en-US,en;q=0.9"},
		"Cache-Control":   {"no-cache"},
	}
}

// Targets lists the origin URLs tried for domain, in order
func Targets(domain string) []string {
	return []string{
		fmt.Sprintf("https://%s/ads.txt", domain),
		fmt.Sprintf("https://www.%s/ads.txt", domain),
		fmt.Sprintf("http://%s/ads.txt", domain),
		fmt.Sprintf("http://www.%s/ads.txt", domain),
	}
}

// DirectConfig configures a Direct resolver
type DirectConfig struct {
	UpstreamTimeout time.Duration
	// Targets overrides the origin URL list, mainly for tests
	Targets func(domain string) []string
	Logger  zerolog.Logger
}

// Direct fetches ads.txt from the origin itself, trying scheme and www
// variants, and returns the first body the validator accepts.
type Direct struct {
	fetcher   service.BoundedFetcher
	validator service.ContentValidator
	timeout   time.Duration
	targets   func(string) []string
	logger    zerolog.Logger
}

var _ service.OriginResolver = (*Direct)(nil)

// NewDirect creates a direct resolver
func NewDirect(fetcher service.BoundedFetcher, validator service.ContentValidator, cfg DirectConfig) *Direct {
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if cfg.Targets == nil {
		cfg.Targets = Targets
	}
	return &Direct{
		fetcher:   fetcher,
		validator: validator,
		timeout:   cfg.UpstreamTimeout,
		targets:   cfg.Targets,
		logger:    cfg.Logger,
	}
}

// Resolve implements service.OriginResolver.
// It returns *entity.NotFoundError once every target failed.
func (d *Direct) Resolve(ctx context.Context, domain string) (*entity.RetrievalResult, error) {
	var attempts []entity.Attempt
	headers := BrowserHeaders()

	for _, target := range d.targets(domain) {
		start := time.Now()
		body, err := d.fetcher.FetchBounded(ctx, target, d.timeout, headers)
		if err == nil && !d.validator.Classify(body) {
			err = entity.NewAttemptError(entity.KindValidationRejected, nil)
		}
		if err == nil {
			return &entity.RetrievalResult{FinalURL: target, Content: body, Source: SourceName}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		attempt := newAttempt(target, err, time.Since(start))
		attempts = append(attempts, attempt)
		d.logger.Debug().
			Str("url", target).
			Stringer("kind", attempt.Kind).
			Int("status", attempt.StatusCode).
			Dur("elapsed", attempt.Elapsed).
			Msg("upstream fetch failed")
	}

	return nil, &entity.NotFoundError{Domain: domain, Attempts: attempts}
}

func newAttempt(target string, err error, elapsed time.Duration) entity.Attempt {
	attempt := entity.Attempt{
		Source:    SourceName,
		TargetURL: target,
		Kind:      entity.KindOf(err),
		Error:     err.Error(),
		Elapsed:   elapsed,
	}
	var ae *entity.AttemptError
	if errors.As(err, &ae) {
		attempt.StatusCode = ae.StatusCode
	}
	return attempt
}
