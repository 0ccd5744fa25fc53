package service

import (
	"context"
	"net/http"
	"time"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
)

// ContentValidator classifies text as genuine ads.txt content
type ContentValidator interface {
	// Classify reports whether text looks like an ads.txt file
	Classify(text string) bool
	// Verdict is Classify plus the reason for the decision
	Verdict(text string) Verdict
}

// Verdict is the outcome of one classification
type Verdict struct {
	Accepted bool
	Reason   string
}

// BoundedFetcher performs a single request with an enforced timeout
type BoundedFetcher interface {
	// FetchBounded returns the body of url or an *entity.AttemptError
	FetchBounded(ctx context.Context, url string, timeout time.Duration, headers http.Header) (string, error)
}

// OriginResolver performs the direct-to-target fetch and returns the first
// validated body
type OriginResolver interface {
	Resolve(ctx context.Context, domain string) (*entity.RetrievalResult, error)
}

// Relay fetches a target URL on the caller's behalf
type Relay interface {
	// Name identifies the relay in the attempt log
	Name() string
	// URL wraps the target URL into a relay request URL
	URL(target string) string
	// Unwrap extracts the body text from the relay response
	Unwrap(raw string) (string, error)
}

// DomainNormalizer turns raw user input into a bare lower-cased host
type DomainNormalizer interface {
	Normalize(input string) (entity.Domain, error)
}

// URLAnalyzer derives the display-only fields for an address
type URLAnalyzer interface {
	Analyze(input string) (*entity.URLAnalysis, error)
}
