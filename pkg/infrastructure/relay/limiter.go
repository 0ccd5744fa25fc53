package relay

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
)

// Limited is a relay whose requests share a token bucket.
// Batch workers hold the same Limited values so one relay never sees more
// than the configured request rate from this process.
type Limited struct {
	service.Relay
	limiter *rate.Limiter
}

// NewLimited wraps relay with a limiter allowing requests per window
func NewLimited(relay service.Relay, requests int, window time.Duration) *Limited {
	limit := rate.Inf
	burst := 1
	if requests > 0 && window > 0 {
		limit = rate.Every(window / time.Duration(requests))
		burst = requests
	}
	return &Limited{Relay: relay, limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until the relay may be called again
func (l *Limited) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// LimitAll wraps every relay with its own limiter
func LimitAll(relays []service.Relay, requests int, window time.Duration) []service.Relay {
	out := make([]service.Relay, len(relays))
	for i, r := range relays {
		out[i] = NewLimited(r, requests, window)
	}
	return out
}
