package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
)

// Default per-stage timeouts of a retrieval
const (
	DefaultResolverTimeout = 20 * time.Second
	DefaultRelayTimeout    = 10 * time.Second
)

// Outcomes reported to observers
const (
	OutcomeFound        = "found"
	OutcomeNotFound     = "not_found"
	OutcomeInvalidInput = "invalid_input"
	OutcomeCanceled     = "canceled"
)

// RetrievalObserver is notified of every attempt and every finished retrieval
type RetrievalObserver interface {
	ObserveAttempt(domain string, attempt entity.Attempt)
	ObserveRetrieval(domain, outcome, source string, elapsed time.Duration)
}

// waiter is implemented by rate-limited relays
type waiter interface {
	Wait(ctx context.Context) error
}

// RetrieveConfig holds the orchestrator configuration
type RetrieveConfig struct {
	ResolverTimeout time.Duration
	RelayTimeout    time.Duration
	Logger          zerolog.Logger
}

// RetrieveUseCase sequences one ads.txt retrieval: the origin resolver once,
// then every relay for every host variant, stopping at the first body the
// content validator accepts. Attempts never run concurrently.
type RetrieveUseCase struct {
	config     RetrieveConfig
	normalizer service.DomainNormalizer
	resolver   service.OriginResolver
	relays     []service.Relay
	fetcher    service.BoundedFetcher
	validator  service.ContentValidator
	observers  []RetrievalObserver
	logger     zerolog.Logger
}

// NewRetrieveUseCase creates the orchestrator. resolver may be nil, in which
// case only relays are tried.
func NewRetrieveUseCase(
	config RetrieveConfig,
	normalizer service.DomainNormalizer,
	resolver service.OriginResolver,
	relays []service.Relay,
	fetcher service.BoundedFetcher,
	validator service.ContentValidator,
) *RetrieveUseCase {
	if config.ResolverTimeout <= 0 {
		config.ResolverTimeout = DefaultResolverTimeout
	}
	if config.RelayTimeout <= 0 {
		config.RelayTimeout = DefaultRelayTimeout
	}
	return &RetrieveUseCase{
		config:     config,
		normalizer: normalizer,
		resolver:   resolver,
		relays:     relays,
		fetcher:    fetcher,
		validator:  validator,
		logger:     config.Logger,
	}
}

// RegisterObserver registers a retrieval observer
func (uc *RetrieveUseCase) RegisterObserver(observer RetrievalObserver) {
	uc.observers = append(uc.observers, observer)
}

// Retrieve normalizes raw and runs the retrieval.
// Only entity.ErrInvalidInput, *entity.NotFoundError or the caller's context
// error are returned.
func (uc *RetrieveUseCase) Retrieve(ctx context.Context, raw string) (*entity.RetrievalResult, error) {
	domain, err := uc.normalizer.Normalize(raw)
	if err != nil {
		uc.notifyRetrieval(raw, OutcomeInvalidInput, "", 0)
		return nil, err
	}
	result, attempts, err := uc.Execute(ctx, domain)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &entity.NotFoundError{Domain: domain.Name, Attempts: attempts}
	}
	return result, nil
}

// Execute runs the retrieval plan for an already normalized domain. A nil
// result with a nil error means every attempt was exhausted; the returned
// attempt log then holds one entry per failed attempt.
func (uc *RetrieveUseCase) Execute(ctx context.Context, domain entity.Domain) (*entity.RetrievalResult, []entity.Attempt, error) {
	start := time.Now()
	result, attempts, err := uc.walk(ctx, domain.Name, uc.plan(domain))
	elapsed := time.Since(start)

	switch {
	case err != nil:
		uc.notifyRetrieval(domain.Name, OutcomeCanceled, "", elapsed)
		return nil, attempts, err
	case result == nil:
		uc.logger.Info().
			Str("domain", domain.Name).
			Int("attempts", len(attempts)).
			Dur("elapsed", elapsed).
			Msg("no ads.txt found")
		uc.notifyRetrieval(domain.Name, OutcomeNotFound, "", elapsed)
		return nil, attempts, nil
	default:
		uc.logger.Debug().
			Str("domain", domain.Name).
			Str("source", result.Source).
			Str("url", result.FinalURL).
			Dur("elapsed", elapsed).
			Msg("ads.txt retrieved")
		uc.notifyRetrieval(domain.Name, OutcomeFound, result.Source, elapsed)
		return result, attempts, nil
	}
}

// candidate is one gated step of the retrieval plan
type candidate struct {
	source     string
	variant    string
	target     string
	requestURL string
	run        func(ctx context.Context) (*entity.RetrievalResult, error)
}

// plan lists every attempt in order: resolver first, then variants x relays
func (uc *RetrieveUseCase) plan(domain entity.Domain) []candidate {
	plan := make([]candidate, 0, 1+len(uc.relays)*2)

	if uc.resolver != nil {
		plan = append(plan, candidate{
			source: "resolver",
			target: CanonicalTarget(domain.Name),
			run: func(ctx context.Context) (*entity.RetrievalResult, error) {
				return uc.viaResolver(ctx, domain.Name)
			},
		})
	}

	for _, variant := range domain.Variants() {
		target := CanonicalTarget(variant)
		for _, relay := range uc.relays {
			plan = append(plan, candidate{
				source:     relay.Name(),
				variant:    variant,
				target:     target,
				requestURL: relay.URL(target),
				run: func(ctx context.Context) (*entity.RetrievalResult, error) {
					return uc.viaRelay(ctx, relay, target)
				},
			})
		}
	}
	return plan
}

// walk runs candidates in order and stops at the first accepted one.
// Per-attempt failures are collected; only the caller's context aborts.
func (uc *RetrieveUseCase) walk(ctx context.Context, domain string, plan []candidate) (*entity.RetrievalResult, []entity.Attempt, error) {
	var attempts []entity.Attempt

	for _, c := range plan {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}

		start := time.Now()
		result, err := c.run(ctx)
		attempt := entity.Attempt{
			Source:     c.source,
			Variant:    c.variant,
			TargetURL:  c.target,
			RequestURL: c.requestURL,
			Elapsed:    time.Since(start),
		}

		if err == nil {
			attempt.Accepted = true
			uc.notifyAttempt(domain, attempt)
			return result, attempts, nil
		}
		if ctx.Err() != nil {
			return nil, attempts, ctx.Err()
		}

		attempt.Kind = entity.KindOf(err)
		attempt.Error = err.Error()
		var ae *entity.AttemptError
		if errors.As(err, &ae) {
			attempt.StatusCode = ae.StatusCode
		}
		attempts = append(attempts, attempt)
		uc.notifyAttempt(domain, attempt)

		uc.logger.Debug().
			Str("domain", domain).
			Str("source", attempt.Source).
			Str("variant", attempt.Variant).
			Str("url", attempt.TargetURL).
			Stringer("kind", attempt.Kind).
			Int("status", attempt.StatusCode).
			Dur("elapsed", attempt.Elapsed).
			Msg("attempt failed")
	}
	return nil, attempts, nil
}

func (uc *RetrieveUseCase) viaResolver(ctx context.Context, domain string) (*entity.RetrievalResult, error) {
	candidate := uc.resolverCandidate(ctx, domain, CanonicalTarget(domain))
	// the resolver reports the origin URL that actually answered
	return uc.accept(candidate, candidate.SourceURL, "resolver")
}

func (uc *RetrieveUseCase) viaRelay(ctx context.Context, relay service.Relay, target string) (*entity.RetrievalResult, error) {
	candidate := uc.relayCandidate(ctx, relay, target)
	// The canonical target is reported even though the relay supplied the bytes
	return uc.accept(candidate, target, relay.Name())
}

// resolverCandidate asks the origin resolver once, within its own budget
func (uc *RetrieveUseCase) resolverCandidate(ctx context.Context, domain, target string) entity.RetrievalCandidate {
	rctx, cancel := context.WithTimeout(ctx, uc.config.ResolverTimeout)
	defer cancel()

	candidate := entity.RetrievalCandidate{SourceURL: target}
	result, err := uc.resolver.Resolve(rctx, domain)
	switch {
	case err == nil:
		if result.FinalURL != "" {
			candidate.SourceURL = result.FinalURL
		}
		candidate.RawBody = result.Content
	case ctx.Err() == nil && errors.Is(rctx.Err(), context.DeadlineExceeded):
		candidate.FetchErr = entity.NewAttemptError(entity.KindTimeout, err)
	case errors.Is(err, entity.ErrNotFound):
		candidate.FetchErr = &entity.AttemptError{Kind: entity.KindHTTPStatus, StatusCode: 404, Err: err}
	default:
		candidate.FetchErr = entity.AsAttemptError(err)
	}
	return candidate
}

// relayCandidate fetches target through relay and unwraps the response
func (uc *RetrieveUseCase) relayCandidate(ctx context.Context, relay service.Relay, target string) entity.RetrievalCandidate {
	candidate := entity.RetrievalCandidate{SourceURL: relay.URL(target)}

	if w, ok := relay.(waiter); ok {
		if err := w.Wait(ctx); err != nil {
			candidate.FetchErr = entity.NewAttemptError(entity.KindNetwork, err)
			return candidate
		}
	}

	raw, err := uc.fetcher.FetchBounded(ctx, candidate.SourceURL, uc.config.RelayTimeout, nil)
	if err != nil {
		candidate.FetchErr = entity.AsAttemptError(err)
		return candidate
	}

	content, err := relay.Unwrap(raw)
	if err != nil {
		candidate.FetchErr = entity.NewAttemptError(entity.KindUnwrapFailed, err)
		return candidate
	}
	candidate.RawBody = content
	return candidate
}

// accept classifies a candidate: its fetch error, an empty body or a
// validator rejection fail the attempt, anything else becomes the result
func (uc *RetrieveUseCase) accept(candidate entity.RetrievalCandidate, finalURL, source string) (*entity.RetrievalResult, error) {
	if candidate.FetchErr != nil {
		return nil, candidate.FetchErr
	}
	if strings.TrimSpace(candidate.RawBody) == "" {
		return nil, entity.NewAttemptError(entity.KindEmptyBody, nil)
	}
	if err := uc.gate(candidate.RawBody); err != nil {
		return nil, err
	}
	return &entity.RetrievalResult{FinalURL: finalURL, Content: candidate.RawBody, Source: source}, nil
}

// gate applies the content validator to a candidate body
func (uc *RetrieveUseCase) gate(content string) error {
	verdict := uc.validator.Verdict(content)
	if verdict.Accepted {
		return nil
	}
	return entity.NewAttemptError(entity.KindValidationRejected, errors.New(verdict.Reason))
}

func (uc *RetrieveUseCase) notifyAttempt(domain string, attempt entity.Attempt) {
	for _, o := range uc.observers {
		o.ObserveAttempt(domain, attempt)
	}
}

func (uc *RetrieveUseCase) notifyRetrieval(domain, outcome, source string, elapsed time.Duration) {
	for _, o := range uc.observers {
		o.ObserveRetrieval(domain, outcome, source, elapsed)
	}
}

// CanonicalTarget is the direct ads.txt URL of a host
func CanonicalTarget(host string) string {
	return fmt.Sprintf("https://%s/ads.txt", host)
}
