package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/application"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/repository"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/adstxt"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/domainservice"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/http"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/metrics"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/relay"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/resolver"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/storage"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/interface/server"
)

// Assembler assembles all components for the application
type Assembler struct {
	config    *Config
	logger    zerolog.Logger
	validator *adstxt.Validator
	collector *metrics.Collector
}

// NewAssembler creates a new assembler logging through the configured logger
func NewAssembler(config *Config) *Assembler {
	return &Assembler{
		config:    config,
		logger:    config.logger,
		validator: adstxt.NewValidator(),
	}
}

// WithLogger replaces the logger handed to assembled components
func (a *Assembler) WithLogger(logger zerolog.Logger) *Assembler {
	a.logger = logger
	return a
}

// Collector returns the shared Prometheus collector
func (a *Assembler) Collector() *metrics.Collector {
	if a.collector == nil {
		a.collector = metrics.NewCollector()
	}
	return a.collector
}

// AssembleFetcher creates the bounded fetcher. httpLog may be nil.
func (a *Assembler) AssembleFetcher(httpLog repository.LogWriter) *http.Fetcher {
	return http.NewFetcher(http.Config{
		MaxResponseSize: a.config.Retrieval.MaxResponseSize,
		UserAgent:       a.config.Retrieval.UserAgent,
		HTTPLog:         httpLog,
	})
}

// AssembleDirectResolver creates the in-process origin resolver
func (a *Assembler) AssembleDirectResolver(fetcher service.BoundedFetcher) *resolver.Direct {
	return resolver.NewDirect(fetcher, a.validator, resolver.DirectConfig{
		UpstreamTimeout: a.config.Retrieval.UpstreamTimeout,
		Logger:          a.logger.With().Str("component", "resolver").Logger(),
	})
}

// AssembleResolver picks the origin resolver from the configuration.
// It returns nil when the resolver stage is disabled.
func (a *Assembler) AssembleResolver(fetcher service.BoundedFetcher) service.OriginResolver {
	opts := a.config.Retrieval
	switch {
	case opts.NoResolver:
		return nil
	case opts.ResolverURL != "":
		return resolver.NewRemote(fetcher, opts.ResolverURL, opts.ResolverTimeout)
	default:
		return a.AssembleDirectResolver(fetcher)
	}
}

// AssembleRelays returns the configured relays, each behind its own limiter
func (a *Assembler) AssembleRelays() []service.Relay {
	return relay.LimitAll(relay.AsRelays(a.config.Relays), a.config.Retrieval.RelayRate, time.Minute)
}

// AssembleRetrieveUseCase assembles the retrieval orchestrator
func (a *Assembler) AssembleRetrieveUseCase(httpLog repository.LogWriter) *application.RetrieveUseCase {
	fetcher := a.AssembleFetcher(httpLog)

	useCase := application.NewRetrieveUseCase(
		application.RetrieveConfig{
			ResolverTimeout: a.config.Retrieval.ResolverTimeout,
			RelayTimeout:    a.config.Retrieval.RelayTimeout,
			Logger:          a.logger.With().Str("component", "retrieve").Logger(),
		},
		domainservice.NewNormalizer(),
		a.AssembleResolver(fetcher),
		a.AssembleRelays(),
		fetcher,
		a.validator,
	)
	useCase.RegisterObserver(a.Collector())
	return useCase
}

// AssembleBatchUseCase assembles the batch use case with all dependencies
func (a *Assembler) AssembleBatchUseCase(opts *BatchCommand) (*application.BatchUseCase, error) {
	resultWriter, err := storage.NewResultWriter(opts.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create result writer: %w", err)
	}

	logWriter, err := storage.NewLogWriter(opts.AttemptLogFile, opts.HTTPLogFile)
	if err != nil {
		resultWriter.Close()
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}

	retriever := a.AssembleRetrieveUseCase(logWriter)

	filter := storage.NewBloomFilter(storage.Config{
		Size:              uint(opts.BloomFilterSize),
		FalsePositiveRate: opts.BloomFilterFP,
	})

	useCase := application.NewBatchUseCase(
		application.BatchConfig{
			NumWorkers: opts.NumWorkers,
			Logger:     a.logger.With().Str("component", "batch").Logger(),
		},
		retriever,
		domainservice.NewNormalizer(),
		filter,
		storage.NewTaskQueue(opts.QueueSize),
		storage.NewResultQueue(opts.QueueSize),
		resultWriter,
		logWriter,
	)
	useCase.RegisterMetricsObserver(a.Collector())
	return useCase, nil
}

// AssembleServer assembles the resolver HTTP service. The service always
// resolves in-process, whatever --resolver-url says.
func (a *Assembler) AssembleServer() *server.Server {
	fetcher := a.AssembleFetcher(nil)
	return server.New(server.Config{
		Resolver: a.AssembleDirectResolver(fetcher),
		Analyzer: domainservice.NewAnalyzer(),
		Metrics:  a.Collector(),
		Logger:   a.logger.With().Str("component", "server").Logger(),
	})
}
