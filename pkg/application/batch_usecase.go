package application

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/repository"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
)

// Retriever runs one retrieval for a normalized domain
type Retriever interface {
	Execute(ctx context.Context, domain entity.Domain) (*entity.RetrievalResult, []entity.Attempt, error)
}

// BatchUseCase retrieves ads.txt for many domains with a pool of workers.
// Each retrieval stays sequential; only different domains run in parallel.
type BatchUseCase struct {
	config BatchConfig

	// Services
	retriever  Retriever
	normalizer service.DomainNormalizer

	// Repositories
	filter       repository.DomainFilter
	taskQueue    repository.TaskQueue
	resultQueue  repository.ResultQueue
	resultWriter repository.ResultWriter
	logWriter    repository.LogWriter

	// State
	metrics          *entity.Metrics
	metricsLock      sync.RWMutex
	workers          []*Worker
	metricsObservers []MetricsObserver
	logger           zerolog.Logger
}

// BatchConfig holds the batch configuration
type BatchConfig struct {
	NumWorkers     int
	UpdateInterval time.Duration
	Logger         zerolog.Logger
}

// MetricsObserver observes metrics changes
type MetricsObserver interface {
	OnMetricsUpdate(metrics *entity.Metrics)
}

// ResultObserver is an optional extension of MetricsObserver notified of
// every finished domain
type ResultObserver interface {
	OnResult(result *entity.BatchResult)
}

// NewBatchUseCase creates a new batch use case
func NewBatchUseCase(
	config BatchConfig,
	retriever Retriever,
	normalizer service.DomainNormalizer,
	filter repository.DomainFilter,
	taskQueue repository.TaskQueue,
	resultQueue repository.ResultQueue,
	resultWriter repository.ResultWriter,
	logWriter repository.LogWriter,
) *BatchUseCase {
	if config.NumWorkers <= 0 {
		config.NumWorkers = 1
	}
	if config.UpdateInterval <= 0 {
		config.UpdateInterval = 500 * time.Millisecond
	}
	return &BatchUseCase{
		config:       config,
		retriever:    retriever,
		normalizer:   normalizer,
		filter:       filter,
		taskQueue:    taskQueue,
		resultQueue:  resultQueue,
		resultWriter: resultWriter,
		logWriter:    logWriter,
		metrics:      &entity.Metrics{TotalWorkers: config.NumWorkers},
		logger:       config.Logger,
	}
}

// RegisterMetricsObserver registers a metrics observer
func (uc *BatchUseCase) RegisterMetricsObserver(observer MetricsObserver) {
	uc.metricsObservers = append(uc.metricsObservers, observer)
}

// notifyMetricsObservers notifies all registered observers
func (uc *BatchUseCase) notifyMetricsObservers() {
	metrics := uc.GetMetrics()
	for _, observer := range uc.metricsObservers {
		observer.OnMetricsUpdate(metrics)
	}
}

// Execute reads one domain per line from input and retrieves each of them.
// Blank lines and # comments are skipped, duplicates after normalization
// are retrieved once. Writers are flushed and closed before it returns.
func (uc *BatchUseCase) Execute(ctx context.Context, input io.Reader) error {
	uc.metricsLock.Lock()
	uc.metrics.StartTime = time.Now()
	uc.workers = make([]*Worker, uc.config.NumWorkers)
	for i := range uc.workers {
		uc.workers[i] = &Worker{
			id:          i,
			useCase:     uc,
			taskQueue:   uc.taskQueue,
			resultQueue: uc.resultQueue,
			retriever:   uc.retriever,
			logWriter:   uc.logWriter,
			logger:      uc.logger.With().Int("worker", i).Logger(),
		}
	}
	uc.metricsLock.Unlock()

	defer uc.close()

	updaterCtx, stopUpdater := context.WithCancel(ctx)
	updaterDone := make(chan struct{})
	go func() {
		defer close(updaterDone)
		uc.updateMetricsPeriodically(updaterCtx)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		uc.flushResults()
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer uc.taskQueue.Close()
		return uc.enqueueInputs(gctx, input)
	})

	for _, worker := range uc.workers {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	err := g.Wait()
	uc.resultQueue.Close()
	<-writerDone
	stopUpdater()
	<-updaterDone
	uc.notifyMetricsObservers()

	if err != nil {
		return err
	}
	return ctx.Err()
}

// enqueueInputs normalizes and de-duplicates input lines into the task queue
func (uc *BatchUseCase) enqueueInputs(ctx context.Context, input io.Reader) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		domain, err := uc.normalizer.Normalize(line)
		if err != nil {
			uc.emit(&entity.BatchResult{Input: line, Error: err.Error(), Timestamp: time.Now()})
			continue
		}

		if uc.filter.TestAndAdd(domain.Name) {
			atomic.AddInt64(&uc.metrics.DuplicateInputs, 1)
			continue
		}

		task := &entity.Task{Domain: domain, Input: line, CreatedAt: time.Now()}
		if !uc.taskQueue.Enqueue(ctx, task) {
			return ctx.Err()
		}
		atomic.AddInt64(&uc.metrics.TasksEnqueued, 1)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// updateMetricsPeriodically periodically updates and notifies observers
func (uc *BatchUseCase) updateMetricsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(uc.config.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uc.notifyMetricsObservers()
		}
	}
}

// flushResults writes results until the result queue is closed
func (uc *BatchUseCase) flushResults() {
	for {
		result, ok := uc.resultQueue.Receive()
		if !ok {
			return
		}
		if err := uc.resultWriter.Write(result); err != nil {
			uc.logger.Warn().Err(err).Str("domain", result.Domain).Msg("failed to write result")
		}
		for _, observer := range uc.metricsObservers {
			if ro, ok := observer.(ResultObserver); ok {
				ro.OnResult(result)
			}
		}
	}
}

// emit sends a result produced outside the workers
func (uc *BatchUseCase) emit(result *entity.BatchResult) {
	atomic.AddInt64(&uc.metrics.TasksProcessed, 1)
	uc.resultQueue.Send(result)
}

func (uc *BatchUseCase) close() {
	if err := uc.resultWriter.Flush(); err != nil {
		uc.logger.Warn().Err(err).Msg("failed to flush results")
	}
	if err := uc.resultWriter.Close(); err != nil {
		uc.logger.Warn().Err(err).Msg("failed to close result writer")
	}
	if uc.logWriter != nil {
		if err := uc.logWriter.Close(); err != nil {
			uc.logger.Warn().Err(err).Msg("failed to close log writer")
		}
	}
}

// GetMetrics returns a snapshot of the current metrics
func (uc *BatchUseCase) GetMetrics() *entity.Metrics {
	uc.metricsLock.RLock()
	defer uc.metricsLock.RUnlock()

	metrics := entity.Metrics{
		TotalWorkers:    uc.metrics.TotalWorkers,
		Attempts:        atomic.LoadInt64(&uc.metrics.Attempts),
		RelayAttempts:   atomic.LoadInt64(&uc.metrics.RelayAttempts),
		ResolverHits:    atomic.LoadInt64(&uc.metrics.ResolverHits),
		RelayHits:       atomic.LoadInt64(&uc.metrics.RelayHits),
		Rejected:        atomic.LoadInt64(&uc.metrics.Rejected),
		Timeouts:        atomic.LoadInt64(&uc.metrics.Timeouts),
		TasksProcessed:  atomic.LoadInt64(&uc.metrics.TasksProcessed),
		TasksEnqueued:   atomic.LoadInt64(&uc.metrics.TasksEnqueued),
		Found:           atomic.LoadInt64(&uc.metrics.Found),
		NotFound:        atomic.LoadInt64(&uc.metrics.NotFound),
		DuplicateInputs: atomic.LoadInt64(&uc.metrics.DuplicateInputs),
		StartTime:       uc.metrics.StartTime,
		LastUpdateTime:  time.Now(),
		QueueLength:     uc.taskQueue.Len(),
	}

	for _, worker := range uc.workers {
		if worker != nil && worker.IsActive() {
			metrics.ActiveWorkers++
			if domain := worker.GetCurrentDomain(); domain != "" {
				metrics.ActiveDomains = append(metrics.ActiveDomains, domain)
			}
		}
	}
	return &metrics
}

// recordAttempts folds one retrieval's attempt log into the counters
func (uc *BatchUseCase) recordAttempts(attempts []entity.Attempt, result *entity.RetrievalResult) {
	total := int64(len(attempts))
	if result != nil {
		total++
	}
	atomic.AddInt64(&uc.metrics.Attempts, total)

	for _, a := range attempts {
		if a.Source != "resolver" {
			atomic.AddInt64(&uc.metrics.RelayAttempts, 1)
		}
		switch a.Kind {
		case entity.KindValidationRejected:
			atomic.AddInt64(&uc.metrics.Rejected, 1)
		case entity.KindTimeout:
			atomic.AddInt64(&uc.metrics.Timeouts, 1)
		}
	}

	switch {
	case result == nil:
		atomic.AddInt64(&uc.metrics.NotFound, 1)
	case result.Source == "resolver":
		atomic.AddInt64(&uc.metrics.Found, 1)
		atomic.AddInt64(&uc.metrics.ResolverHits, 1)
	default:
		atomic.AddInt64(&uc.metrics.Found, 1)
		atomic.AddInt64(&uc.metrics.RelayHits, 1)
		atomic.AddInt64(&uc.metrics.RelayAttempts, 1)
	}
}

func (uc *BatchUseCase) incrementTasksProcessed() {
	atomic.AddInt64(&uc.metrics.TasksProcessed, 1)
}
