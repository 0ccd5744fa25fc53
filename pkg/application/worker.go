package application

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/repository"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/adstxt"
)

// Worker processes batch tasks one at a time
type Worker struct {
	id          int
	useCase     *BatchUseCase
	taskQueue   repository.TaskQueue
	resultQueue repository.ResultQueue
	retriever   Retriever
	logWriter   repository.LogWriter
	logger      zerolog.Logger

	currentDomain atomic.Value // stores string
	isActive      atomic.Bool
}

// Run processes tasks until the queue is drained or ctx is done
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		task, ok := w.taskQueue.Dequeue()
		if !ok {
			return nil
		}

		w.processTask(ctx, task)
	}
}

// IsActive returns whether the worker is currently processing a task
func (w *Worker) IsActive() bool {
	return w.isActive.Load()
}

// GetCurrentDomain returns the domain currently being processed
func (w *Worker) GetCurrentDomain() string {
	if v := w.currentDomain.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// processTask retrieves one domain and emits its result
func (w *Worker) processTask(ctx context.Context, task *entity.Task) {
	w.isActive.Store(true)
	w.currentDomain.Store(task.Domain.Name)
	defer func() {
		w.isActive.Store(false)
		w.currentDomain.Store("")
	}()

	result, attempts, err := w.retriever.Execute(ctx, task.Domain)
	if err != nil {
		// cancelled mid-retrieval, nothing worth reporting
		w.logger.Debug().Err(err).Str("domain", task.Domain.Name).Msg("retrieval aborted")
		return
	}

	w.writeAttempts(task.Domain.Name, attempts)
	w.useCase.recordAttempts(attempts, result)
	w.useCase.incrementTasksProcessed()

	batchResult := &entity.BatchResult{
		Domain:    task.Domain.Name,
		Input:     task.Input,
		Attempts:  len(attempts),
		Timestamp: time.Now(),
	}
	if result != nil {
		batchResult.Found = true
		batchResult.URL = result.FinalURL
		batchResult.Source = result.Source
		batchResult.Lines = adstxt.CountLines(result.Content)
		batchResult.Attempts++
	} else {
		batchResult.Error = entity.ErrNotFound.Error()
	}

	w.resultQueue.Send(batchResult)
}

// writeAttempts appends the attempt log of one retrieval to the log file
func (w *Worker) writeAttempts(domain string, attempts []entity.Attempt) {
	if w.logWriter == nil {
		return
	}
	for _, a := range attempts {
		if err := w.logWriter.WriteAttempt(&entity.AttemptLog{Domain: domain, Attempt: a}); err != nil {
			w.logger.Warn().Err(err).Msg("failed to write attempt log")
			return
		}
	}
}
