package repository

import (
	"context"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
)

// DomainFilter provides deduplication capabilities
type DomainFilter interface {
	// TestAndAdd reports whether domain was present and adds it
	TestAndAdd(domain string) bool
}

// ResultWriter writes batch results
type ResultWriter interface {
	// Write writes a single result
	Write(result *entity.BatchResult) error
	// Flush ensures all buffered data is written
	Flush() error
	// Close closes the writer
	Close() error
}

// LogWriter writes structured diagnostic logs
type LogWriter interface {
	// WriteAttempt writes one attempt-log entry
	WriteAttempt(entry *entity.AttemptLog) error
	// WriteHTTPLog writes an HTTP request/response log
	WriteHTTPLog(msg *entity.HTTPMessage) error
	// Close closes all log writers
	Close() error
}

// TaskQueue manages batch tasks
type TaskQueue interface {
	// Enqueue adds a task, blocking while the queue is full. It reports false
	// once the queue is closed or ctx is done.
	Enqueue(ctx context.Context, task *entity.Task) bool
	// Dequeue removes and returns a task from the queue
	Dequeue() (*entity.Task, bool)
	// Len returns the current queue length
	Len() int
	// Close closes the queue
	Close()
}

// ResultQueue manages batch results
type ResultQueue interface {
	// Send sends a result to the queue
	Send(result *entity.BatchResult)
	// Receive receives a result from the queue
	Receive() (*entity.BatchResult, bool)
	// Close closes the queue
	Close()
}
