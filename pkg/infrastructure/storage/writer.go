package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/repository"
)

// jsonLines is a buffered JSON-lines stream over one file
type jsonLines struct {
	file    *os.File
	buf     *bufio.Writer
	encoder *json.Encoder
}

func newJSONLines(file *os.File, w io.Writer) *jsonLines {
	buf := bufio.NewWriter(w)
	return &jsonLines{file: file, buf: buf, encoder: json.NewEncoder(buf)}
}

func createJSONLines(filename string) (*jsonLines, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return newJSONLines(file, file), nil
}

func (j *jsonLines) flush() error {
	if err := j.buf.Flush(); err != nil {
		return err
	}
	if j.file == nil {
		return nil
	}
	return j.file.Sync()
}

func (j *jsonLines) close() error {
	err := j.buf.Flush()
	if j.file == nil {
		return err
	}
	return errors.Join(err, j.file.Close())
}

// ResultWriter implements repository.ResultWriter as buffered JSON lines
type ResultWriter struct {
	out *jsonLines
	mu  sync.Mutex
}

// NewResultWriter creates a new result writer. "-" writes to stdout.
func NewResultWriter(filename string) (repository.ResultWriter, error) {
	if filename == "-" {
		return &ResultWriter{out: newJSONLines(nil, os.Stdout)}, nil
	}

	out, err := createJSONLines(filename)
	if err != nil {
		return nil, err
	}
	return &ResultWriter{out: out}, nil
}

// Write buffers a single result
func (w *ResultWriter) Write(result *entity.BatchResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.out.encoder.Encode(result)
}

// Flush writes buffered results and syncs the file
func (w *ResultWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.out.flush()
}

// Close flushes and closes the writer
func (w *ResultWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.out.close()
}

// LogWriter implements repository.LogWriter.
// Either stream may be disabled by passing an empty name.
type LogWriter struct {
	attempts *jsonLines
	http     *jsonLines
	mu       sync.Mutex
}

// NewLogWriter creates a new log writer
func NewLogWriter(attemptLogFile, httpLogFile string) (repository.LogWriter, error) {
	w := &LogWriter{}

	if attemptLogFile != "" {
		out, err := createJSONLines(attemptLogFile)
		if err != nil {
			return nil, err
		}
		w.attempts = out
	}

	if httpLogFile != "" {
		out, err := createJSONLines(httpLogFile)
		if err != nil {
			if w.attempts != nil {
				w.attempts.close()
			}
			return nil, err
		}
		w.http = out
	}

	return w, nil
}

// WriteAttempt buffers one attempt-log entry
func (w *LogWriter) WriteAttempt(entry *entity.AttemptLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.attempts == nil {
		return nil
	}
	return w.attempts.encoder.Encode(entry)
}

// WriteHTTPLog buffers an HTTP request/response log
func (w *LogWriter) WriteHTTPLog(msg *entity.HTTPMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.http == nil {
		return nil
	}
	return w.http.encoder.Encode(msg)
}

// Close flushes and closes all log streams
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	if w.attempts != nil {
		errs = append(errs, w.attempts.close())
	}
	if w.http != nil {
		errs = append(errs, w.http.close())
	}
	return errors.Join(errs...)
}
