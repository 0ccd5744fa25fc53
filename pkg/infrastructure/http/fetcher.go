package http

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/repository"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
)

// DefaultMaxResponseSize caps the body read from any single response
const DefaultMaxResponseSize = 5 * 1024 * 1024

// Fetcher implements service.BoundedFetcher
type Fetcher struct {
	client          *http.Client
	maxResponseSize int64
	userAgent       string
	httpLog         repository.LogWriter
}

var _ service.BoundedFetcher = (*Fetcher)(nil)

// Config holds HTTP fetcher configuration
type Config struct {
	MaxResponseSize int64
	MaxRedirects    int
	UserAgent       string
	// HTTPLog receives one record per exchange when set
	HTTPLog repository.LogWriter
	// Transport overrides the default transport, mainly for tests
	Transport http.RoundTripper
}

// NewFetcher creates a new HTTP fetcher
func NewFetcher(config Config) *Fetcher {
	if config.MaxResponseSize <= 0 {
		config.MaxResponseSize = DefaultMaxResponseSize
	}
	if config.MaxRedirects <= 0 {
		config.MaxRedirects = 10
	}
	maxRedirects := config.MaxRedirects

	return &Fetcher{
		client: &http.Client{
			Transport: config.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		maxResponseSize: config.MaxResponseSize,
		userAgent:       config.UserAgent,
		httpLog:         config.HTTPLog,
	}
}

// FetchBounded performs one GET of url that is cancelled exactly when timeout
// elapses. Failures are reported as *entity.AttemptError.
func (f *Fetcher) FetchBounded(ctx context.Context, url string, timeout time.Duration, headers http.Header) (string, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", entity.NewAttemptError(entity.KindNetwork, err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, values := range headers {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	httpMsg := &entity.HTTPMessage{
		Request: &entity.HTTPRequest{
			Method: req.Method,
			URL:    req.URL.String(),
			Header: flatten(req.Header),
		},
	}
	defer f.record(httpMsg)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", f.classify(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()

	httpMsg.Response = &entity.HTTPResponse{
		Proto:         resp.Proto,
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Header:        flatten(resp.Header),
		ContentLength: resp.ContentLength,
		FinalURL:      resp.Request.URL.String(),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &entity.AttemptError{Kind: entity.KindHTTPStatus, StatusCode: resp.StatusCode}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return "", f.classify(ctx, attemptCtx, err)
	}
	if strings.TrimSpace(body) == "" {
		return "", entity.NewAttemptError(entity.KindEmptyBody, nil)
	}
	return body, nil
}

// classify separates our own deadline from every other transport failure
func (f *Fetcher) classify(parent, attemptCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return entity.NewAttemptError(entity.KindTimeout, err)
	}
	return entity.NewAttemptError(entity.KindNetwork, err)
}

func (f *Fetcher) readBody(resp *http.Response) (string, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		rc, err := deflateReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("deflate decode: %w", err)
		}
		defer rc.Close()
		reader = rc
	}

	// Limit response size
	body, err := io.ReadAll(io.LimitReader(reader, f.maxResponseSize+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxResponseSize {
		return "", fmt.Errorf("response body exceeds limit of %d bytes", f.maxResponseSize)
	}
	return string(body), nil
}

// deflateReader decodes HTTP deflate, which is zlib-wrapped, and falls back
// to raw DEFLATE for servers that omit the zlib header
func deflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header[0], header[1]) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && cmf>>4 <= 7 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

func (f *Fetcher) record(msg *entity.HTTPMessage) {
	if f.httpLog == nil {
		return
	}
	_ = f.httpLog.WriteHTTPLog(msg)
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[key] = strings.Join(values, ", ")
	}
	return out
}
