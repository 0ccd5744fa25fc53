package http

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
)

type memoryLog struct {
	mu       sync.Mutex
	messages []*entity.HTTPMessage
}

func (m *memoryLog) WriteAttempt(*entity.AttemptLog) error { return nil }
func (m *memoryLog) Close() error                          { return nil }
func (m *memoryLog) WriteHTTPLog(msg *entity.HTTPMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func TestFetchBounded_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Test"); got != "yes" {
			t.Errorf("X-Test header = %q, want yes", got)
		}
		if got := r.Header.Get("User-Agent"); got != "adstxt-test" {
			t.Errorf("User-Agent = %q, want adstxt-test", got)
		}
		_, _ = w.Write([]byte("example.com, 1, DIRECT\n"))
	}))
	defer srv.Close()

	log := &memoryLog{}
	f := NewFetcher(Config{UserAgent: "adstxt-test", HTTPLog: log})
	body, err := f.FetchBounded(context.Background(), srv.URL, time.Second, http.Header{"X-Test": {"yes"}})
	if err != nil {
		t.Fatalf("FetchBounded() error = %v", err)
	}
	if body != "example.com, 1, DIRECT\n" {
		t.Errorf("body = %q", body)
	}
	if len(log.messages) != 1 || log.messages[0].Response == nil || log.messages[0].Response.StatusCode != 200 {
		t.Errorf("http log = %+v, want one 200 exchange", log.messages)
	}
}

func TestFetchBounded_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   entity.ErrorKind
	}{
		{"not found", http.StatusNotFound, "missing", entity.KindHTTPStatus},
		{"server error", http.StatusInternalServerError, "", entity.KindHTTPStatus},
		{"empty body", http.StatusOK, "", entity.KindEmptyBody},
		{"whitespace body", http.StatusOK, " \n\t ", entity.KindEmptyBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewFetcher(Config{}).FetchBounded(context.Background(), srv.URL, time.Second, nil)
			if got := entity.KindOf(err); got != tt.kind {
				t.Fatalf("KindOf(err) = %v, want %v (err %v)", got, tt.kind, err)
			}
			var ae *entity.AttemptError
			if tt.kind == entity.KindHTTPStatus && errors.As(err, &ae) && ae.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", ae.StatusCode, tt.status)
			}
		})
	}
}

func TestFetchBounded_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewFetcher(Config{}).FetchBounded(context.Background(), srv.URL, 50*time.Millisecond, nil)
	if got := entity.KindOf(err); got != entity.KindTimeout {
		t.Fatalf("KindOf(err) = %v, want %v (err %v)", got, entity.KindTimeout, err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("elapsed = %v, want the attempt cancelled near its deadline", elapsed)
	}
}

func TestFetchBounded_CallerCancelIsNotTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewFetcher(Config{}).FetchBounded(ctx, srv.URL, 5*time.Second, nil)
	if got := entity.KindOf(err); got != entity.KindNetwork {
		t.Errorf("KindOf(err) = %v, want %v", got, entity.KindNetwork)
	}
}

func TestFetchBounded_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewFetcher(Config{}).FetchBounded(context.Background(), url, time.Second, nil)
	if got := entity.KindOf(err); got != entity.KindNetwork {
		t.Errorf("KindOf(err) = %v, want %v", got, entity.KindNetwork)
	}
}

func TestFetchBounded_ContentEncoding(t *testing.T) {
	const payload = "# compressed\nexample.com, pub-1, DIRECT\n"

	tests := []struct {
		name     string
		encoding string
		write    func(w http.ResponseWriter)
	}{
		{"gzip", "gzip", func(w http.ResponseWriter) {
			gz := gzip.NewWriter(w)
			_, _ = gz.Write([]byte(payload))
			_ = gz.Close()
		}},
		{"brotli", "br", func(w http.ResponseWriter) {
			br := brotli.NewWriter(w)
			_, _ = br.Write([]byte(payload))
			_ = br.Close()
		}},
		{"deflate zlib", "deflate", func(w http.ResponseWriter) {
			zw := zlib.NewWriter(w)
			_, _ = zw.Write([]byte(payload))
			_ = zw.Close()
		}},
		{"deflate raw", "deflate", func(w http.ResponseWriter) {
			fw, _ := flate.NewWriter(w, flate.DefaultCompression)
			_, _ = fw.Write([]byte(payload))
			_ = fw.Close()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.Header.Get("Accept-Encoding"), tt.encoding) {
					t.Errorf("Accept-Encoding = %q, want it to offer %s", r.Header.Get("Accept-Encoding"), tt.encoding)
				}
				w.Header().Set("Content-Encoding", tt.encoding)
				tt.write(w)
			}))
			defer srv.Close()

			body, err := NewFetcher(Config{}).FetchBounded(context.Background(), srv.URL, time.Second, nil)
			if err != nil {
				t.Fatalf("FetchBounded() error = %v", err)
			}
			if body != payload {
				t.Errorf("body = %q, want %q", body, payload)
			}
		})
	}
}

func TestFetchBounded_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer srv.Close()

	_, err := NewFetcher(Config{MaxResponseSize: 16}).FetchBounded(context.Background(), srv.URL, time.Second, nil)
	if got := entity.KindOf(err); got != entity.KindNetwork {
		t.Errorf("KindOf(err) = %v, want %v", got, entity.KindNetwork)
	}
}

func TestFetchBounded_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ads.txt", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final/ads.txt", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final/ads.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("CONTACT=ops@example.com"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	log := &memoryLog{}
	body, err := NewFetcher(Config{HTTPLog: log}).FetchBounded(context.Background(), srv.URL+"/ads.txt", time.Second, nil)
	if err != nil {
		t.Fatalf("FetchBounded() error = %v", err)
	}
	if body != "CONTACT=ops@example.com" {
		t.Errorf("body = %q", body)
	}
	if got := log.messages[0].Response.FinalURL; got != srv.URL+"/final/ads.txt" {
		t.Errorf("FinalURL = %q, want %q", got, srv.URL+"/final/ads.txt")
	}
}
