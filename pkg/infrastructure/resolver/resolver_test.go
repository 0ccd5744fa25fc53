package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/adstxt"
	infrahttp "github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/http"
)

type scriptedFetcher struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
	headers   []http.Header
}

func (f *scriptedFetcher) FetchBounded(ctx context.Context, url string, timeout time.Duration, headers http.Header) (string, error) {
	f.calls = append(f.calls, url)
	f.headers = append(f.headers, headers)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	if body, ok := f.responses[url]; ok {
		return body, nil
	}
	return "", &entity.AttemptError{Kind: entity.KindHTTPStatus, StatusCode: http.StatusNotFound}
}

func TestTargets(t *testing.T) {
	expected := []string{
		"https://example.com/ads.txt",
		"https://www.example.com/ads.txt",
		"http://example.com/ads.txt",
		"http://www.example.com/ads.txt",
	}
	got := Targets("example.com")
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Targets()[%d] = %q, want %q", i, got[i], expected[i])
		}
	}
}

func TestDirect_FirstValidTargetWins(t *testing.T) {
	f := &scriptedFetcher{
		responses: map[string]string{
			"https://www.example.com/ads.txt": "<!DOCTYPE html><html>Not Found</html>",
			"http://example.com/ads.txt":      "example.com, pub-1, DIRECT",
			"http://www.example.com/ads.txt":  "never.example, 2, DIRECT",
		},
		errs: map[string]error{
			"https://example.com/ads.txt": entity.NewAttemptError(entity.KindTimeout, context.DeadlineExceeded),
		},
	}

	d := NewDirect(f, adstxt.NewValidator(), DirectConfig{})
	result, err := d.Resolve(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.FinalURL != "http://example.com/ads.txt" {
		t.Errorf("FinalURL = %q, want http://example.com/ads.txt", result.FinalURL)
	}
	if result.Source != SourceName {
		t.Errorf("Source = %q, want %q", result.Source, SourceName)
	}
	if len(f.calls) != 3 {
		t.Errorf("calls = %d, want 3", len(f.calls))
	}
	if got := f.headers[0].Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
}

func TestDirect_NotFound(t *testing.T) {
	f := &scriptedFetcher{}
	d := NewDirect(f, adstxt.NewValidator(), DirectConfig{})

	_, err := d.Resolve(context.Background(), "missing.example")
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
	}
	var nf *entity.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Resolve() error is %T, want *entity.NotFoundError", err)
	}
	if len(nf.Attempts) != 4 {
		t.Errorf("len(Attempts) = %d, want 4", len(nf.Attempts))
	}
	if nf.Attempts[0].StatusCode != http.StatusNotFound {
		t.Errorf("Attempts[0].StatusCode = %d, want 404", nf.Attempts[0].StatusCode)
	}
}

func TestDirect_CallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDirect(&scriptedFetcher{}, adstxt.NewValidator(), DirectConfig{})
	if _, err := d.Resolve(ctx, "example.com"); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
}

func TestRemote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/resolve", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("domain") {
		case "example.com":
			_, _ = w.Write([]byte(`{"success":true,"url":"https://example.com/ads.txt","content":"example.com, 1, DIRECT"}`))
		case "broken.example":
			_, _ = w.Write([]byte(`not json`))
		case "empty.example":
			_, _ = w.Write([]byte(`{"success":false,"error":"upstream empty"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"No ads.txt found for this domain"}`))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewRemote(infrahttp.NewFetcher(infrahttp.Config{}), srv.URL+"/", time.Second)

	t.Run("success", func(t *testing.T) {
		result, err := r.Resolve(context.Background(), "example.com")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if result.FinalURL != "https://example.com/ads.txt" || result.Content != "example.com, 1, DIRECT" {
			t.Errorf("Resolve() = %+v", result)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "missing.example")
		if !errors.Is(err, entity.ErrNotFound) {
			t.Errorf("Resolve() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("not json", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "broken.example")
		if got := entity.KindOf(err); got != entity.KindUnwrapFailed {
			t.Errorf("KindOf(err) = %v, want %v", got, entity.KindUnwrapFailed)
		}
	})

	t.Run("unsuccessful", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "empty.example")
		if got := entity.KindOf(err); got != entity.KindEmptyBody {
			t.Errorf("KindOf(err) = %v, want %v", got, entity.KindEmptyBody)
		}
	})
}

func TestRemote_Endpoint(t *testing.T) {
	r := NewRemote(nil, "http://localhost:8080/", 0)
	if got := r.Endpoint("a b.com"); got != "http://localhost:8080/resolve?domain=a+b.com" {
		t.Errorf("Endpoint() = %q", got)
	}
}
