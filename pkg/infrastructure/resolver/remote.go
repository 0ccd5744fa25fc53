package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
)

// DefaultRemoteTimeout bounds the whole call to a remote resolver service
const DefaultRemoteTimeout = 20 * time.Second

// Remote calls a resolver service over HTTP: GET {base}/resolve?domain=
type Remote struct {
	fetcher service.BoundedFetcher
	base    string
	timeout time.Duration
}

var _ service.OriginResolver = (*Remote)(nil)

// NewRemote creates a client for the resolver service at base
func NewRemote(fetcher service.BoundedFetcher, base string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &Remote{
		fetcher: fetcher,
		base:    strings.TrimRight(base, "/"),
		timeout: timeout,
	}
}

// Endpoint returns the request URL for domain
func (r *Remote) Endpoint(domain string) string {
	return r.base + "/resolve?domain=" + url.QueryEscape(domain)
}

// Resolve implements service.OriginResolver
func (r *Remote) Resolve(ctx context.Context, domain string) (*entity.RetrievalResult, error) {
	endpoint := r.Endpoint(domain)
	headers := http.Header{"Accept": {"application/json"}}

	body, err := r.fetcher.FetchBounded(ctx, endpoint, r.timeout, headers)
	if err != nil {
		var ae *entity.AttemptError
		if errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound {
			return nil, &entity.NotFoundError{Domain: domain}
		}
		return nil, err
	}

	if !gjson.Valid(body) {
		return nil, entity.NewAttemptError(entity.KindUnwrapFailed, fmt.Errorf("resolver returned non-JSON body"))
	}
	parsed := gjson.Parse(body)
	content := parsed.Get("content").String()
	if !parsed.Get("success").Bool() || content == "" {
		msg := parsed.Get("error").String()
		if msg == "" {
			msg = "no content returned"
		}
		return nil, entity.NewAttemptError(entity.KindEmptyBody, errors.New(msg))
	}

	return &entity.RetrievalResult{
		FinalURL: parsed.Get("url").String(),
		Content:  content,
		Source:   SourceName,
	}, nil
}
