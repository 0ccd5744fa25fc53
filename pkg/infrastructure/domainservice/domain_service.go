package domainservice

import (
	"regexp"
	"strings"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
)

var schemePrefix = regexp.MustCompile(`(?i)^https?://`)

// Normalizer implements service.DomainNormalizer
type Normalizer struct{}

var _ service.DomainNormalizer = (*Normalizer)(nil)

// NewNormalizer creates a new input normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize strips scheme, path, query, fragment and a leading www. from
// input and lower-cases the rest. Only an empty result is rejected.
func (n *Normalizer) Normalize(input string) (entity.Domain, error) {
	host := Sanitize(input)
	if host == "" {
		return entity.Domain{}, entity.ErrInvalidInput
	}
	return entity.Domain{Name: host}, nil
}

// Sanitize reduces an address to a bare lower-cased host
func Sanitize(input string) string {
	host := strings.TrimSpace(input)
	host = schemePrefix.ReplaceAllString(host, "")
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	return host
}
