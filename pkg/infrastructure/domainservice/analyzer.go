package domainservice

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
)

// DomainTypes maps a top-level label to its display category
var DomainTypes = map[string]string{
	"com": "Commercial",
	"org": "Organization",
	"net": "Network",
	"edu": "Educational",
	"gov": "Government",
	"mil": "Military",
	"io":  "Tech/Startup",
	"co":  "Company",
	"app": "Application",
	"dev": "Developer",
	"ai":  "Artificial Intelligence",
}

// Ages are the mock domain age buckets
var Ages = []string{"< 1 year", "1-2 years", "2-5 years", "5-10 years", "10+ years"}

const none = "None"

// Analyzer implements service.URLAnalyzer.
// Every label it produces is cosmetic: no WHOIS, certificate or DNS lookup
// happens here.
type Analyzer struct{}

var _ service.URLAnalyzer = (*Analyzer)(nil)

// NewAnalyzer creates a URL analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze parses input as a website address and derives the display fields
func (a *Analyzer) Analyze(input string) (*entity.URLAnalysis, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return nil, entity.ErrInvalidInput
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: invalid URL format", entity.ErrInvalidInput)
	}

	host := strings.ToLower(u.Hostname())
	labels := strings.Split(host, ".")
	tld := labels[len(labels)-1]
	domain, subdomain := splitHost(host)

	isHTTPS := u.Scheme == "https"
	analysis := &entity.URLAnalysis{
		OriginalURL:    u.String(),
		Domain:         domain,
		FullDomain:     host,
		Protocol:       u.Scheme,
		TLD:            "." + tld,
		IsHTTPS:        isHTTPS,
		SecurityRating: SecurityRating(SecurityScore(isHTTPS, tld, host, domain, u.RawQuery != "")),
		DomainAge:      Ages[min(len(domain)%len(Ages), len(Ages)-1)],
		DomainType:     domainType(tld),
		Subdomain:      subdomain,
		Path:           u.EscapedPath(),
		QueryParams:    orNone(u.RawQuery),
		Fragment:       orNone(u.Fragment),
	}
	if analysis.Path == "" {
		analysis.Path = "/"
	}
	if analysis.Subdomain == "" {
		analysis.Subdomain = none
		if strings.HasPrefix(host, "www.") {
			analysis.Subdomain = "www"
		}
	}
	analysis.Summary = Summary(analysis)
	return analysis, nil
}

// splitHost returns the registrable label and the subdomain of host using
// the public suffix list
func splitHost(host string) (domain, subdomain string) {
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, ""
	}
	suffix, _ := publicsuffix.PublicSuffix(host)
	domain = strings.TrimSuffix(registrable, "."+suffix)
	subdomain = strings.TrimSuffix(strings.TrimSuffix(host, registrable), ".")
	return domain, subdomain
}

// SecurityScore is the cosmetic score behind the security rating
func SecurityScore(isHTTPS bool, tld, host, domain string, hasQuery bool) int {
	score := 0
	if isHTTPS {
		score += 50
	}
	switch tld {
	case "gov", "edu", "mil":
		score += 20
	}
	if !strings.Contains(host, "-") {
		score += 10
	}
	if len(domain) > 3 {
		score += 10
	}
	if !hasQuery {
		score += 10
	}
	return score
}

// SecurityRating buckets a score into High, Medium or Low
func SecurityRating(score int) string {
	switch {
	case score >= 70:
		return "High"
	case score >= 40:
		return "Medium"
	default:
		return "Low"
	}
}

// Summary renders the one-paragraph description of an analysis
func Summary(a *entity.URLAnalysis) string {
	encryption := "Warning: The connection is not encrypted."
	if a.IsHTTPS {
		encryption = "The connection is encrypted and secure."
	}
	return strings.Join([]string{
		fmt.Sprintf("The website %q is a %s domain", a.FullDomain, strings.ToLower(a.DomainType)),
		fmt.Sprintf("using the %s protocol.", strings.ToUpper(a.Protocol)),
		encryption,
		fmt.Sprintf("The domain has a %s security rating", strings.ToLower(a.SecurityRating)),
		fmt.Sprintf("and appears to be %s old.", a.DomainAge),
	}, " ")
}

func domainType(tld string) string {
	if t, ok := DomainTypes[tld]; ok {
		return t
	}
	return "Generic"
}

func orNone(s string) string {
	if s == "" {
		return none
	}
	return s
}
