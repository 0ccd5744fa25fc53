// Package adstxt classifies text as a genuine ads.txt document or as the
// error page, proxy failure body or bot challenge some hosts return instead.
package adstxt

import (
	"regexp"
	"strings"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
)

// Reason codes reported in a verdict
const (
	ReasonEmpty     = "empty"
	ReasonMarkup    = "markup"
	ReasonDenied    = "denied"
	ReasonNoLines   = "no_lines"
	ReasonMatched   = "matched"
	ReasonLenient   = "lenient"
	ReasonNoPattern = "no_pattern"
)

// lenientMaxLines is the largest file accepted by the comma fallback
const lenientMaxLines = 3

// DenyList holds lower-case substrings that mark a body as markup, an HTTP
// error page or a CDN challenge.
var DenyList = []string{
	// markup
	"<!doctype",
	"<html",
	"<head",
	"<body",
	"<meta",
	"<script",
	"<div",
	"<title",
	"<span",
	"<p>",
	"<?xml",
	"<error",
	"<response",
	// http errors
	"404 not found",
	"page not found",
	"not found",
	"access denied",
	"forbidden",
	"unauthorized",
	"you don't have permission",
	"permission denied",
	"error 404",
	"error 403",
	"error 500",
	"internal server error",
	"bad gateway",
	"service unavailable",
	// challenges and cdn
	"cloudflare",
	"just a moment",
	"checking your browser",
	"enable javascript",
	"cookies are required",
	"reference #",
	"errors.edgesuite.net",
	// relay failures
	`{"error`,
	`{"message`,
	"null",
	"undefined",
}

// AcceptPatterns match a single trimmed line of an ads.txt file
var AcceptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^#`),
	regexp.MustCompile(`(?i)^[a-z0-9.-]+\s*,\s*[a-z0-9_-]+\s*,\s*(DIRECT|RESELLER)`),
	regexp.MustCompile(`(?i)^[a-z0-9.-]+\s*,\s*pub-\d+\s*,\s*(DIRECT|RESELLER)`),
	regexp.MustCompile(`(?i)^CONTACT=`),
	regexp.MustCompile(`(?i)^SUBDOMAIN=`),
	regexp.MustCompile(`(?i)^OWNERDOMAIN=`),
	regexp.MustCompile(`(?i)^MANAGERDOMAIN=`),
	regexp.MustCompile(`(?i)^INVENTORYPARTNERDOMAIN=`),
	regexp.MustCompile(`(?i)^VARIABLE=`),
	regexp.MustCompile(`(?i)^placeholder`),
}

// Validator is the ads.txt content classifier. The zero value is not usable,
// use NewValidator.
type Validator struct {
	deny   []string
	accept []*regexp.Regexp
}

var _ service.ContentValidator = (*Validator)(nil)

// NewValidator creates a validator with the built-in deny list and patterns
func NewValidator() *Validator {
	return &Validator{
		deny:   DenyList,
		accept: AcceptPatterns,
	}
}

// Classify reports whether text looks like an ads.txt file
func (v *Validator) Classify(text string) bool {
	return v.Verdict(text).Accepted
}

// Verdict classifies text and explains the decision
func (v *Validator) Verdict(text string) service.Verdict {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return reject(ReasonEmpty)
	}
	if strings.HasPrefix(lower, "<") {
		return reject(ReasonMarkup)
	}
	for _, indicator := range v.deny {
		if strings.Contains(lower, indicator) {
			return reject(ReasonDenied + ": " + indicator)
		}
	}

	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return reject(ReasonNoLines)
	}

	for _, line := range lines {
		if v.matches(line) {
			return service.Verdict{Accepted: true, Reason: ReasonMatched}
		}
	}

	if len(lines) <= lenientMaxLines {
		for _, line := range lines {
			if strings.Contains(line, ",") && !strings.HasPrefix(line, "#") {
				return service.Verdict{Accepted: true, Reason: ReasonLenient}
			}
		}
	}
	return reject(ReasonNoPattern)
}

func (v *Validator) matches(line string) bool {
	for _, pattern := range v.accept {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// nonEmptyLines splits on newlines and drops blank lines, trimming each line
func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// CountLines returns the number of non-empty lines in an ads.txt body
func CountLines(text string) int {
	return len(nonEmptyLines(text))
}

func reject(reason string) service.Verdict {
	return service.Verdict{Accepted: false, Reason: reason}
}
