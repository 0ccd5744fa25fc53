package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
)

// User-facing messages. The attempt log never reaches the user.
const (
	NotFoundMessage     = "No ads.txt found for this domain"
	FailureMessage      = "Failed to extract ads.txt"
	EmptyInputMessage   = "Please enter a website URL to extract ads.txt"
	InvalidInputMessage = "Invalid URL. Please enter a valid domain."
)

// ErrorMessage maps a retrieval error to the message shown to the user.
// Cancellation is silent.
func ErrorMessage(err error) string {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, entity.ErrInvalidInput):
		return InvalidInputMessage
	case errors.Is(err, entity.ErrNotFound):
		return NotFoundMessage
	default:
		return FailureMessage
	}
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteContent writes the body of a result, newline terminated
func WriteContent(w io.Writer, result *entity.RetrievalResult) error {
	content := result.Content
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	_, err := io.WriteString(w, content)
	return err
}

// WriteAnalysis renders a URL analysis as an aligned table
func WriteAnalysis(w io.Writer, a *entity.URLAnalysis) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"URL", a.OriginalURL},
		{"Domain", a.Domain},
		{"Full domain", a.FullDomain},
		{"Protocol", a.Protocol},
		{"TLD", a.TLD},
		{"HTTPS", fmt.Sprintf("%t", a.IsHTTPS)},
		{"Security", a.SecurityRating},
		{"Domain age", a.DomainAge},
		{"Domain type", a.DomainType},
		{"Subdomain", a.Subdomain},
		{"Path", a.Path},
		{"Query", a.QueryParams},
		{"Fragment", a.Fragment},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", a.Summary)
	return err
}
