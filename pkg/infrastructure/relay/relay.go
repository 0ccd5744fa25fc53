// Package relay holds the public CORS relay definitions used as fallbacks
// when the origin resolver fails.
package relay

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/service"
)

// Placeholder is replaced by the component-escaped target URL in a template
const Placeholder = "{url}"

var (
	// ErrNotJSON is returned when an enveloped relay answers with something else
	ErrNotJSON = errors.New("relay response is not JSON")
	// ErrMissingField is returned when the envelope lacks the body field
	ErrMissingField = errors.New("relay envelope has no body field")
)

// Definition is a relay described by configuration.
// Template must contain Placeholder. Envelope is a gjson path to the body
// inside a JSON response; an empty Envelope means the relay returns the
// target body verbatim.
type Definition struct {
	RelayName string `yaml:"name" json:"name"`
	Template  string `yaml:"template" json:"template"`
	Envelope  string `yaml:"envelope,omitempty" json:"envelope,omitempty"`
}

var _ service.Relay = Definition{}

// Name implements service.Relay
func (d Definition) Name() string {
	return d.RelayName
}

// URL implements service.Relay
func (d Definition) URL(target string) string {
	return strings.ReplaceAll(d.Template, Placeholder, escapeComponent(target))
}

// escapeComponent escapes a whole URL for use inside another URL's query,
// spaces as %20 so relays that decode with path rules see the same target
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Unwrap implements service.Relay
func (d Definition) Unwrap(raw string) (string, error) {
	if d.Envelope == "" {
		return raw, nil
	}
	if !gjson.Valid(raw) {
		return "", ErrNotJSON
	}
	field := gjson.Get(raw, d.Envelope)
	if !field.Exists() || field.Type == gjson.Null {
		return "", fmt.Errorf("%w: %s", ErrMissingField, d.Envelope)
	}
	return field.String(), nil
}

// Validate checks that the definition can build relay URLs
func (d Definition) Validate() error {
	if d.RelayName == "" {
		return fmt.Errorf("relay name is required")
	}
	if !strings.Contains(d.Template, Placeholder) {
		return fmt.Errorf("relay %s: template must contain %s", d.RelayName, Placeholder)
	}
	u, err := url.Parse(strings.ReplaceAll(d.Template, Placeholder, "x"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("relay %s: template is not an http(s) URL", d.RelayName)
	}
	return nil
}

// Defaults returns the built-in relays in priority order
func Defaults() []Definition {
	return []Definition{
		{RelayName: "allorigins-json", Template: "https://api.allorigins.win/get?url={url}", Envelope: "contents"},
		{RelayName: "allorigins-raw", Template: "https://api.allorigins.win/raw?url={url}"},
		{RelayName: "corsproxy", Template: "https://corsproxy.io/?{url}"},
	}
}

// AsRelays converts definitions to the service interface, preserving order
func AsRelays(defs []Definition) []service.Relay {
	relays := make([]service.Relay, len(defs))
	for i, d := range defs {
		relays[i] = d
	}
	return relays
}
