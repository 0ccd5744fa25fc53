package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/relay"
)

// FileConfig is the optional configuration file schema.
// JSON files are accepted too since YAML is a superset of JSON.
type FileConfig struct {
	ResolverURL     string `yaml:"resolverUrl" json:"resolverUrl"`
	UserAgent       string `yaml:"userAgent" json:"userAgent"`
	MaxResponseSize int64  `yaml:"maxResponseSize" json:"maxResponseSize"`
	RelayRate       int    `yaml:"relayRate" json:"relayRate"`

	Timeouts struct {
		Resolver time.Duration `yaml:"resolver" json:"resolver"`
		Relay    time.Duration `yaml:"relay" json:"relay"`
		Upstream time.Duration `yaml:"upstream" json:"upstream"`
	} `yaml:"timeouts" json:"timeouts"`

	// Relays replaces the built-in relay list, in priority order
	Relays []relay.Definition `yaml:"relays" json:"relays"`
}

// LoadFileConfig reads a configuration file. Unknown keys are rejected.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &fc, nil
}

// ApplyFileConfig overlays file values onto cfg. A flag wins whenever it was
// moved away from its default.
func ApplyFileConfig(cfg *Config, fc *FileConfig) {
	if cfg == nil || fc == nil {
		return
	}
	r := &cfg.Retrieval

	if r.ResolverURL == "" && fc.ResolverURL != "" {
		r.ResolverURL = fc.ResolverURL
	}
	if (r.UserAgent == "" || r.UserAgent == defaultUserAgent) && fc.UserAgent != "" {
		r.UserAgent = fc.UserAgent
	}
	if (r.MaxResponseSize == 0 || r.MaxResponseSize == defaultMaxResponseSize) && fc.MaxResponseSize > 0 {
		r.MaxResponseSize = fc.MaxResponseSize
	}
	if r.RelayRate == 0 && fc.RelayRate > 0 {
		r.RelayRate = fc.RelayRate
	}
	if (r.ResolverTimeout == 0 || r.ResolverTimeout == defaultResolverTimeout) && fc.Timeouts.Resolver > 0 {
		r.ResolverTimeout = fc.Timeouts.Resolver
	}
	if (r.RelayTimeout == 0 || r.RelayTimeout == defaultRelayTimeout) && fc.Timeouts.Relay > 0 {
		r.RelayTimeout = fc.Timeouts.Relay
	}
	if (r.UpstreamTimeout == 0 || r.UpstreamTimeout == defaultUpstreamTimeout) && fc.Timeouts.Upstream > 0 {
		r.UpstreamTimeout = fc.Timeouts.Upstream
	}
	if len(cfg.Relays) == 0 && len(fc.Relays) > 0 {
		cfg.Relays = fc.Relays
	}
}
