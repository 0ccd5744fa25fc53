package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/relay"
)

// Flag defaults, shared with the config file overlay
const (
	defaultResolverTimeout = 20 * time.Second
	defaultRelayTimeout    = 10 * time.Second
	defaultUpstreamTimeout = 15 * time.Second
	defaultMaxResponseSize = 5 << 20
	defaultUserAgent       = "AdsTxtCrawler/1.0"
)

// Config holds all application configuration
type Config struct {
	Verbose    bool   `short:"v" long:"verbose" env:"ADSTXT_VERBOSE" description:"Enable debug logging"`
	ConfigFile string `short:"c" long:"config" env:"ADSTXT_CONFIG" description:"YAML file with relay definitions and timeouts"`

	Retrieval RetrievalOptions `group:"Retrieval Options"`

	Fetch   FetchCommand   `command:"fetch" description:"Retrieve the ads.txt of one domain and print it"`
	Analyze AnalyzeCommand `command:"analyze" description:"Break a URL into its parts and label it"`
	View    ViewCommand    `command:"view" description:"Interactive ads.txt viewer with search"`
	Batch   BatchCommand   `command:"batch" description:"Retrieve ads.txt for a list of domains"`
	Serve   ServeCommand   `command:"serve" description:"Run the origin resolver HTTP service"`
	Version VersionCommand `command:"version" description:"Print version information"`

	// Relays in fallback order, from the config file or the built-in list
	Relays []relay.Definition

	ctx    context.Context
	logger zerolog.Logger
}

// RetrievalOptions configure one retrieval
type RetrievalOptions struct {
	ResolverURL     string        `long:"resolver-url" env:"ADSTXT_RESOLVER_URL" description:"Base URL of a remote resolver service (fetched in-process when empty)"`
	NoResolver      bool          `long:"no-resolver" description:"Skip the origin resolver and use relays only"`
	ResolverTimeout time.Duration `long:"resolver-timeout" env:"ADSTXT_RESOLVER_TIMEOUT" description:"Budget for the origin resolver" default:"20s"`
	RelayTimeout    time.Duration `long:"relay-timeout" env:"ADSTXT_RELAY_TIMEOUT" description:"Budget for each relay attempt" default:"10s"`
	UpstreamTimeout time.Duration `long:"upstream-timeout" env:"ADSTXT_UPSTREAM_TIMEOUT" description:"Budget for each direct origin fetch" default:"15s"`
	MaxResponseSize int64         `long:"max-response-size" description:"Maximum response body size in bytes" default:"5242880"`
	UserAgent       string        `long:"user-agent" env:"ADSTXT_USER_AGENT" description:"User-Agent for relay requests" default:"AdsTxtCrawler/1.0"`
	RelayRate       int           `long:"relay-rate" env:"ADSTXT_RELAY_RATE" description:"Requests per minute allowed to each relay, 0 for unlimited" default:"0"`
}

// NewConfig creates a configuration with every command bound to it
func NewConfig() *Config {
	cfg := &Config{logger: zerolog.Nop(), ctx: context.Background()}
	cfg.Fetch.config = cfg
	cfg.Analyze.config = cfg
	cfg.View.config = cfg
	cfg.Batch.config = cfg
	cfg.Serve.config = cfg
	cfg.Version.config = cfg
	return cfg
}

// Run parses args and executes the selected command. Global options are
// validated and the config file applied before the command runs.
func Run(ctx context.Context, logger zerolog.Logger, args []string) error {
	cfg := NewConfig()
	cfg.ctx = ctx

	// errors are reported by the caller, help is printed here
	parser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	parser.CommandHandler = func(command flags.Commander, rest []string) error {
		if command == nil {
			return nil
		}
		if cfg.Verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		cfg.logger = logger
		if err := cfg.Prepare(); err != nil {
			return err
		}
		return command.Execute(rest)
	}

	if _, err := parser.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			fmt.Fprintln(os.Stdout, err)
			return nil
		}
		return err
	}
	return nil
}

// Prepare applies the config file and validates the result
func (c *Config) Prepare() error {
	if c.ConfigFile != "" {
		fc, err := LoadFileConfig(c.ConfigFile)
		if err != nil {
			return err
		}
		ApplyFileConfig(c, fc)
	}
	if len(c.Relays) == 0 {
		c.Relays = relay.Defaults()
	}
	return c.Validate()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	r := c.Retrieval
	if r.ResolverTimeout <= 0 {
		return fmt.Errorf("resolver timeout must be > 0, got %s", r.ResolverTimeout)
	}
	if r.RelayTimeout <= 0 {
		return fmt.Errorf("relay timeout must be > 0, got %s", r.RelayTimeout)
	}
	if r.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be > 0, got %s", r.UpstreamTimeout)
	}
	if r.MaxResponseSize <= 0 {
		return fmt.Errorf("max response size must be > 0, got %d", r.MaxResponseSize)
	}
	if r.RelayRate < 0 {
		return fmt.Errorf("relay rate must be >= 0, got %d", r.RelayRate)
	}
	if r.ResolverURL != "" {
		u, err := url.Parse(r.ResolverURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("resolver url must be an absolute http(s) URL, got %q", r.ResolverURL)
		}
	}
	if len(c.Relays) == 0 {
		return errors.New("at least one relay must be configured")
	}
	seen := make(map[string]bool, len(c.Relays))
	for _, d := range c.Relays {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.RelayName] {
			return fmt.Errorf("duplicate relay name %q", d.RelayName)
		}
		seen[d.RelayName] = true
	}
	return nil
}

// ExitError carries the process exit code of a failed command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
