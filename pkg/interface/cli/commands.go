package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/application"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/common"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/domainservice"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/interface/presenter"
)

// Exit codes of the fetch command
const (
	ExitInvalidInput = 1
	ExitNotFound     = 2
)

// FetchCommand retrieves one ads.txt
type FetchCommand struct {
	JSON bool `long:"json" description:"Print a JSON record instead of the raw body"`
	Args struct {
		Domain string `positional-arg-name:"domain" description:"Domain or URL to retrieve" required:"yes"`
	} `positional-args:"yes"`

	out    io.Writer
	config *Config
}

// Execute implements flags.Commander
func (c *FetchCommand) Execute(_ []string) error {
	useCase := NewAssembler(c.config).AssembleRetrieveUseCase(nil)

	result, err := useCase.Retrieve(c.config.ctx, c.Args.Domain)
	switch {
	case errors.Is(err, entity.ErrInvalidInput):
		return &ExitError{Code: ExitInvalidInput, Err: err}
	case errors.Is(err, entity.ErrNotFound):
		return &ExitError{Code: ExitNotFound, Err: errors.New(presenter.NotFoundMessage)}
	case err != nil:
		return err
	}

	out := writerOr(c.out, os.Stdout)
	if c.JSON {
		return presenter.WriteJSON(out, result)
	}
	return presenter.WriteContent(out, result)
}

// AnalyzeCommand prints the display-only URL analysis
type AnalyzeCommand struct {
	JSON bool `long:"json" description:"Print the analysis as JSON"`
	Args struct {
		URL string `positional-arg-name:"url" description:"URL or host to analyze" required:"yes"`
	} `positional-args:"yes"`

	out    io.Writer
	config *Config
}

// Execute implements flags.Commander
func (c *AnalyzeCommand) Execute(_ []string) error {
	analysis, err := domainservice.NewAnalyzer().Analyze(c.Args.URL)
	if err != nil {
		return &ExitError{Code: ExitInvalidInput, Err: err}
	}

	out := writerOr(c.out, os.Stdout)
	if c.JSON {
		return presenter.WriteJSON(out, analysis)
	}
	return presenter.WriteAnalysis(out, analysis)
}

// ViewCommand runs the interactive viewer
type ViewCommand struct {
	LogFile string `long:"log-file" env:"ADSTXT_LOG_FILE" description:"Write logs to this file while the viewer runs (discarded when empty)"`
	Args    struct {
		Domain string `positional-arg-name:"domain" description:"Domain to retrieve on start"`
	} `positional-args:"yes"`

	config *Config
}

// Execute implements flags.Commander
func (c *ViewCommand) Execute(_ []string) error {
	useCase, closeLog, err := c.assemble()
	if err != nil {
		return err
	}
	defer closeLog()

	viewer := presenter.NewViewer(c.config.ctx, useCase.Retrieve)
	viewer.SetDomain(c.Args.Domain)

	p := tea.NewProgram(viewer, tea.WithAltScreen(), tea.WithContext(c.config.ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

// assemble builds the use case with a logger that stays off the terminal
func (c *ViewCommand) assemble() (*application.RetrieveUseCase, func(), error) {
	logger, closeLog, err := screenLogger(c.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return NewAssembler(c.config).WithLogger(logger).AssembleRetrieveUseCase(nil), closeLog, nil
}

// BatchCommand retrieves ads.txt for many domains
type BatchCommand struct {
	InputFile      string `short:"i" long:"input" description:"Input file with domains (one per line)" default:"-"`
	OutputFile     string `short:"o" long:"output" description:"Output file for results" default:"result.jsonl"`
	AttemptLogFile string `long:"attempt-log" description:"Failed attempt log file (disabled when empty)" default:"attempts.jsonl"`
	HTTPLogFile    string `long:"http-log" description:"HTTP request/response log file (disabled when empty)"`

	NumWorkers int `long:"workers" description:"Number of concurrent workers" default:"8"`
	QueueSize  int `long:"queue-size" description:"Size of task queue" default:"1000"`

	BloomFilterSize uint64  `long:"bloom-size" description:"Bloom filter size (number of expected domains)" default:"100000"`
	BloomFilterFP   float64 `long:"bloom-fp" description:"Bloom filter false positive rate" default:"0.001"`

	ShowDashboard bool   `long:"dashboard" description:"Show interactive TUI dashboard"`
	LogFile       string `long:"log-file" env:"ADSTXT_LOG_FILE" description:"Write logs to this file while the dashboard runs (discarded when empty)"`
	NoProgress    bool   `long:"no-progress" description:"Disable progress bars"`
	MetricsAddr   string `long:"metrics-addr" env:"ADSTXT_METRICS_ADDR" description:"Expose Prometheus metrics on this address"`

	config *Config
}

// Validate validates the batch options
func (c *BatchCommand) Validate() error {
	if c.NumWorkers <= 0 {
		return fmt.Errorf("number of workers must be > 0, got %d", c.NumWorkers)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be > 0, got %d", c.QueueSize)
	}
	if c.BloomFilterSize == 0 {
		return fmt.Errorf("bloom filter size must be > 0")
	}
	if c.BloomFilterFP <= 0 || c.BloomFilterFP >= 1 {
		return fmt.Errorf("bloom filter false positive rate must be between 0 and 1, got %f", c.BloomFilterFP)
	}
	return nil
}

// Execute implements flags.Commander
func (c *BatchCommand) Execute(_ []string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	input, closeInput, err := openInput(c.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer closeInput()

	logger := c.config.logger
	if c.ShowDashboard {
		var closeLog func()
		logger, closeLog, err = screenLogger(c.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	assembler := NewAssembler(c.config).WithLogger(logger)
	useCase, err := assembler.AssembleBatchUseCase(c)
	if err != nil {
		return err
	}

	if c.MetricsAddr != "" {
		go func() {
			if err := assembler.Collector().Serve(c.MetricsAddr); err != nil {
				logger.Error().Err(err).Str("addr", c.MetricsAddr).Msg("metrics server stopped")
			}
		}()
	}

	ctx := c.config.ctx

	if c.ShowDashboard {
		dashboard := presenter.NewDashboard()
		useCase.RegisterMetricsObserver(dashboard)

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		p := tea.NewProgram(dashboard, tea.WithAltScreen())

		errCh := make(chan error, 1)
		go func() {
			errCh <- useCase.Execute(ctx, input)
			p.Quit()
		}()

		if _, err := p.Run(); err != nil {
			cancel()
			<-errCh
			return fmt.Errorf("TUI error: %w", err)
		}
		// quitting the dashboard early stops the batch
		cancel()
		return ignoreCanceled(<-errCh)
	}

	var progress *presenter.Progress
	if !c.NoProgress {
		progress = presenter.NewProgress(os.Stderr, common.TerminalWidth)
		useCase.RegisterMetricsObserver(progress)
	}

	logger.Info().Str("input", c.InputFile).Str("output", c.OutputFile).Int("workers", c.NumWorkers).Msg("starting batch")
	err = useCase.Execute(ctx, input)
	if progress != nil {
		progress.Wait()
	}
	if err = ignoreCanceled(err); err != nil {
		return err
	}

	m := useCase.GetMetrics()
	logger.Info().
		Int64("found", m.Found).
		Int64("not_found", m.NotFound).
		Int64("duplicates", m.DuplicateInputs).
		Int64("attempts", m.Attempts).
		Msg("batch completed")
	return nil
}

// ServeCommand runs the resolver HTTP service
type ServeCommand struct {
	Addr string `short:"a" long:"addr" env:"ADSTXT_ADDR" description:"Listen address" default:":3001"`

	config *Config
}

// Execute implements flags.Commander
func (c *ServeCommand) Execute(_ []string) error {
	srv := NewAssembler(c.config).AssembleServer()
	c.config.logger.Info().Str("addr", c.Addr).Msg("resolver service listening")
	return srv.ListenAndServe(c.config.ctx, c.Addr)
}

// VersionCommand prints the version
type VersionCommand struct {
	Short bool `short:"s" long:"short" description:"Print the short version only"`

	out    io.Writer
	config *Config
}

// Execute implements flags.Commander
func (c *VersionCommand) Execute(_ []string) error {
	out := writerOr(c.out, os.Stdout)
	if c.Short {
		_, err := fmt.Fprintln(out, common.PV.Short())
		return err
	}
	_, err := fmt.Fprintln(out, common.PV.String())
	return err
}

// openInput opens the domain list, "-" meaning stdin
func openInput(name string) (io.Reader, func(), error) {
	if name == "" || name == "-" {
		return os.Stdin, func() {}, nil
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

// screenLogger returns the logger used while a full-screen program owns the
// terminal: a JSON file logger for path, or a no-op logger when path is empty
func screenLogger(path string) (zerolog.Logger, func(), error) {
	if path == "" {
		return zerolog.Nop(), func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := zerolog.New(file).With().Timestamp().Logger()
	return logger, func() { file.Close() }, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
