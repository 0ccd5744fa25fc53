package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/interface/cli"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Warn().Msg("received interrupt signal, shutting down gracefully")
		cancel()
	}()

	err := cli.Run(ctx, log.Logger, os.Args[1:])
	if err == nil {
		return
	}

	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) {
		log.Error().Msg(flagsErr.Message)
		os.Exit(1)
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		log.Error().Msg(exitErr.Error())
		os.Exit(exitErr.Code)
	}

	log.Error().Err(err).Msg("command failed")
	os.Exit(1)
}
