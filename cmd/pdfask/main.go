package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// version is overwritten at build time with -ldflags "-X main.version=...".
var version = "dev"

// errAnalysisFailed marks a failure whose description was already printed.
var errAnalysisFailed = errors.New("analysis failed")

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "pdfask",
		Usage:   "Ask a multimodal LLM about a PDF document",
		Version: version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			serveCommand(),
			analyzeCommand(),
			renderCommand(),
			inspectCommand(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		if !errors.Is(err, errAnalysisFailed) {
			slog.Error("command failed", slog.Any("error", err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
