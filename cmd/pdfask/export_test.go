package main

import (
	"context"
	"io"
	"net/http"

	"github.com/m-mizutani/pdfask"
	"github.com/m-mizutani/pdfask/source"
	"github.com/urfave/cli/v3"
)

// Exported constructors for testing
var NewServer = newServer
var NewApp = newApp

// Exported server options for testing
var (
	WithAnalyzer    = withAnalyzer
	WithRateLimit   = withRateLimit
	WithCORSOrigins = withCORSOrigins
	WithTimeout     = withTimeout
	WithLogger      = withLogger
)

type ServerOption = serverOption
type Server = server

var (
	StatusOf          = statusOf
	LoadConfigFile    = loadConfigFile
	ErrAnalysisFailed = errAnalysisFailed
	RunInspect        = runInspect
)

type Config = config

// Handler returns the server's HTTP handler for testing.
func (s *server) Handler() http.Handler {
	return s.handler()
}

// NewConfig resolves flags of cmd into a config for testing.
func NewConfig(cmd *cli.Command) (*Config, error) {
	return newConfig(cmd)
}

// GlobalFlags returns the root flags for testing.
func GlobalFlags() []cli.Flag {
	return globalFlags()
}

// RunAnalyze runs the analyze command body with an injected analyzer.
func RunAnalyze(ctx context.Context, analyzer *pdfask.Analyzer, src source.Source, w io.Writer, ref, text, prompt string) error {
	e := &env{
		cfg:      &config{},
		analyzer: analyzer,
		source:   src,
	}
	return runAnalyze(ctx, e, w, ref, text, prompt)
}
