package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
	"github.com/m-mizutani/pdfask/internal/logging"
	"github.com/m-mizutani/pdfask/internal/telemetry"
	"github.com/m-mizutani/pdfask/llm"
	"github.com/m-mizutani/pdfask/source"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Sources: cli.EnvVars("PDFASK_CONFIG"),
			Usage:   "YAML file with default flag values (keys are flag names)",
		},
		&cli.StringFlag{
			Name:    "provider",
			Value:   string(llm.ProviderGemini),
			Sources: cli.EnvVars("PDFASK_PROVIDER"),
			Usage:   "LLM provider (gemini, openai, claude)",
		},
		&cli.StringFlag{
			Name:    "model",
			Sources: cli.EnvVars("PDFASK_MODEL"),
			Usage:   "Model name, provider default when empty",
		},
		&cli.StringFlag{
			Name:    "base-url",
			Sources: cli.EnvVars("PDFASK_BASE_URL"),
			Usage:   "Override the provider API endpoint",
		},
		&cli.StringFlag{
			Name:    "gemini-api-key",
			Sources: cli.EnvVars("GEMINI_API_KEY"),
			Usage:   "Gemini API key",
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Sources: cli.EnvVars("OPENAI_API_KEY"),
			Usage:   "OpenAI API key",
		},
		&cli.StringFlag{
			Name:    "claude-api-key",
			Sources: cli.EnvVars("ANTHROPIC_API_KEY"),
			Usage:   "Anthropic API key",
		},
		&cli.StringFlag{
			Name:    "prompt-template",
			Value:   pdfask.DefaultPromptTemplate,
			Sources: cli.EnvVars("PDFASK_PROMPT_TEMPLATE"),
			Usage:   "Instruction wrapper, must contain one %s",
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Sources: cli.EnvVars("PDFASK_TIMEOUT"),
			Usage:   "Deadline for one analysis, 0 for none",
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			Sources: cli.EnvVars("PDFASK_S3_ENDPOINT"),
			Usage:   "S3 compatible endpoint (host:port) for s3:// documents",
		},
		&cli.StringFlag{
			Name:    "s3-region",
			Sources: cli.EnvVars("PDFASK_S3_REGION"),
			Usage:   "S3 region",
		},
		&cli.StringFlag{
			Name:    "s3-access-key",
			Sources: cli.EnvVars("PDFASK_S3_ACCESS_KEY"),
			Usage:   "S3 access key, AWS environment credentials when empty",
		},
		&cli.StringFlag{
			Name:    "s3-secret-key",
			Sources: cli.EnvVars("PDFASK_S3_SECRET_KEY"),
			Usage:   "S3 secret key",
		},
		&cli.BoolFlag{
			Name:    "s3-use-ssl",
			Value:   true,
			Sources: cli.EnvVars("PDFASK_S3_USE_SSL"),
			Usage:   "Use HTTPS for the S3 endpoint",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Sources: cli.EnvVars("PDFASK_LOG_LEVEL"),
			Usage:   "Log level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   logging.FormatText,
			Sources: cli.EnvVars("PDFASK_LOG_FORMAT"),
			Usage:   "Log format (text, json)",
		},
		&cli.BoolFlag{
			Name:    "otel",
			Sources: cli.EnvVars("PDFASK_OTEL"),
			Usage:   "Export traces over OTLP HTTP (configured by OTEL_EXPORTER_OTLP_* variables)",
		},
	}
}

type config struct {
	LLM            llm.Config
	PromptTemplate string
	Timeout        time.Duration
	S3             source.S3Config
	LogLevel       string
	LogFormat      string
	Tracing        bool
}

// loadConfigFile reads a flat YAML mapping of flag name to value.
func loadConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}
	return values, nil
}

// applyConfigFile fills flags that were not given on the command line or
// through the environment. Keys naming a flag of another subcommand are
// skipped so one file can serve every command.
func applyConfigFile(cmd *cli.Command, values map[string]any) error {
	for name, value := range values {
		if name == "config" {
			continue
		}
		if !hasFlag(cmd.Lineage(), name) {
			if hasFlag(subcommands(cmd.Root()), name) {
				continue
			}
			return goerr.New("unknown config file entry", goerr.V("key", name))
		}
		if cmd.IsSet(name) {
			continue
		}
		if err := cmd.Set(name, configValue(value)); err != nil {
			return goerr.Wrap(err, "invalid config file entry", goerr.V("key", name))
		}
	}
	return nil
}

// configValue formats a YAML value as flag input. Lists become the comma
// separated form slice flags accept.
func configValue(value any) string {
	list, ok := value.([]any)
	if !ok {
		return fmt.Sprint(value)
	}
	items := make([]string, 0, len(list))
	for _, v := range list {
		items = append(items, fmt.Sprint(v))
	}
	return strings.Join(items, ",")
}

func hasFlag(cmds []*cli.Command, name string) bool {
	for _, c := range cmds {
		for _, f := range c.Flags {
			if slices.Contains(f.Names(), name) {
				return true
			}
		}
	}
	return false
}

func subcommands(cmd *cli.Command) []*cli.Command {
	var all []*cli.Command
	for _, c := range cmd.Commands {
		all = append(all, c)
		all = append(all, subcommands(c)...)
	}
	return all
}

func apiKeyFlag(p llm.Provider) string {
	switch p {
	case llm.ProviderOpenAI:
		return "openai-api-key"
	case llm.ProviderClaude:
		return "claude-api-key"
	default:
		return "gemini-api-key"
	}
}

func newConfig(cmd *cli.Command) (*config, error) {
	if path := cmd.String("config"); path != "" {
		values, err := loadConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := applyConfigFile(cmd, values); err != nil {
			return nil, err
		}
	}

	provider := llm.Provider(cmd.String("provider"))
	cfg := &config{
		LLM: llm.Config{
			Provider: provider,
			APIKey:   cmd.String(apiKeyFlag(provider)),
			Model:    cmd.String("model"),
			BaseURL:  cmd.String("base-url"),
		},
		PromptTemplate: cmd.String("prompt-template"),
		Timeout:        cmd.Duration("timeout"),
		S3: source.S3Config{
			Endpoint:  cmd.String("s3-endpoint"),
			Region:    cmd.String("s3-region"),
			AccessKey: cmd.String("s3-access-key"),
			SecretKey: cmd.String("s3-secret-key"),
			UseSSL:    cmd.Bool("s3-use-ssl"),
		},
		LogLevel:  cmd.String("log-level"),
		LogFormat: cmd.String("log-format"),
		Tracing:   cmd.Bool("otel"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail on every request. A
// missing API key is not an error here; it surfaces per analysis.
func (c *config) Validate() error {
	if !c.LLM.Provider.Valid() {
		return goerr.Wrap(pdfask.ErrInvalidParameter, "unknown provider", goerr.V("provider", c.LLM.Provider))
	}
	if err := pdfask.ValidatePromptTemplate(c.PromptTemplate); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return goerr.Wrap(pdfask.ErrInvalidParameter, "timeout must not be negative", goerr.V("timeout", c.Timeout))
	}
	if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
		return goerr.Wrap(pdfask.ErrInvalidParameter, "S3 access key and secret key must be set together")
	}
	return nil
}

func (c *config) sourceOptions() []source.Option {
	var opts []source.Option
	if c.S3.Endpoint != "" {
		opts = append(opts, source.WithS3(c.S3))
	}
	return opts
}

// env bundles what every command needs once flags are resolved.
type env struct {
	cfg      *config
	analyzer *pdfask.Analyzer
	source   source.Source
	shutdown telemetry.Shutdown
}

// setup loads .env and the config file, installs the logger into ctx and
// builds the analyzer. The LLM client is created once here and shared.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, *env, error) {
	_ = godotenv.Load()

	cfg, err := newConfig(cmd)
	if err != nil {
		return ctx, nil, err
	}

	logger, err := logging.New(cmd.Root().ErrWriter, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return ctx, nil, err
	}
	slog.SetDefault(logger)
	ctx = ctxlog.With(ctx, logger)

	var shutdown telemetry.Shutdown
	if cfg.Tracing {
		if shutdown, err = telemetry.SetupTracer(ctx, cmd.Root().Name, version); err != nil {
			return ctx, nil, err
		}
	}

	client, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		if pdfask.KindOf(err) != pdfask.KindCredentialMissing {
			return ctx, nil, err
		}
		logger.Warn("API key is not configured, analysis requests will fail",
			slog.String("provider", string(cfg.LLM.Provider)),
			slog.String("flag", apiKeyFlag(cfg.LLM.Provider)),
		)
		client = nil
	}

	return ctx, &env{
		cfg:      cfg,
		analyzer: pdfask.New(client, pdfask.WithPromptTemplate(cfg.PromptTemplate)),
		source:   source.New(cfg.sourceOptions()...),
		shutdown: shutdown,
	}, nil
}

// close flushes pending spans when tracing is enabled.
func (e *env) close(ctx context.Context) {
	if e.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.shutdown(ctx); err != nil {
		ctxlog.From(ctx).Warn("failed to flush traces", slog.Any("error", err))
	}
}

// withTimeout applies the configured analysis deadline, if any.
func (e *env) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.Timeout)
}
