package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
	"github.com/m-mizutani/pdfask/inspect"
	"github.com/m-mizutani/pdfask/render"
	"github.com/m-mizutani/pdfask/source"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web form and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("PDFASK_ADDR"),
				Usage:   "Server listen address",
			},
			&cli.FloatFlag{
				Name:    "rate-limit",
				Value:   1,
				Sources: cli.EnvVars("PDFASK_RATE_LIMIT"),
				Usage:   "Analysis requests per second across all clients, 0 to disable",
			},
			&cli.IntFlag{
				Name:    "rate-burst",
				Value:   5,
				Sources: cli.EnvVars("PDFASK_RATE_BURST"),
				Usage:   "Burst size of the analysis rate limiter",
			},
			&cli.StringSliceFlag{
				Name:    "cors-origin",
				Value:   []string{"*"},
				Sources: cli.EnvVars("PDFASK_CORS_ORIGINS"),
				Usage:   "Allowed CORS origins",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.close(ctx)

			s := newServer(
				withAddr(cmd.String("addr")),
				withAnalyzer(e.analyzer),
				withRateLimit(cmd.Float("rate-limit"), int(cmd.Int("rate-burst"))),
				withCORSOrigins(cmd.StringSlice("cors-origin")),
				withTimeout(e.cfg.Timeout),
				withLogger(ctxlog.From(ctx)),
			)
			return s.start(ctx)
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze a document and print the answer",
		ArgsUsage: "[document-ref]",
		Description: "document-ref is a local path, file://, gs://bucket/object or s3://bucket/key.\n" +
			"Without a reference, --text is rendered into a single-page document and analyzed.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "prompt",
				Aliases: []string{"p"},
				Usage:   "Instruction for the model",
			},
			&cli.StringFlag{
				Name:  "text",
				Usage: "Text to render when no document is given",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.close(ctx)
			return runAnalyze(ctx, e, cmd.Root().Writer, cmd.Args().First(), cmd.String("text"), cmd.String("prompt"))
		},
	}
}

// runAnalyze prints the answer, or the error description in its place.
func runAnalyze(ctx context.Context, e *env, w io.Writer, ref, text, prompt string) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	answer, err := analyzeRef(ctx, e, ref, text, prompt)
	fmt.Fprintln(w, e.analyzer.Present(ctx, answer, err))
	if err != nil {
		return errAnalysisFailed
	}
	return nil
}

func analyzeRef(ctx context.Context, e *env, ref, text, prompt string) (string, error) {
	var doc pdfask.PDF
	var err error

	switch {
	case ref != "":
		doc, err = source.ReadPDF(ctx, e.source, ref)
	case text != "":
		doc, err = render.Document(text)
	default:
		err = goerr.New("no document: give a document reference or --text", goerr.Tag(pdfask.TagIOFailure))
	}
	if err != nil {
		return "", err
	}

	return e.analyzer.Analyze(ctx, doc, prompt)
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render text into a single-page PDF",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   renderFileName,
				Usage:   "Output path, overwritten if it exists",
			},
			&cli.FloatFlag{
				Name:  "font-size",
				Value: render.DefaultFontSize,
				Usage: "Font size in points",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text := strings.Join(cmd.Args().Slice(), " ")
			output := cmd.String("output")

			if err := render.ToFile(output, text, render.WithFontSize(cmd.Float("font-size"))); err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, output)
			return nil
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print page count and text of a document",
		ArgsUsage: "<document-ref>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the full report as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref := cmd.Args().First()
			if ref == "" {
				return goerr.New("document reference is required")
			}

			ctx, e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.close(ctx)
			return runInspect(ctx, e.source, cmd.Root().Writer, ref, cmd.Bool("json"))
		},
	}
}

func runInspect(ctx context.Context, src source.Source, w io.Writer, ref string, asJSON bool) error {
	data, err := src.Read(ctx, ref)
	if err != nil {
		return err
	}

	report, err := inspect.Inspect(data)
	if err != nil {
		return goerr.Wrap(err, "failed to inspect document", goerr.V("ref", ref))
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintln(w, report.Summary())
	for _, page := range report.Pages {
		fmt.Fprintf(w, "\n--- page %d ---\n%s\n", page.Number, page.Text)
	}
	return nil
}
