package pdfask

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPromptTemplate wraps the caller's instruction. The instruction is
// embedded verbatim at the %s verb.
const DefaultPromptTemplate = "Analyze the following PDF document and provide insights based on the given prompt: %s"

// Analyzer packages a document and an instruction into a multimodal request
// and returns the model's textual answer.
type Analyzer struct {
	client         LLMClient
	promptTemplate string
	tracer         trace.Tracer
}

// Option is a configuration option for the Analyzer.
type Option func(*Analyzer)

// WithPromptTemplate replaces DefaultPromptTemplate. The template must
// contain exactly one %s verb and write any other percent sign as %%. New
// keeps DefaultPromptTemplate when tmpl fails ValidatePromptTemplate.
func WithPromptTemplate(tmpl string) Option {
	return func(a *Analyzer) {
		a.promptTemplate = tmpl
	}
}

// New creates an Analyzer. A nil client is accepted; every call then fails
// with KindCredentialMissing.
func New(client LLMClient, options ...Option) *Analyzer {
	a := &Analyzer{
		client:         client,
		promptTemplate: DefaultPromptTemplate,
		tracer:         defaultTracer(),
	}
	for _, opt := range options {
		opt(a)
	}
	if err := ValidatePromptTemplate(a.promptTemplate); err != nil {
		a.promptTemplate = DefaultPromptTemplate
	}
	return a
}

// ValidatePromptTemplate checks that tmpl holds exactly one %s verb and no
// other formatting directive except the %% escape.
func ValidatePromptTemplate(tmpl string) error {
	verbs := 0
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' {
			continue
		}
		if i+1 >= len(tmpl) {
			return goerr.Wrap(ErrInvalidParameter, "prompt template ends with a lone %", goerr.V("template", tmpl))
		}
		i++
		switch tmpl[i] {
		case '%':
		case 's':
			verbs++
		default:
			return goerr.Wrap(ErrInvalidParameter, "prompt template has an unsupported directive, write % as %%",
				goerr.V("template", tmpl),
				goerr.V("offset", i-1),
			)
		}
	}
	if verbs != 1 {
		return goerr.Wrap(ErrInvalidParameter, "prompt template must contain exactly one %s",
			goerr.V("template", tmpl),
			goerr.V("count", verbs),
		)
	}
	return nil
}

// Prompt returns the synthesized instruction sent along with the document.
func (a *Analyzer) Prompt(instruction string) string {
	return fmt.Sprintf(a.promptTemplate, instruction)
}

// Analyze sends doc and instruction to the model and returns its answer.
func (a *Analyzer) Analyze(ctx context.Context, doc PDF, instruction string) (answer string, err error) {
	ctx, span := a.startSpan(ctx, doc, instruction)
	var resp *Response
	defer func() { endSpan(span, resp, err) }()

	if a.client == nil {
		return "", goerr.New("LLM client is not configured", goerr.Tag(TagCredentialMissing))
	}
	if len(doc.Data()) == 0 {
		return "", goerr.New("document is empty", goerr.Tag(TagIOFailure))
	}

	logger := ctxlog.From(ctx)
	logger.Debug("analyzing document",
		slog.Any("document", doc),
		slog.Int("instruction_length", len(instruction)),
	)

	resp, err = a.client.Generate(ctx, Text(a.Prompt(instruction)), doc)
	if err != nil {
		return "", goerr.Wrap(err, "failed to analyze document")
	}

	if !resp.HasData() {
		return "", goerr.New("model returned no text", goerr.Tag(TagMalformedResponse))
	}

	logger.Debug("document analyzed",
		slog.Int("input_token", resp.InputToken),
		slog.Int("output_token", resp.OutputToken),
	)

	return resp.Text(), nil
}

// AnalyzeFile reads the document at path fully into memory and analyzes it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path, instruction string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read document", goerr.V("path", path), goerr.Tag(TagIOFailure))
	}

	doc, err := NewPDF(data)
	if err != nil {
		return "", goerr.Wrap(err, "failed to load document", goerr.V("path", path))
	}

	return a.Analyze(ctx, doc, instruction)
}

// Answer is the presentation boundary of Analyze: it returns either the
// model's answer or "An error occurred: <details>".
func (a *Analyzer) Answer(ctx context.Context, doc PDF, instruction string) string {
	answer, err := a.Analyze(ctx, doc, instruction)
	return a.Present(ctx, answer, err)
}

// AnswerFile is the presentation boundary of AnalyzeFile.
func (a *Analyzer) AnswerFile(ctx context.Context, path, instruction string) string {
	answer, err := a.AnalyzeFile(ctx, path, instruction)
	return a.Present(ctx, answer, err)
}

// Present turns the result of an analysis into the text shown to users. It
// is what Answer returns, for callers that also need the error itself.
func (a *Analyzer) Present(ctx context.Context, answer string, err error) string {
	if err != nil {
		return a.describe(ctx, err)
	}
	return answer
}

func (a *Analyzer) describe(ctx context.Context, err error) string {
	ctxlog.From(ctx).Warn("analysis failed",
		slog.Any("error", err),
		slog.String("kind", string(KindOf(err))),
	)
	return Describe(err)
}
