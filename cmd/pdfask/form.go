package main

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/pdfask"
	"github.com/m-mizutani/pdfask/inspect"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type formView struct {
	Submitted bool
	ID        string
	Text      string
	Prompt    string
	Summary   string
	Answer    template.HTML
	Error     string
}

func (s *server) renderForm(w http.ResponseWriter, r *http.Request, status int, view *formView) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, view); err != nil {
		ctxlog.From(r.Context()).Error("failed to render form", slog.Any("error", err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, http.StatusOK, &formView{})
}

// markdownToHTML renders the model's answer. Raw HTML in the answer is
// dropped by goldmark's default renderer.
func (s *server) markdownToHTML(answer string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(answer), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// summarize describes the analyzed document; failures only cost the summary.
func summarize(ctx context.Context, doc pdfask.PDF) string {
	report, err := inspect.Inspect(doc.Data())
	if err != nil {
		ctxlog.From(ctx).Debug("failed to inspect document", slog.Any("error", err))
		return ""
	}
	return report.Summary()
}

func (s *server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := &formView{
		Submitted: true,
		ID:        uuid.NewString(),
	}
	logger := ctxlog.From(ctx).With(slog.String("analysis_id", view.ID))
	ctx = ctxlog.With(ctx, logger)

	in, err := parseAnalysisInput(w, r)
	if err != nil {
		view.Error = s.analyzer.Present(ctx, "", err)
		s.renderForm(w, r, statusOf(err), view)
		return
	}
	view.Text = in.Text
	view.Prompt = in.Prompt

	doc, answer, err := s.analyze(ctx, in)
	if len(doc.Data()) > 0 {
		view.Summary = summarize(ctx, doc)
	}
	if err != nil {
		view.Error = s.analyzer.Present(ctx, "", err)
		s.renderForm(w, r, statusOf(err), view)
		return
	}

	html, err := s.markdownToHTML(answer)
	if err != nil {
		logger.Warn("failed to render answer as markdown", slog.Any("error", err))
		html = template.HTML("<pre>" + template.HTMLEscapeString(answer) + "</pre>")
	}
	view.Answer = html
	s.renderForm(w, r, http.StatusOK, view)
}
