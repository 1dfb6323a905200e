package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
	"github.com/m-mizutani/pdfask/render"
)

const (
	// maxUploadSize bounds a multipart body: the document plus form fields.
	maxUploadSize = pdfask.MaxPDFSize + 1<<20

	renderFileName = "generated_text.pdf"
)

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

// statusOf maps an analysis failure to an HTTP status.
func statusOf(err error) int {
	switch pdfask.KindOf(err) {
	case pdfask.KindIOFailure:
		return http.StatusBadRequest
	case pdfask.KindRemoteFailure, pdfask.KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analysisInput is what a client submits: an optional uploaded document,
// optional text to render and the instruction.
type analysisInput struct {
	Document []byte `json:"-"`
	Text     string `json:"text"`
	Prompt   string `json:"prompt"`
}

// resolveDocument picks the document to analyze. An uploaded file wins;
// otherwise the text is rendered into a fresh single-page document.
func resolveDocument(in *analysisInput) (pdfask.PDF, error) {
	if len(in.Document) > 0 {
		return pdfask.NewPDF(in.Document)
	}
	if in.Text != "" {
		return render.Document(in.Text)
	}
	return pdfask.PDF{}, goerr.New("no document: upload a PDF or provide text to render", goerr.Tag(pdfask.TagIOFailure))
}

// parseAnalysisInput reads either a multipart form (file, text, prompt) or
// a JSON body ({"text", "prompt"}).
func parseAnalysisInput(w http.ResponseWriter, r *http.Request) (*analysisInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var in analysisInput
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadSize)).Decode(&in); err != nil {
			return nil, goerr.Wrap(err, "failed to decode request body", goerr.Tag(pdfask.TagIOFailure))
		}
		return &in, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, goerr.Wrap(err, "failed to parse form", goerr.Tag(pdfask.TagIOFailure))
	}

	in := &analysisInput{
		Text:   r.FormValue("text"),
		Prompt: r.FormValue("prompt"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return nil, goerr.Wrap(err, "failed to read uploaded file", goerr.Tag(pdfask.TagIOFailure))
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read uploaded file",
			goerr.V("filename", header.Filename),
			goerr.Tag(pdfask.TagIOFailure))
	}
	in.Document = data
	return in, nil
}

// analyze runs render-if-needed then analysis for one request.
func (s *server) analyze(ctx context.Context, in *analysisInput) (pdfask.PDF, string, error) {
	doc, err := resolveDocument(in)
	if err != nil {
		return pdfask.PDF{}, "", err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	answer, err := s.analyzer.Analyze(ctx, doc, in.Prompt)
	return doc, answer, err
}

type analyzeResponse struct {
	ID        string `json:"id"`
	Answer    string `json:"answer,omitempty"`
	Error     string `json:"error,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := uuid.NewString()
	logger := ctxlog.From(ctx).With(slog.String("analysis_id", id))

	in, err := parseAnalysisInput(w, r)
	if err == nil {
		var answer string
		if _, answer, err = s.analyze(ctxlog.With(ctx, logger), in); err == nil {
			writeJSON(w, http.StatusOK, analyzeResponse{ID: id, Answer: answer})
			return
		}
	}

	writeJSON(w, statusOf(err), analyzeResponse{
		ID:        id,
		Error:     s.analyzer.Present(ctxlog.With(ctx, logger), "", err),
		Kind:      string(pdfask.KindOf(err)),
		Retryable: pdfask.IsRetryable(err),
	})
}

type renderRequest struct {
	Text string `json:"text"`
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var buf bytes.Buffer
	if err := render.Render(&buf, req.Text); err != nil {
		ctxlog.From(r.Context()).Error("failed to render document", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to render document")
		return
	}

	w.Header().Set("Content-Type", pdfask.PDFMimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+renderFileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
