package pdfask

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// LLMClient is a client for a hosted multimodal model. Each call is a single
// independent request/response round trip; no conversation state is kept.
type LLMClient interface {
	Generate(ctx context.Context, input ...Input) (*Response, error)
}

// Response is a general response type for each LLM backend.
type Response struct {
	Texts       []string
	InputToken  int
	OutputToken int
}

func (r *Response) HasData() bool {
	return r != nil && len(r.Texts) > 0
}

// Text returns all text parts of the response concatenated in order.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return strings.Join(r.Texts, "")
}

type Input interface {
	isInput() restrictedValue
	LogValue() slog.Value
	String() string
}

type restrictedValue struct{}

// Text is a text input as prompt.
// Usage:
// input := pdfask.Text("Summarize this document")
type Text string

func (t Text) isInput() restrictedValue {
	return restrictedValue{}
}

func (t Text) LogValue() slog.Value {
	return slog.StringValue(string(t))
}

func (t Text) String() string {
	return string(t)
}

// PDF represents a PDF document input for LLM
type PDF struct {
	data []byte
}

func (p PDF) isInput() restrictedValue {
	return restrictedValue{}
}

// LogValue returns a slog.Value for the PDF
func (p PDF) LogValue() slog.Value {
	return slog.StringValue(p.String())
}

// String returns a string representation of the PDF
func (p PDF) String() string {
	return fmt.Sprintf("pdf (%d bytes)", len(p.data))
}

// Data returns the PDF data as bytes
func (p PDF) Data() []byte {
	return p.data
}

// Base64 returns the base64 encoded string of the PDF data
func (p PDF) Base64() string {
	return base64.StdEncoding.EncodeToString(p.data)
}

// MimeType returns the MIME type of the PDF
func (p PDF) MimeType() string {
	return PDFMimeType
}

const (
	PDFMimeType = "application/pdf"

	// MaxPDFSize is the upper bound of a document accepted by NewPDF.
	MaxPDFSize = 32 * 1024 * 1024
)

// pdfMagicBytes is the magic bytes for PDF files
var pdfMagicBytes = []byte("%PDF-")

// NewPDF creates a new PDF from byte data
func NewPDF(data []byte) (PDF, error) {
	if len(data) == 0 {
		return PDF{}, goerr.New("PDF data is empty", goerr.Tag(TagIOFailure))
	}

	if len(data) > MaxPDFSize {
		return PDF{}, goerr.New("PDF size exceeds maximum limit",
			goerr.V("size", len(data)),
			goerr.V("max_size", MaxPDFSize),
			goerr.Tag(TagIOFailure))
	}

	if !bytes.HasPrefix(data, pdfMagicBytes) {
		return PDF{}, goerr.New("invalid PDF format", goerr.Tag(TagIOFailure))
	}

	return PDF{data: data}, nil
}

// NewPDFFromReader creates a new PDF from io.Reader
func NewPDFFromReader(r io.Reader) (PDF, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxPDFSize+1))
	if err != nil {
		return PDF{}, goerr.Wrap(err, "failed to read PDF data", goerr.Tag(TagIOFailure))
	}
	return NewPDF(data)
}
