// Package render draws a text payload onto a fixed-layout, single-page PDF.
//
// The page is US Letter (612 x 792 pt). The text is drawn once in 12pt
// Helvetica with its baseline origin at (100, 700) measured from the
// bottom-left corner of the page. There is no wrapping or pagination: text
// running past the page edge is clipped by the viewer.
package render

import (
	"bytes"
	"io"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
)

const (
	PageWidth  = 612.0
	PageHeight = 792.0

	DefaultX        = 100.0
	DefaultY        = 700.0
	DefaultFontSize = 12.0

	fontFamily = "Helvetica"
	creator    = "pdfask"
)

type config struct {
	x        float64
	y        float64
	fontSize float64
}

// Option is a configuration option for rendering.
type Option func(*config)

// WithPosition sets the draw origin in points from the bottom-left corner.
// Default: (100, 700)
func WithPosition(x, y float64) Option {
	return func(c *config) {
		c.x = x
		c.y = y
	}
}

// WithFontSize sets the font size in points.
// Default: 12
func WithFontSize(size float64) Option {
	return func(c *config) {
		c.fontSize = size
	}
}

func newConfig(options ...Option) *config {
	cfg := &config{
		x:        DefaultX,
		y:        DefaultY,
		fontSize: DefaultFontSize,
	}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// Render writes a single-page PDF with text drawn at the configured position.
func Render(w io.Writer, text string, options ...Option) error {
	cfg := newConfig(options...)

	doc := fpdf.New("P", "pt", "Letter", "")
	// Content streams stay uncompressed; the page carries one short operator.
	doc.SetCompression(false)
	doc.SetCreator(creator, false)
	doc.AddPage()
	doc.SetFont(fontFamily, "", cfg.fontSize)

	// Core fonts are cp1252; characters outside it are replaced, not rejected.
	tr := doc.UnicodeTranslatorFromDescriptor("")

	// fpdf measures y from the top edge.
	doc.Text(cfg.x, PageHeight-cfg.y, tr(text))

	if err := doc.Output(w); err != nil {
		return goerr.Wrap(err, "failed to render document", goerr.Tag(pdfask.TagIOFailure))
	}

	return nil
}

// Bytes renders text into an in-memory PDF.
func Bytes(text string, options ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, text, options...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Document renders text and returns it as an analysis input.
func Document(text string, options ...Option) (pdfask.PDF, error) {
	data, err := Bytes(text, options...)
	if err != nil {
		return pdfask.PDF{}, err
	}
	return pdfask.NewPDF(data)
}

// ToFile renders text into the file at path, replacing any previous content.
// Concurrent writers to the same path are not serialized.
func ToFile(path, text string, options ...Option) error {
	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "failed to create document file", goerr.V("path", path), goerr.Tag(pdfask.TagIOFailure))
	}

	if err := Render(f, text, options...); err != nil {
		_ = f.Close()
		return goerr.Wrap(err, "failed to write document file", goerr.V("path", path))
	}

	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "failed to close document file", goerr.V("path", path), goerr.Tag(pdfask.TagIOFailure))
	}

	return nil
}
