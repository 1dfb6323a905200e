// Package inspect reads the text layer of a PDF document.
package inspect

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
)

// Report describes the pages of a document.
type Report struct {
	Size  int    `json:"size"`
	Pages []Page `json:"pages"`
}

// Page is the text content of one page.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Runs   []Run  `json:"runs,omitempty"`
}

// Run is a sequence of glyphs sharing a baseline and a font. X and Y are the
// origin of the first glyph in PDF user space (bottom-left origin).
type Run struct {
	Text     string  `json:"text"`
	Font     string  `json:"font"`
	FontSize float64 `json:"font_size"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// PageCount returns the number of pages.
func (r *Report) PageCount() int {
	return len(r.Pages)
}

// Text returns the text of all pages separated by blank lines.
func (r *Report) Text() string {
	texts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n\n")
}

// Summary returns a one-line description suitable for display.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d page(s), %d bytes, %d characters of text", r.PageCount(), r.Size, len([]rune(r.Text())))
}

// Inspect parses data as a PDF and extracts its text layer. Scanned
// (image-only) pages yield empty text.
func Inspect(data []byte) (report *Report, err error) {
	// ledongthuc/pdf reports some malformed input by panicking.
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = goerr.New("failed to parse PDF", goerr.V("panic", r), goerr.Tag(pdfask.TagIOFailure))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open PDF", goerr.Tag(pdfask.TagIOFailure))
	}

	report = &Report{Size: len(data)}
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}

		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}

		text, err := p.GetPlainText(fonts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read page text", goerr.V("page", i), goerr.Tag(pdfask.TagIOFailure))
		}

		report.Pages = append(report.Pages, Page{
			Number: i,
			Text:   strings.TrimSpace(text),
			Runs:   collectRuns(p.Content().Text),
		})
	}

	return report, nil
}

// baselineTolerance is the vertical distance under which glyphs are treated
// as sitting on the same line.
const baselineTolerance = 0.5

func collectRuns(glyphs []pdf.Text) []Run {
	var runs []Run
	var sb strings.Builder

	for _, g := range glyphs {
		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if last.Font == g.Font && math.Abs(last.Y-g.Y) < baselineTolerance {
				sb.WriteString(g.S)
				last.Text = sb.String()
				continue
			}
		}

		sb.Reset()
		sb.WriteString(g.S)
		runs = append(runs, Run{
			Text:     g.S,
			Font:     g.Font,
			FontSize: g.FontSize,
			X:        g.X,
			Y:        g.Y,
		})
	}

	return runs
}
