package render_test

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfask"
	"github.com/m-mizutani/pdfask/inspect"
	"github.com/m-mizutani/pdfask/render"
)

func nearly(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestBytes(t *testing.T) {
	t.Run("single page with text at the fixed position", func(t *testing.T) {
		data := gt.R1(render.Bytes("Hello, world")).NoError(t)
		gt.True(t, len(data) > 0)
		gt.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
		gt.True(t, bytes.Contains(data, []byte("BT 100.00 700.00 Td (Hello, world) Tj ET")))

		report := gt.R1(inspect.Inspect(data)).NoError(t)
		gt.Equal(t, 1, report.PageCount())
		gt.S(t, report.Pages[0].Text).Contains("Hello, world")

		runs := report.Pages[0].Runs
		gt.A(t, runs).Length(1).Required()
		gt.Equal(t, "Hello, world", runs[0].Text)
		gt.True(t, nearly(runs[0].X, 100))
		gt.True(t, nearly(runs[0].Y, 700))
		gt.True(t, nearly(runs[0].FontSize, 12))
	})

	t.Run("custom position and font size", func(t *testing.T) {
		data := gt.R1(render.Bytes("moved", render.WithPosition(50, 400), render.WithFontSize(20))).NoError(t)
		report := gt.R1(inspect.Inspect(data)).NoError(t)
		runs := report.Pages[0].Runs
		gt.A(t, runs).Length(1).Required()
		gt.True(t, nearly(runs[0].X, 50))
		gt.True(t, nearly(runs[0].Y, 400))
		gt.True(t, nearly(runs[0].FontSize, 20))
	})

	t.Run("long text stays on one page", func(t *testing.T) {
		data := gt.R1(render.Bytes(strings.Repeat("overflow ", 200))).NoError(t)
		report := gt.R1(inspect.Inspect(data)).NoError(t)
		gt.Equal(t, 1, report.PageCount())
	})

	t.Run("characters outside cp1252 are replaced", func(t *testing.T) {
		data := gt.R1(render.Bytes("日本語 hello")).NoError(t)
		report := gt.R1(inspect.Inspect(data)).NoError(t)
		gt.Equal(t, 1, report.PageCount())
		gt.S(t, report.Text()).Contains("hello")
		gt.S(t, report.Text()).NotContains("日本語")
	})

	t.Run("empty text still renders a page", func(t *testing.T) {
		data := gt.R1(render.Bytes("")).NoError(t)
		report := gt.R1(inspect.Inspect(data)).NoError(t)
		gt.Equal(t, 1, report.PageCount())
		gt.Equal(t, "", report.Text())
	})

	t.Run("parentheses are escaped", func(t *testing.T) {
		data := gt.R1(render.Bytes("f(x)")).NoError(t)
		gt.True(t, bytes.Contains(data, []byte(`(f\(x\))`)))
	})
}

func TestDocument(t *testing.T) {
	doc := gt.R1(render.Document("analyze me")).NoError(t)
	gt.Equal(t, "application/pdf", doc.MimeType())
	gt.True(t, len(doc.Data()) > 0)
}

type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRenderWriterFailure(t *testing.T) {
	err := render.Render(brokenWriter{}, "text")
	gt.Error(t, err)
	gt.Equal(t, pdfask.KindIOFailure, pdfask.KindOf(err))
}

func TestToFile(t *testing.T) {
	t.Run("second render replaces the first", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "generated_text.pdf")

		gt.NoError(t, render.ToFile(path, "first payload"))
		gt.NoError(t, render.ToFile(path, "second payload"))

		data := gt.R1(os.ReadFile(path)).NoError(t)
		report := gt.R1(inspect.Inspect(data)).NoError(t)
		gt.S(t, report.Text()).Contains("second payload")
		gt.False(t, strings.Contains(report.Text(), "first payload"))
	})

	t.Run("unwritable path", func(t *testing.T) {
		err := render.ToFile(filepath.Join(t.TempDir(), "missing", "out.pdf"), "text")
		gt.Error(t, err)
		gt.Equal(t, pdfask.KindIOFailure, pdfask.KindOf(err))
	})
}
