package source_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfask"
	"github.com/m-mizutani/pdfask/source"
)

func TestParseURI(t *testing.T) {
	type testCase struct {
		ref    string
		expect *source.URI
	}

	runTest := func(tc testCase) func(t *testing.T) {
		return func(t *testing.T) {
			uri, err := source.ParseURI(tc.ref)
			if tc.expect == nil {
				gt.Error(t, err)
				gt.Equal(t, pdfask.KindOf(err), pdfask.KindIOFailure)
				return
			}
			gt.NoError(t, err)
			gt.Equal(t, *uri, *tc.expect)
		}
	}

	t.Run("relative path", runTest(testCase{
		ref:    "./docs/a.pdf",
		expect: &source.URI{Scheme: source.SchemeFile, Key: "./docs/a.pdf"},
	}))
	t.Run("absolute path", runTest(testCase{
		ref:    "/tmp/a.pdf",
		expect: &source.URI{Scheme: source.SchemeFile, Key: "/tmp/a.pdf"},
	}))
	t.Run("file URI", runTest(testCase{
		ref:    "file:///tmp/a.pdf",
		expect: &source.URI{Scheme: source.SchemeFile, Key: "/tmp/a.pdf"},
	}))
	t.Run("gs object", runTest(testCase{
		ref:    "gs://my-bucket/path/to/doc.pdf",
		expect: &source.URI{Scheme: source.SchemeGS, Bucket: "my-bucket", Key: "path/to/doc.pdf"},
	}))
	t.Run("s3 object", runTest(testCase{
		ref:    "s3://reports/2024/q1.pdf",
		expect: &source.URI{Scheme: source.SchemeS3, Bucket: "reports", Key: "2024/q1.pdf"},
	}))
	t.Run("empty", runTest(testCase{ref: ""}))
	t.Run("bucket only", runTest(testCase{ref: "gs://my-bucket"}))
	t.Run("bucket with trailing slash", runTest(testCase{ref: "gs://my-bucket/"}))
	t.Run("prefix only", runTest(testCase{ref: "s3://my-bucket/path/"}))
	t.Run("missing bucket", runTest(testCase{ref: "gs:///doc.pdf"}))
	t.Run("unsupported scheme", runTest(testCase{ref: "https://example.com/doc.pdf"}))
}

func TestURIString(t *testing.T) {
	gt.Equal(t, source.URI{Scheme: source.SchemeFile, Key: "/tmp/a.pdf"}.String(), "/tmp/a.pdf")
	gt.Equal(t, source.URI{Scheme: source.SchemeGS, Bucket: "b", Key: "k.pdf"}.String(), "gs://b/k.pdf")
}
