package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfask/internal/telemetry"
	"go.opentelemetry.io/otel"
)

func TestSetupTracer(t *testing.T) {
	var received atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/traces" {
			received.Add(1)
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", collector.URL)

	shutdown := gt.R1(telemetry.SetupTracer(t.Context(), "pdfask-test", "v0.0.0")).NoError(t)

	_, span := otel.Tracer("test").Start(t.Context(), "probe")
	gt.True(t, span.SpanContext().IsValid())
	span.End()

	gt.NoError(t, shutdown(t.Context()))
	gt.True(t, received.Load() > 0)
}
