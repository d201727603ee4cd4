package observe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns Metrics backed by a ManualReader.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			total += dp.Value
		}
	}
	return total
}

func TestSessionLifecycleMetrics(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStarted(ctx, "api")
	m.RecordStarted(ctx, "api")
	m.RecordFinished(ctx, "api", "timeout", 45)
	m.RecordDiscarded(ctx, "api")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "stresstype.sessions.started", attribute.String("source", "api")); got != 2 {
		t.Fatalf("expected 2 started, got %d", got)
	}
	if got := sumFor(t, rm, "stresstype.sessions.finished", attribute.String("reason", "timeout")); got != 1 {
		t.Fatalf("expected 1 finished by timeout, got %d", got)
	}
	if got := sumFor(t, rm, "stresstype.sessions.active", attribute.String("source", "api")); got != 0 {
		t.Fatalf("expected no active sessions, got %d", got)
	}

	met := findMetric(rm, "stresstype.stress.score")
	if met == nil {
		t.Fatal("score histogram not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("score is not an int64 histogram")
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 || hist.DataPoints[0].Sum != 45 {
		t.Fatalf("unexpected score histogram: %+v", hist.DataPoints)
	}
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m, reader := newTestMetrics(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Use(Middleware(m, logger))
	r.Get("/api/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rm := collect(t, reader)
	met := findMetric(rm, "stresstype.http.request.duration")
	if met == nil {
		t.Fatal("request duration not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 {
		t.Fatalf("expected one data point, got %d", len(hist.DataPoints))
	}
	route, _ := hist.DataPoints[0].Attributes.Value("route")
	if route.AsString() != "/api/sessions/{id}" {
		t.Fatalf("expected route pattern label, got %q", route.AsString())
	}
}
