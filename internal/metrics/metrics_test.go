package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ObserveProviderCall("image", "success", 2*time.Second)
	r.ObserveProviderCall("image", "transient", time.Second)
	r.ObserveProviderRetry("image")
	r.RenderStarted()
	r.RenderStarted()
	r.RenderFinished("completed")

	if got := testutil.ToFloat64(r.providerCalls.WithLabelValues("image", "success")); got != 1 {
		t.Fatalf("expected 1 successful image call, got %v", got)
	}
	if got := testutil.ToFloat64(r.providerRetries.WithLabelValues("image")); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}
	if got := testutil.ToFloat64(r.rendersInFlight); got != 1 {
		t.Fatalf("expected 1 render in flight, got %v", got)
	}
	if got := testutil.ToFloat64(r.renderOutcomes.WithLabelValues("completed")); got != 1 {
		t.Fatalf("expected 1 completed render, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveStage("keyframe", "success", 3*time.Second)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `storyreel_pipeline_stage_duration_seconds_count{outcome="success",stage="keyframe"} 1`) {
		t.Fatalf("expected stage histogram in output:\n%s", body)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveProviderCall("text", "success", time.Second)
	r.ObserveProviderRetry("text")
	r.ObserveStage("analyze", "success", time.Second)
	r.RenderStarted()
	r.RenderFinished("failed")
}
