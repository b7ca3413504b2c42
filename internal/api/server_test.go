package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storyreel/internal/logging"
	"storyreel/internal/metrics"
	"storyreel/internal/pipeline"
	"storyreel/internal/services"
	"storyreel/internal/store"
	"storyreel/internal/testsupport"
	"storyreel/internal/videojob"
)

type fixture struct {
	handler  http.Handler
	st       *store.Store
	provider *testsupport.FakeProvider
	project  *store.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fp := testsupport.NewFakeProvider(t)
	cfg := testsupport.NewConfig(t, testsupport.WithProviderURL(fp.URL()))
	st := testsupport.MustOpenStore(t, cfg)
	recorder := metrics.New()
	orch := pipeline.New(cfg, st, pipeline.NewProvider(cfg, recorder), logging.NewNop(),
		pipeline.WithMetrics(recorder),
		pipeline.WithPollerOptions(videojob.WithSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })),
	)
	srv := NewServer(orch, recorder, logging.NewNop())
	return &fixture{
		handler:  srv.Handler(),
		st:       st,
		provider: fp,
		project:  testsupport.NewProject(t, st, "lighthouse mystery"),
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestCreateProjectValidatesBody(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/projects", map[string]string{"owner": "someone"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/projects", map[string]any{
		"owner": "someone",
		"topic": "deep sea",
		"idea":  map[string]string{"title": "Abyss", "description": "A diver descends"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	project := decode[store.Project](t, rec)
	if project.Status != store.ProjectScripting {
		t.Fatalf("expected scripting status, got %s", project.Status)
	}
}

func TestUnknownProjectIs404(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/projects/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decode[errorResponse](t, rec)
	if body.Kind != "not_found" {
		t.Fatalf("expected not_found kind, got %q", body.Kind)
	}
}

func TestSceneWorkflowOverHTTP(t *testing.T) {
	f := newFixture(t)
	base := "/api/projects/" + f.project.ID

	rec := f.do(t, http.MethodPut, base+"/script", testsupport.TwoSceneScript())
	if rec.Code != http.StatusOK {
		t.Fatalf("save script: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, base+"/renders", nil)
	renders := decode[struct {
		Renders []store.SceneRender `json:"renders"`
	}](t, rec)
	if len(renders.Renders) != 2 {
		t.Fatalf("expected 2 pending renders, got %d", len(renders.Renders))
	}

	rec = f.do(t, http.MethodPost, base+"/scenes/0/keyframes/middle", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown frame, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, base+"/scenes/0/storyboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("storyboard: %d %s", rec.Code, rec.Body.String())
	}
	row := decode[store.SceneRender](t, rec)
	if row.StartFrameURL == "" || row.EndFrameURL == "" {
		t.Fatalf("expected both frames, got %+v", row)
	}

	mediaPath := strings.TrimPrefix(row.StartFrameURL, "http://media.test")
	rec = f.do(t, http.MethodGet, mediaPath, nil)
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), testsupport.PNG) {
		t.Fatalf("expected keyframe served from %s, got %d", mediaPath, rec.Code)
	}

	rec = f.do(t, http.MethodPost, base+"/scenes/0/video", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("video: %d %s", rec.Code, rec.Body.String())
	}
	row = decode[store.SceneRender](t, rec)
	if row.Status != store.RenderCompleted || row.VideoURL == "" {
		t.Fatalf("expected completed render, got %+v", row)
	}

	rec = f.do(t, http.MethodPost, base+"/scenes/9/video", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing scene, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	if !strings.Contains(rec.Body.String(), `storyreel_render_outcomes_total{status="completed"} 1`) {
		t.Fatalf("expected render outcome metric, got:\n%s", rec.Body.String())
	}
}

func TestAnalyzeWithoutScriptIs404(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/projects/"+f.project.ID+"/analyze", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProviderFailureIs502(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/ideas", map[string]string{"topic": "volcanoes"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when provider rejects the request, got %d: %s", rec.Code, rec.Body.String())
	}
	if decode[errorResponse](t, rec).Kind != "permanent" {
		t.Fatalf("expected permanent kind: %s", rec.Body.String())
	}
}

func TestStatusMapping(t *testing.T) {
	cases := map[error]int{
		services.Wrap(services.ErrNotFound, "", "", "x", nil):   http.StatusNotFound,
		services.Wrap(services.ErrValidation, "", "", "x", nil): http.StatusBadRequest,
		services.Wrap(services.ErrBusy, "", "", "x", nil):       http.StatusConflict,
		services.Wrap(services.ErrTimeout, "", "", "x", nil):    http.StatusBadGateway,
		services.Wrap(services.ErrStorage, "", "", "x", nil):    http.StatusInternalServerError,
		errors.New("boom"):                                      http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(services.Kind(err)); got != want {
			t.Errorf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
