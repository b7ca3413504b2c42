package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/internal/services/genai"
	"storyreel/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass, got detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "missing"))
	if result.Passed {
		t.Fatal("expected failure for missing directory")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", file)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
	if !strings.Contains(result.Detail, "not a directory") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckProvider_OK(t *testing.T) {
	fp := testsupport.NewFakeProvider(t)
	client := genai.NewClient(genai.Config{APIKey: "k", BaseURL: fp.URL()})

	result := CheckProvider(context.Background(), "Text model", client, "gemini-test")
	if !result.Passed {
		t.Fatalf("expected pass, got %q", result.Detail)
	}
}

func TestCheckProvider_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer server.Close()
	client := genai.NewClient(genai.Config{APIKey: "k", BaseURL: server.URL})

	result := CheckProvider(context.Background(), "Text model", client, "gemini-test")
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
	if !strings.Contains(result.Detail, "rejected") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckNtfy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
	}))
	defer server.Close()

	if result := CheckNtfy(context.Background(), server.URL+"/storyreel"); !result.Passed {
		t.Fatalf("expected pass, got %q", result.Detail)
	}
}

func TestRunAllCoversDirectoriesAndModels(t *testing.T) {
	fp := testsupport.NewFakeProvider(t)
	cfg := testsupport.NewConfig(t, testsupport.WithProviderURL(fp.URL()))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	client := genai.NewClient(genai.Config{APIKey: cfg.Provider.APIKey, BaseURL: cfg.Provider.BaseURL})

	results := RunAll(context.Background(), cfg, client)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"Data directory", "Media directory", "Text model", "Video model"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %s", want, joined)
		}
	}
	if strings.Contains(joined, "ntfy") {
		t.Fatalf("ntfy check should be skipped without a topic: %s", joined)
	}
}
