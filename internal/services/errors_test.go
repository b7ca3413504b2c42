package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"storyreel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStorage, "keyframe", "upload", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"keyframe", "upload", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{services.Wrap(services.ErrNotFound, "store", "get", "missing", nil), "not_found"},
		{services.Wrap(services.ErrTimeout, "video", "poll", "", nil), "timeout"},
		{services.Wrap(services.ErrNoContent, "image", "", "", nil), "no_content"},
		{fmt.Errorf("outer: %w", services.ErrBusy), "busy"},
		{errors.New("plain"), "internal"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !services.IsRetryable(services.Wrap(services.ErrTransient, "genai", "text", "http 503", nil)) {
		t.Fatal("expected transient error to be retryable")
	}
	if services.IsRetryable(services.Wrap(services.ErrPermanent, "genai", "text", "http 400", nil)) {
		t.Fatal("expected permanent error to be final")
	}
	if services.IsRetryable(errors.New("unclassified")) {
		t.Fatal("expected unclassified error to be final")
	}
}
