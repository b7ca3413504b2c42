// Package blobstore keeps generated media on the local filesystem and maps
// object paths to public URLs served by the HTTP API.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"storyreel/internal/fileutil"
	"storyreel/internal/services"
)

// Store writes objects beneath Root and exposes them below PublicBaseURL.
type Store struct {
	root          string
	publicBaseURL string
	httpClient    *http.Client
	now           func() time.Time
}

// Option customizes the store.
type Option func(*Store)

// WithHTTPClient overrides the client used to fetch non-local URLs.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithClock overrides the time source used for name suffixes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Store.
func New(root, publicBaseURL string, opts ...Option) *Store {
	s := &Store{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory objects are written to.
func (s *Store) Root() string {
	return s.root
}

// ObjectName builds "<project>/<stem>-<unix millis>.<ext>". The suffix keeps
// regenerated media from colliding with earlier versions.
func (s *Store) ObjectName(projectID, stem, ext string) string {
	return fmt.Sprintf("%s/%s-%d.%s", projectID, stem, s.now().UnixMilli(), strings.TrimPrefix(ext, "."))
}

// Put writes data at objectPath and returns its public URL.
func (s *Store) Put(ctx context.Context, data []byte, contentType, objectPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", services.Wrap(services.ErrStorage, "blobstore", "put", "empty payload for "+clean, nil)
	}
	target := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrStorage, "blobstore", "put", fmt.Sprintf("write %s (%s)", clean, contentType), err)
	}
	return s.publicBaseURL + "/" + clean, nil
}

// Fetch reads an object by public URL. URLs below the public base are read
// from disk; anything else is fetched over HTTP.
func (s *Store) Fetch(ctx context.Context, url string) ([]byte, error) {
	if rel, ok := strings.CutPrefix(url, s.publicBaseURL+"/"); ok && s.publicBaseURL != "" {
		clean, err := cleanObjectPath(rel)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(clean)))
		if err != nil {
			return nil, services.Wrap(services.ErrStorage, "blobstore", "fetch", "read "+clean, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "blobstore", "fetch", "build request", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "blobstore", "fetch", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrStorage, "blobstore", "fetch", fmt.Sprintf("%s: http %d", url, resp.StatusCode), nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "blobstore", "fetch", "read body", err)
	}
	return data, nil
}

func cleanObjectPath(objectPath string) (string, error) {
	trimmed := strings.TrimSpace(objectPath)
	clean := path.Clean("/" + trimmed)[1:]
	if trimmed == "" || clean == "" || strings.HasPrefix(trimmed, "/") || clean != trimmed {
		return "", services.Wrap(services.ErrValidation, "blobstore", "path", fmt.Sprintf("invalid object path %q", objectPath), nil)
	}
	return clean, nil
}
