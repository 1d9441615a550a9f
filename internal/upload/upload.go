// Package upload mirrors local CSV tables into the durable storage bucket.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Uploader upserts objects into a storage bucket over HTTP. Failures are
// returned for the caller to log; the local file stays authoritative and
// the next run's upload corrects a stale mirror.
type Uploader struct {
	baseURL string
	key     string
	bucket  string
	http    HTTPClient
}

// New creates an Uploader for the given storage endpoint and bucket.
func New(baseURL, key, bucket string, client HTTPClient) *Uploader {
	return &Uploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		bucket:  bucket,
		http:    client,
	}
}

// Upload upserts the file at path into the bucket under its base name.
func (u *Uploader) Upload(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	name := filepath.Base(path)
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s",
		u.baseURL, url.PathEscape(u.bucket), url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", u.key)
	req.Header.Set("Authorization", "Bearer "+u.key)
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("x-upsert", "true")

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return fmt.Errorf("upload %s: status %d: %s", name, resp.StatusCode, snippet)
	}
	return nil
}
