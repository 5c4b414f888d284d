// Package objectstore stores exported report files in Google Cloud Storage
// or a local directory.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Store persists named objects and returns a URI for each.
type Store interface {
	// Put writes the content of r under name and returns the object URI.
	Put(ctx context.Context, name, contentType string, r io.Reader) (string, error)

	// Get reads the object behind uri.
	Get(ctx context.Context, uri string) ([]byte, error)
}

// ParseGCSURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// Filename extracts the last path element of a gs:// or file:// URI.
// e.g., "gs://bucket/reports/may.csv" → "may.csv"
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(uri, "gs://"), "file://")
	if !strings.Contains(trimmed, "/") {
		return trimmed
	}
	return path.Base(trimmed)
}
