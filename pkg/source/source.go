// Package source enumerates the images a pipeline run will process, either
// from a local directory or from an S3 bucket.
package source

import (
	"context"
	"path/filepath"
	"strings"
)

// A Record points at one image that is ready to be read from disk.
type Record struct {
	// ID is the enumeration identifier: a file path for local sources, an
	// object key for S3.
	ID string
	// Path is the local file to read the image from.
	Path string
	// Staged marks Path as a staged download that may be removed after
	// processing.
	Staged bool
}

// An ImageSource enumerates images and makes them available locally, one at a
// time. Fetch failures are per-item: the caller records them and moves on.
type ImageSource interface {
	// List enumerates the identifiers of every image in the source.
	List(ctx context.Context) ([]string, error)
	// Fetch makes the identified image available on local disk.
	Fetch(ctx context.Context, id string) (Record, error)
	// Discard releases any local staging held by the record.
	Discard(rec Record) error
}

var imageExtensions = []string{".jpeg", ".jpg", ".png", ".bmp", ".gif", ".tiff"}

// IsImage reports whether the path or object key has a known image extension.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
