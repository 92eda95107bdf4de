package source

import (
	"context"
	"os"
	"path/filepath"
)

// DirSource enumerates images from a local directory. Files are already on
// disk, so Fetch never stages anything and Discard is a no-op.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (d *DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(d.dir, entry.Name()))
	}
	return paths, nil
}

func (d *DirSource) Fetch(ctx context.Context, id string) (Record, error) {
	if _, err := os.Stat(id); err != nil {
		return Record{}, err
	}
	return Record{ID: id, Path: id}, nil
}

func (d *DirSource) Discard(rec Record) error {
	return nil
}
