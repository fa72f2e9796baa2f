package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// FileFetcher serves routes from JSON files: route "surveys" is read from
// "surveys.json" under the root. Parameters and filters are ignored.
type FileFetcher struct {
	files fs.FS
}

var _ Fetcher = (*FileFetcher)(nil)

// NewFileFetcher reads routes from the directory dir.
func NewFileFetcher(dir string) (*FileFetcher, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("fetch: directory is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fetch: %s is not a directory", dir)
	}
	return &FileFetcher{files: os.DirFS(dir)}, nil
}

// NewFSFetcher reads routes from files.
func NewFSFetcher(files fs.FS) (*FileFetcher, error) {
	if files == nil {
		return nil, errors.New("fetch: fs is nil")
	}
	return &FileFetcher{files: files}, nil
}

// Fetch decodes the file of route.
func (f *FileFetcher) Fetch(ctx context.Context, route string, _ Params, _ ...Filter) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	name := strings.Trim(path.Clean("/"+route), "/")
	if name == "" {
		return nil, errors.New("fetch: route is required")
	}
	if path.Ext(name) == "" {
		name += ".json"
	}
	data, err := fs.ReadFile(f.files, name)
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("fetch: %s: %w", name, ErrEmptyResponse)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("fetch: decode %s: %w", name, err)
	}
	return payload, nil
}
