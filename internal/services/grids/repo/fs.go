// Package repo loads parameter grids from YAML files
package repo

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"churnlearn/internal/core/grid"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/services/grids/domain"
)

// FS resolves a key to <Dir>/<key>.yaml (or .yml)
// A key that already names a YAML file is used as a path
type FS struct{ Dir string }

// Load implements domain.StorePort
func (f FS) Load(ctx context.Context, key string) (grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, path := range f.candidates(key) {
		b, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "read grid %s", path)
		}
		g, err := grid.Parse(b)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfiguration, "grid %s", path)
		}
		return g, nil
	}
	return nil, perr.NotFoundf("grid %q not found under %s", key, f.Dir)
}

func (f FS) candidates(key string) []string {
	if ext := filepath.Ext(key); ext == ".yaml" || ext == ".yml" {
		return []string{key}
	}
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return nil
	}
	return []string{
		filepath.Join(f.Dir, key+".yaml"),
		filepath.Join(f.Dir, key+".yml"),
	}
}

var _ domain.StorePort = FS{}
