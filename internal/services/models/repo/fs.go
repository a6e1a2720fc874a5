package repo

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/services/models/domain"
)

const ext = ".model.json"

// FS stores one JSON file per key under Dir
// Writes go to a temp file that is renamed into place
type FS struct{ Dir string }

// Put implements domain.StorageRepo
func (f FS) Put(ctx context.Context, r domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "create model dir %s", f.Dir)
	}
	b, err := json.Marshal(r)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode model record")
	}

	tmp, err := os.CreateTemp(f.Dir, "."+r.Key+"-*")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "create temp for %s", r.Key)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(b)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), f.path(r.Key))
	}
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "write model %s", r.Key)
	}
	return nil
}

// Get implements domain.StorageRepo
func (f FS) Get(ctx context.Context, key string) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	return readRecord(f.path(key), key)
}

// List implements domain.StorageRepo
func (f FS) List(ctx context.Context) ([]domain.Record, error) {
	entries, err := os.ReadDir(f.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "list %s", f.Dir)
	}

	var out []domain.Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := strings.TrimSuffix(name, ext)
		r, err := readRecord(filepath.Join(f.Dir, name), key)
		if err != nil {
			return nil, err
		}
		r.Blob = nil
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out, nil
}

func (f FS) path(key string) string { return filepath.Join(f.Dir, key+ext) }

func readRecord(path, key string) (domain.Record, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Record{}, perr.NotFoundf("model %q not found", key)
	}
	if err != nil {
		return domain.Record{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "read model %s", key)
	}
	var r domain.Record
	if err := json.Unmarshal(b, &r); err != nil {
		return domain.Record{}, perr.Wrapf(err, perr.ErrorCodeJSON, "decode model %s", key)
	}
	return r, nil
}

var _ domain.StorageRepo = FS{}
