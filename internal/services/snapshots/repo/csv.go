package repo

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"churnlearn/internal/core/frame"
	perr "churnlearn/internal/platform/errors"

	"golang.org/x/text/unicode/norm"
)

// DateLayout names snapshot files
const DateLayout = "2006-01-02"

// Path returns <root>/<dir>/<yyyy>/<m>/<d>/<yyyy-mm-dd>.csv
// Month and day directories are not zero padded
func Path(root, dir string, date time.Time) string {
	return filepath.Join(root, dir,
		strconv.Itoa(date.Year()),
		strconv.Itoa(int(date.Month())),
		strconv.Itoa(date.Day()),
		date.Format(DateLayout)+".csv")
}

// CSV reads dated inputs and, when ResponseDir is set, joins the response
// file of the same date on the key column
type CSV struct {
	Root        string
	InputDir    string
	ResponseDir string
	Key         string
}

// Fetch implements domain.SourceRepo
func (c *CSV) Fetch(ctx context.Context, date time.Time) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	header, records, err := ReadCSV(Path(c.Root, c.InputDir, date))
	if err != nil {
		return nil, err
	}
	if c.ResponseDir != "" {
		rh, rr, err := ReadCSV(Path(c.Root, c.ResponseDir, date))
		if err != nil {
			return nil, err
		}
		header, records, err = join(c.Key, header, records, rh, rr)
		if err != nil {
			return nil, perr.WithOp(err, "join responses "+date.Format(DateLayout))
		}
	}
	return frame.FromRecords(header, records)
}

// ReadCSV reads a whole file. Header names are trimmed and NFC normalised
// so exports from different tools agree on column identity
func ReadCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, perr.NotFoundf("snapshot file %s does not exist", path)
	}
	if err != nil {
		return nil, nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, perr.NotFoundf("snapshot file %s is empty", path)
	}
	if err != nil {
		return nil, nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read header of %s", path)
	}
	header = NormalizeHeader(header)

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read %s", path)
	}
	return header, records, nil
}

// NormalizeHeader trims, strips a byte order mark and applies NFC
func NormalizeHeader(h []string) []string {
	out := make([]string, len(h))
	for i, s := range h {
		s = strings.TrimPrefix(s, "\ufeff")
		out[i] = norm.NFC.String(strings.TrimSpace(s))
	}
	return out
}

// WriteCSV writes header and records to path, creating parent directories
func WriteCSV(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "mkdir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "create %s", path)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err == nil {
		err = w.WriteAll(records)
	}
	w.Flush()
	if err := errors.Join(w.Error(), f.Close()); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "write %s", path)
	}
	return nil
}

// join appends the non-key response columns to every input record
// Every input key needs exactly one response row
func join(key string, ih []string, ir [][]string, rh []string, rr [][]string) ([]string, [][]string, error) {
	ik, err := indexOf(ih, key)
	if err != nil {
		return nil, nil, err
	}
	rk, err := indexOf(rh, key)
	if err != nil {
		return nil, nil, err
	}

	byKey := make(map[string][]string, len(rr))
	for _, rec := range rr {
		k := rec[rk]
		if _, dup := byKey[k]; dup {
			return nil, nil, perr.InvalidArgf("duplicate response for %s %q", key, k)
		}
		byKey[k] = rec
	}

	var extra []int
	header := append([]string(nil), ih...)
	for j, name := range rh {
		if j == rk {
			continue
		}
		if _, err := indexOf(ih, name); err == nil {
			return nil, nil, perr.InvalidArgf("response column %q also present in inputs", name)
		}
		extra = append(extra, j)
		header = append(header, name)
	}

	out := make([][]string, len(ir))
	for i, rec := range ir {
		resp, ok := byKey[rec[ik]]
		if !ok {
			return nil, nil, perr.InvalidArgf("no response for %s %q", key, rec[ik])
		}
		row := append(make([]string, 0, len(header)), rec...)
		for _, j := range extra {
			row = append(row, resp[j])
		}
		out[i] = row
	}
	return header, out, nil
}

func indexOf(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	return -1, perr.Configurationf("column %q not found in %v", name, header)
}
