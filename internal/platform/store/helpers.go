package store

import (
	"context"
	"time"

	perr "churnlearn/internal/platform/errors"
)

// ExecOne runs a write that must touch exactly one row; zero rows is
// NotFound, more is a Conflict
func ExecOne(ctx context.Context, q RowQuerier, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	switch n := tag.RowsAffected(); {
	case n == 0:
		return perr.ErrNotFound
	case n > 1:
		return perr.Newf(perr.ErrorCodeConflict, "%s touched %d rows, want 1", tag.String(), n)
	}
	return nil
}

// One scans exactly one row; none is perr.ErrNotFound
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	items, err := collect(ctx, q, scan, 2, sql, args...)
	var zero T
	switch {
	case err != nil:
		return zero, err
	case len(items) == 0:
		return zero, perr.ErrNotFound
	case len(items) > 1:
		return zero, perr.Newf(perr.ErrorCodeConflict, "query returned more than one row")
	}
	return items[0], nil
}

// Many scans every row
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	return collect(ctx, q, scan, -1, sql, args...)
}

// collect stops after limit rows when limit is positive
func collect[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), limit int, sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for (limit <= 0 || len(out) < limit) && rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Result is a result set whose shape is only known at run time
type Result struct {
	Columns []string
	Rows    [][]any
}

// QueryFunc is the Query method of either backend seam
type QueryFunc func(ctx context.Context, sql string, args ...any) (Rows, error)

// Table scans every column of every row into *any. Nullable pointers the
// driver hands back are flattened, so a NULL comes out as nil
func Table(ctx context.Context, query QueryFunc, sql string, args ...any) (Result, error) {
	rows, err := query(ctx, sql, args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	res := Result{Columns: rows.Columns()}
	n := len(res.Columns)
	for rows.Next() {
		vals := make([]any, n)
		dest := make([]any, n)
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return Result{}, err
		}
		for i, v := range vals {
			vals[i] = flatten(v)
		}
		res.Rows = append(res.Rows, vals)
	}
	return res, rows.Err()
}

func flatten(v any) any {
	switch x := v.(type) {
	case *time.Time:
		return deref(x, func(t time.Time) any { return t })
	case *string:
		return deref(x, func(s string) any { return s })
	case *bool:
		return deref(x, func(b bool) any { return b })
	case *float64:
		return deref(x, func(f float64) any { return f })
	case *float32:
		return deref(x, func(f float32) any { return float64(f) })
	case *int64:
		return deref(x, func(i int64) any { return i })
	case *int32:
		return deref(x, func(i int32) any { return int64(i) })
	}
	return v
}

func deref[T any](p *T, widen func(T) any) any {
	if p == nil {
		return nil
	}
	return widen(*p)
}
