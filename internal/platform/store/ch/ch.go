// Package ch provides a clickhouse client over clickhouse-go
package ch

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"churnlearn/internal/platform/logger"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	URL        string
	ClientName string
	ClientTag  string
	Debug      bool
	Log        logger.Logger
}

// Rows is the minimal result set iteration for ch
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() []string
}

// conn is the slice of driver.Conn the client needs
type conn interface {
	Query(ctx context.Context, query string, args ...any) (rawRows, error)
	Insert(ctx context.Context, query string, rows [][]any) error
	Ping(ctx context.Context) error
	Close() error
}

// rawRows is the slice of driver.Rows the client needs
type rawRows interface {
	Next() bool
	Scan(dest ...any) error
	ColumnTypes() []driver.ColumnType
	Columns() []string
	Close() error
	Err() error
}

// CH is a clickhouse client
type CH struct {
	c conn
}

// dial is a seam for tests
var dial = func(opt *clickhouse.Options) (conn, error) {
	c, err := clickhouse.Open(opt)
	if err != nil {
		return nil, err
	}
	return driverConn{c}, nil
}

// Open parses the DSN, opens a connection pool and pings it
func Open(ctx context.Context, cfg Config) (*CH, error) {
	opt, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ch: parse dsn: %w", err)
	}
	opt.ClientInfo = BuildClientInfo(cfg.ClientName, cfg.ClientTag)
	if cfg.Debug {
		log := cfg.Log.With().Str("component", "ch").Logger()
		opt.Debug = true
		opt.Debugf = func(format string, v ...any) { log.Debug().Msgf(format, v...) }
	}

	c, err := dial(opt)
	if err != nil {
		return nil, fmt.Errorf("ch: open: %w", err)
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ch: ping: %w", err)
	}
	return &CH{c: c}, nil
}

// Insert appends rows to table in a single batch
func (c *CH) Insert(ctx context.Context, table string, rows [][]any) error {
	if c == nil || c.c == nil {
		return errors.New("ch: nil client")
	}
	if len(rows) == 0 {
		return nil
	}
	return c.c.Insert(ctx, "INSERT INTO "+table, rows)
}

// Query runs a query and returns ch.Rows
// Scanning into *any allocates the column's native scan type, so callers that
// do not know the schema up front can still read rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if c == nil || c.c == nil {
		return nil, errors.New("ch: nil client")
	}
	r, err := c.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &rows{r: r, types: r.ColumnTypes()}, nil
}

// Ping checks connectivity
func (c *CH) Ping(ctx context.Context) error {
	if c == nil || c.c == nil {
		return errors.New("ch: nil client")
	}
	return c.c.Ping(ctx)
}

// Close closes resources
func (c *CH) Close() error {
	if c == nil || c.c == nil {
		return nil
	}
	return c.c.Close()
}

type rows struct {
	r     rawRows
	types []driver.ColumnType
}

func (x *rows) Next() bool        { return x.r.Next() }
func (x *rows) Err() error        { return x.r.Err() }
func (x *rows) Close() error      { return x.r.Close() }
func (x *rows) Columns() []string { return x.r.Columns() }

func (x *rows) Scan(dest ...any) error {
	typed := make([]any, len(dest))
	var boxes []int
	for i, d := range dest {
		if _, ok := d.(*any); ok && i < len(x.types) {
			typed[i] = reflect.New(x.types[i].ScanType()).Interface()
			boxes = append(boxes, i)
			continue
		}
		typed[i] = d
	}
	if err := x.r.Scan(typed...); err != nil {
		return err
	}
	for _, i := range boxes {
		*(dest[i].(*any)) = reflect.ValueOf(typed[i]).Elem().Interface()
	}
	return nil
}

// driverConn narrows driver.Conn to conn
type driverConn struct{ c driver.Conn }

func (d driverConn) Query(ctx context.Context, query string, args ...any) (rawRows, error) {
	return d.c.Query(ctx, query, args...)
}

func (d driverConn) Insert(ctx context.Context, query string, rows [][]any) error {
	b, err := d.c.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := b.Append(r...); err != nil {
			_ = b.Abort()
			return err
		}
	}
	return b.Send()
}

func (d driverConn) Ping(ctx context.Context) error { return d.c.Ping(ctx) }
func (d driverConn) Close() error                   { return d.c.Close() }
