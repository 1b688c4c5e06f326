package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Minimal database/sql driver serving canned rows. It exercises the adapters'
// scanning and argument binding without a live database: every statement and
// its bound arguments are captured for assertions.

type stubQuery struct {
	query string
	args  []driver.Value
}

type stubDB struct {
	mu      sync.Mutex
	rowsFor func(query string) *stubRows
	queries []stubQuery
}

func (d *stubDB) open() *sqlx.DB {
	return sqlx.NewDb(sql.OpenDB(stubConnector{db: d}), "postgres")
}

func (d *stubDB) captured(substr string) *stubQuery {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.queries {
		if strings.Contains(d.queries[i].query, substr) {
			return &d.queries[i]
		}
	}
	return nil
}

type stubConnector struct{ db *stubDB }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return &stubConn{db: c.db}, nil
}

func (c stubConnector) Driver() driver.Driver { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open through OpenDB")
}

type stubConn struct{ db *stubDB }

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	return &stubStmt{db: c.db, query: query}, nil
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubStmt struct {
	db    *stubDB
	query string
}

func (s *stubStmt) Close() error  { return nil }
func (s *stubStmt) NumInput() int { return -1 }

func (s *stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.record(args)
	return driver.RowsAffected(1), nil
}

func (s *stubStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.record(args)
	if s.db.rowsFor != nil {
		if rows := s.db.rowsFor(s.query); rows != nil {
			return rows, nil
		}
	}
	return &stubRows{}, nil
}

func (s *stubStmt) record(args []driver.Value) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.queries = append(s.db.queries, stubQuery{
		query: s.query,
		args:  append([]driver.Value(nil), args...),
	})
}

type stubRows struct {
	cols []string
	vals [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.vals) {
		return io.EOF
	}
	copy(dest, r.vals[r.idx])
	r.idx++
	return nil
}
