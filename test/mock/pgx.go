// test/mock/pgx.go
package mock

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockQuerier is a mock implementation of the pgx Query and Exec methods
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	called := m.Called(ctx, sql, args)
	rows, _ := called.Get(0).(pgx.Rows)
	return rows, called.Error(1)
}

func (m *MockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	called := m.Called(ctx, sql, args)
	tag, _ := called.Get(0).(pgconn.CommandTag)
	return tag, called.Error(1)
}

// Rows is an in-memory pgx.Rows over fixed column names and values.
type Rows struct {
	Columns []string
	Data    [][]any
	Failure error

	pos    int
	closed bool
}

func NewRows(columns []string, data ...[]any) *Rows {
	return &Rows{Columns: columns, Data: data}
}

func (r *Rows) Close() { r.closed = true }

func (r *Rows) Closed() bool { return r.closed }

func (r *Rows) Err() error { return r.Failure }

func (r *Rows) CommandTag() pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(r.Data)))
}

func (r *Rows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.Columns))
	for i, c := range r.Columns {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *Rows) Next() bool {
	if r.closed || r.pos >= len(r.Data) {
		r.closed = true
		return false
	}
	r.pos++
	return true
}

// Scan assigns the current row to pointer destinations of matching type.
func (r *Rows) Scan(dest ...any) error {
	row := r.Data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		if row[i] == nil {
			dv.Elem().Set(reflect.Zero(dv.Elem().Type()))
			continue
		}
		sv := reflect.ValueOf(row[i])
		if !sv.Type().AssignableTo(dv.Elem().Type()) {
			return fmt.Errorf("scan: cannot assign %T to %s", row[i], dv.Elem().Type())
		}
		dv.Elem().Set(sv)
	}
	return nil
}

func (r *Rows) Values() ([]any, error) {
	return r.Data[r.pos-1], nil
}

func (r *Rows) RawValues() [][]byte {
	return nil
}

func (r *Rows) Conn() *pgx.Conn {
	return nil
}
