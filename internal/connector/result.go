package connector

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RowMapping is a name to value view of a row
type RowMapping map[string]interface{}

// Row is one result row, addressable by position or by column name
type Row struct {
	columns []string
	index   map[string]int
	values  []interface{}
}

// Index returns the value at position i. It panics if i is out of range.
func (r Row) Index(i int) interface{} {
	return r.values[i]
}

// Get returns the value of the named column, nil if the row has no such column
func (r Row) Get(name string) interface{} {
	if i, ok := r.index[name]; ok {
		return r.values[i]
	}
	return nil
}

// Has reports whether the row has the named column
func (r Row) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Len returns the number of values in the row
func (r Row) Len() int {
	return len(r.values)
}

// Values returns a copy of the row values
func (r Row) Values() []interface{} {
	return append([]interface{}(nil), r.values...)
}

// Mapping returns the row as a column name to value map
func (r Row) Mapping() RowMapping {
	m := make(RowMapping, len(r.columns))
	for i, col := range r.columns {
		m[col] = r.values[i]
	}
	return m
}

// Scan copies the row values, in order, into dest
func (r Row) Scan(dest ...interface{}) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("expected %d destination arguments in Scan, not %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, r.values[i]); err != nil {
			return fmt.Errorf("scan column %d (%s): %w", i, r.columns[i], err)
		}
	}
	return nil
}

// String renders the row values, e.g. (1, 'a', NULL)
func (r Row) String() string {
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = formatValue(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Result holds the rows of a query, or the outcome of a statement
type Result struct {
	columns      []string
	rows         []Row
	returnsRows  bool
	rowsAffected int64
	lastInsertID int64
}

// Columns returns the column names of the result
func (r *Result) Columns() []string {
	return append([]string(nil), r.columns...)
}

// ReturnsRows reports whether the statement produced rows
func (r *Result) ReturnsRows() bool {
	return r.returnsRows
}

// All returns every row
func (r *Result) All() []Row {
	return append([]Row(nil), r.rows...)
}

// Len returns the number of rows
func (r *Result) Len() int {
	return len(r.rows)
}

// First returns the first row
func (r *Result) First() (Row, error) {
	if len(r.rows) == 0 {
		return Row{}, ErrNoRows
	}
	return r.rows[0], nil
}

// Scalar returns the first column of the first row
func (r *Result) Scalar() (interface{}, error) {
	row, err := r.First()
	if err != nil {
		return nil, err
	}
	if row.Len() == 0 {
		return nil, ErrNoRows
	}
	return row.Index(0), nil
}

// Mappings returns every row as a name to value map
func (r *Result) Mappings() []RowMapping {
	mappings := make([]RowMapping, len(r.rows))
	for i, row := range r.rows {
		mappings[i] = row.Mapping()
	}
	return mappings
}

// RowsAffected returns the number of rows changed by a statement
func (r *Result) RowsAffected() int64 {
	return r.rowsAffected
}

// LastInsertID returns the id generated by the last insert, when the driver reports one
func (r *Result) LastInsertID() int64 {
	return r.lastInsertID
}

func execResult(res sql.Result) *Result {
	result := &Result{}
	// Not every driver reports both values, a failure only leaves them at zero
	if affected, err := res.RowsAffected(); err == nil {
		result.rowsAffected = affected
	}
	if id, err := res.LastInsertId(); err == nil {
		result.lastInsertID = id
	}
	return result
}

func readRows(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}

	result := &Result{columns: columns, returnsRows: true}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		// Convert []byte to string for text fields
		for i, val := range values {
			if b, ok := val.([]byte); ok {
				values[i] = string(b)
			}
		}

		result.rows = append(result.rows, Row{columns: columns, index: index, values: values})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func assign(dest, value interface{}) error {
	switch d := dest.(type) {
	case *interface{}:
		*d = value
		return nil
	case *string:
		switch v := value.(type) {
		case string:
			*d = v
		case nil:
			*d = ""
		default:
			*d = fmt.Sprint(v)
		}
		return nil
	case *int64:
		n, err := toInt64(value)
		if err != nil {
			return err
		}
		*d = n
		return nil
	case *int:
		n, err := toInt64(value)
		if err != nil {
			return err
		}
		*d = int(n)
		return nil
	case *float64:
		switch v := value.(type) {
		case float64:
			*d = v
		case int64:
			*d = float64(v)
		default:
			return fmt.Errorf("cannot assign %T to *float64", value)
		}
		return nil
	case *bool:
		switch v := value.(type) {
		case bool:
			*d = v
		case int64:
			*d = v != 0
		default:
			return fmt.Errorf("cannot assign %T to *bool", value)
		}
		return nil
	case *sql.NullString:
		return d.Scan(value)
	case *sql.NullInt64:
		return d.Scan(value)
	case *time.Time:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("cannot assign %T to *time.Time", value)
		}
		*d = v
		return nil
	default:
		return fmt.Errorf("unsupported destination type %T", dest)
	}
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cannot assign %T to an integer", value)
	}
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
