package tutorial

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/sqltour/internal/connector"
)

var insertSomeTable = connector.Text("INSERT INTO some_table (x, y) VALUES (:x, :y)")

// Tutorial walks through connecting, executing, committing and fetching rows
type Tutorial struct {
	Engine *connector.Engine
	Out    io.Writer
	Logger *logrus.Logger
}

// New creates a tutorial printing to out
func New(engine *connector.Engine, out io.Writer, logger *logrus.Logger) *Tutorial {
	return &Tutorial{
		Engine: engine,
		Out:    out,
		Logger: logger,
	}
}

// Run executes every step in order. CommitAsYouGo creates the table the later steps use.
func (t *Tutorial) Run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"versions", t.Versions},
		{"hello world", t.DisplayHelloWorld},
		{"commit as you go", t.CommitAsYouGo},
		{"begin once", t.UseTransactionToCommit},
		{"fetch rows", t.FetchRows},
		{"fetch rows via mappings", t.FetchRowsViaMappings},
	}

	for _, step := range steps {
		t.Logger.Debugf("Running tutorial step: %s", step.name)
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

// Versions prints the Go runtime and database server versions
func (t *Tutorial) Versions(ctx context.Context) error {
	fmt.Fprintf(t.Out, "go version: %s\n", runtime.Version())

	query := connector.Text("SELECT sqlite_version()")
	if t.Engine.Dialect() == connector.DriverMySQL {
		query = connector.Text("SELECT VERSION()")
	}
	return t.Engine.Connect(ctx, func(conn *connector.Connection) error {
		result, err := conn.Execute(ctx, query)
		if err != nil {
			return err
		}
		version, err := result.Scalar()
		if err != nil {
			return err
		}
		fmt.Fprintf(t.Out, "%s version: %v\n", t.Engine.Driver, version)
		return nil
	})
}

// DisplayHelloWorld runs a literal select and prints the result, its rows and the first value
func (t *Tutorial) DisplayHelloWorld(ctx context.Context) error {
	return t.Engine.Connect(ctx, func(conn *connector.Connection) error {
		result, err := conn.Execute(ctx, connector.Text("select 'hello world'"))
		if err != nil {
			return err
		}
		rows := result.All()
		fmt.Fprintln(t.Out, rows)

		row, err := result.First()
		if err != nil {
			return err
		}
		fmt.Fprintln(t.Out, row)
		fmt.Fprintln(t.Out, row.Index(0))
		return nil
	})
}

// CommitAsYouGo creates some_table, inserts two rows as a batch and commits explicitly
func (t *Tutorial) CommitAsYouGo(ctx context.Context) error {
	return t.Engine.Connect(ctx, func(conn *connector.Connection) error {
		if _, err := conn.Execute(ctx, connector.Text("CREATE TABLE some_table (x int, y int)")); err != nil {
			return err
		}
		if _, err := conn.Execute(ctx, insertSomeTable,
			connector.Params{"x": 1, "y": 1},
			connector.Params{"x": 2, "y": 4},
		); err != nil {
			return err
		}
		return conn.Commit()
	})
}

// UseTransactionToCommit inserts two more rows inside a block that commits on success
func (t *Tutorial) UseTransactionToCommit(ctx context.Context) error {
	return t.Engine.Begin(ctx, func(conn *connector.Connection) error {
		_, err := conn.Execute(ctx, insertSomeTable,
			connector.Params{"x": 6, "y": 8},
			connector.Params{"x": 9, "y": 10},
		)
		return err
	})
}

// FetchRows reads some_table three times: by column name, by unpacking and by position
func (t *Tutorial) FetchRows(ctx context.Context) error {
	return t.Engine.Connect(ctx, func(conn *connector.Connection) error {
		result, err := conn.Execute(ctx, connector.Text("SELECT x, y FROM some_table"))
		if err != nil {
			return err
		}
		for _, row := range result.All() {
			fmt.Fprintf(t.Out, "x: %v  y: %v\n", row.Get("x"), row.Get("y"))
		}

		result, err = conn.Execute(ctx, connector.Text("select x, y from some_table"))
		if err != nil {
			return err
		}
		for _, row := range result.All() {
			var x, y int64
			if err := row.Scan(&x, &y); err != nil {
				return err
			}
			fmt.Fprintf(t.Out, "x: %d  y: %d\n", x, y)
		}

		result, err = conn.Execute(ctx, connector.Text("select x, y from some_table"))
		if err != nil {
			return err
		}
		for _, row := range result.All() {
			x := row.Index(0)
			y := row.Index(1)
			fmt.Fprintf(t.Out, "x: %v  y: %v\n", x, y)
		}
		return nil
	})
}

// FetchRowsViaMappings reads some_table through the name to value view of each row
func (t *Tutorial) FetchRowsViaMappings(ctx context.Context) error {
	return t.Engine.Connect(ctx, func(conn *connector.Connection) error {
		result, err := conn.Execute(ctx, connector.Text("select x, y from some_table"))
		if err != nil {
			return err
		}
		for _, m := range result.Mappings() {
			fmt.Fprintf(t.Out, "x: %v  y: %v\n", m["x"], m["y"])
		}
		return nil
	})
}
