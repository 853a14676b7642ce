package connector

import (
	"context"
	"database/sql"
	"strings"
)

// Connection is a single connection checked out of the engine's pool.
// The first statement begins a transaction implicitly; it stays open until
// Commit or Rollback, or until the connection is released.
type Connection struct {
	engine *Engine
	conn   *sql.Conn
	tx     *sql.Tx
}

// Execute runs a statement. Without parameters, or with a single Params, the
// statement runs once. With several Params it runs once per set on a single
// prepared statement and the result reports the total rows affected.
func (c *Connection) Execute(ctx context.Context, stmt TextClause, params ...Params) (*Result, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	if c.tx == nil {
		if err := c.begin(ctx, true); err != nil {
			return nil, err
		}
	}

	if len(params) > 1 {
		return c.executeMany(ctx, stmt, params)
	}

	var p Params
	if len(params) == 1 {
		p = params[0]
	}
	args, err := stmt.bind(p)
	if err != nil {
		return nil, err
	}
	c.engine.logStatement(stmt.query, args)

	if isQuery(stmt.query) {
		return c.executeQuery(ctx, stmt.query, args)
	}

	res, err := c.tx.ExecContext(ctx, stmt.query, args...)
	if err != nil {
		c.engine.Logger.Errorf("Error executing statement: %v", err)
		return nil, err
	}
	return execResult(res), nil
}

// Commit commits the current transaction, if any
func (c *Connection) Commit() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	c.engine.logStatement("COMMIT", nil)
	if err := tx.Commit(); err != nil {
		c.engine.Logger.Errorf("Error committing transaction: %v", err)
		return err
	}
	return nil
}

// Rollback discards the current transaction, if any
func (c *Connection) Rollback() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	c.engine.logStatement("ROLLBACK", nil)
	if err := tx.Rollback(); err != nil {
		c.engine.Logger.Errorf("Error rolling back transaction: %v", err)
		return err
	}
	return nil
}

// InTransaction reports whether a transaction is open on the connection
func (c *Connection) InTransaction() bool {
	return c.tx != nil
}

func (c *Connection) begin(ctx context.Context, implicit bool) error {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		c.engine.Logger.Errorf("Error starting transaction: %v", err)
		return err
	}
	c.tx = tx
	if implicit {
		c.engine.logStatement("BEGIN (implicit)", nil)
	} else {
		c.engine.logStatement("BEGIN", nil)
	}
	return nil
}

func (c *Connection) release() error {
	if c.conn == nil {
		return nil
	}
	rerr := c.Rollback()
	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		c.engine.Logger.Errorf("Error releasing connection: %v", err)
		return err
	}
	return rerr
}

func (c *Connection) executeQuery(ctx context.Context, query string, args []interface{}) (*Result, error) {
	rows, err := c.tx.QueryContext(ctx, query, args...)
	if err != nil {
		c.engine.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	result, err := readRows(rows)
	if err != nil {
		c.engine.Logger.Errorf("Error reading rows: %v", err)
		return nil, err
	}
	return result, nil
}

func (c *Connection) executeMany(ctx context.Context, stmt TextClause, paramsList []Params) (*Result, error) {
	prepared, err := c.tx.PrepareContext(ctx, stmt.query)
	if err != nil {
		c.engine.Logger.Errorf("Error preparing statement: %v", err)
		return nil, err
	}
	defer prepared.Close()

	total := &Result{}
	for _, p := range paramsList {
		args, err := stmt.bind(p)
		if err != nil {
			return nil, err
		}
		c.engine.logStatement(stmt.query, args)

		res, err := prepared.ExecContext(ctx, args...)
		if err != nil {
			c.engine.Logger.Errorf("Error executing batch statement: %v", err)
			return nil, err
		}
		r := execResult(res)
		total.rowsAffected += r.rowsAffected
		total.lastInsertID = r.lastInsertID
	}
	return total, nil
}

// isQuery reports whether the statement returns rows
func isQuery(query string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "PRAGMA", "EXPLAIN", "VALUES", "SHOW", "DESCRIBE"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
