package connector

import (
	"context"
	"fmt"

	"github.com/vitebski/sqltour/internal/catalog"
)

// CreateAll creates every catalog table, referenced tables first, in one transaction
func (e *Engine) CreateAll(ctx context.Context, cat *catalog.Catalog) error {
	statements, err := cat.CreateAllSQL(e.Dialect())
	if err != nil {
		return err
	}

	return e.Begin(ctx, func(conn *Connection) error {
		for _, stmt := range statements {
			if _, err := conn.Execute(ctx, Text(stmt)); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
		}
		e.Logger.Infof("Created %d tables", len(statements))
		return nil
	})
}

// DropAll drops every catalog table, dependents first, in one transaction
func (e *Engine) DropAll(ctx context.Context, cat *catalog.Catalog) error {
	order, _ := cat.CreationOrder()

	return e.Begin(ctx, func(conn *Connection) error {
		for i := len(order) - 1; i >= 0; i-- {
			if _, err := conn.Execute(ctx, Text("DROP TABLE IF EXISTS "+order[i])); err != nil {
				return fmt.Errorf("drop table %s: %w", order[i], err)
			}
		}
		return nil
	})
}
