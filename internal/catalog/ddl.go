package catalog

import (
	"fmt"
	"strings"

	"github.com/vitebski/sqltour/pkg/models"
)

// Supported SQL dialects
const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

// mysqlDefaultVarchar is used for unbounded strings, MySQL requires a length
const mysqlDefaultVarchar = 255

// CreateTableSQL renders a CREATE TABLE statement for the given dialect
func CreateTableSQL(table models.Table, dialect string) (string, error) {
	if dialect != DialectSQLite && dialect != DialectMySQL {
		return "", fmt.Errorf("unsupported dialect: %s", dialect)
	}

	columns := table.Columns()
	pk := table.PrimaryKey()
	autoIncrement := dialect == DialectMySQL && len(pk) == 1

	var defs []string
	for _, col := range columns {
		def := col.Name + " " + columnTypeSQL(col.Type, dialect)
		if !col.Nullable() {
			def += " NOT NULL"
		}
		if autoIncrement && col.PrimaryKey && col.Type.Kind == models.IntegerKind {
			def += " AUTO_INCREMENT"
		}
		defs = append(defs, def)
	}
	if len(pk) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}
	for _, col := range columns {
		for _, fk := range col.ForeignKeys {
			defs = append(defs, fmt.Sprintf("FOREIGN KEY(%s) REFERENCES %s (%s)", col.Name, fk.Table, fk.Column))
		}
	}

	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", table.Name(), strings.Join(defs, ", \n\t")), nil
}

// CreateAllSQL renders CREATE TABLE statements for every table in creation order
func (c *Catalog) CreateAllSQL(dialect string) ([]string, error) {
	order, _ := c.CreationOrder()

	statements := make([]string, 0, len(order))
	for _, name := range order {
		table, err := c.LookupTable(name)
		if err != nil {
			return nil, err
		}
		stmt, err := CreateTableSQL(table, dialect)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

func columnTypeSQL(t models.ColumnType, dialect string) string {
	if t.Kind == models.StringKind && t.Length == 0 && dialect == DialectMySQL {
		return fmt.Sprintf("VARCHAR(%d)", mysqlDefaultVarchar)
	}
	return t.String()
}
