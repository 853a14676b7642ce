package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vitebski/sqltour/pkg/models"
)

var (
	ErrDuplicateTable    = errors.New("table already exists")
	ErrTableNotFound     = errors.New("table not found")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrInvalidTable      = errors.New("invalid table definition")
	ErrInvalidForeignKey = errors.New("invalid foreign key")
)

// Catalog is an in-memory registry of table definitions
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]models.Table
	order  []string
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{
		tables: make(map[string]models.Table),
	}
}

// RegisterTable adds a new table to the catalog. Registration is all or nothing:
// on error the catalog is left unchanged.
func (c *Catalog) RegisterTable(name string, columns []models.Column) (models.Table, error) {
	if name == "" {
		return models.Table{}, fmt.Errorf("%w: table name is empty", ErrInvalidTable)
	}
	if len(columns) == 0 {
		return models.Table{}, fmt.Errorf("%w: table %s has no columns", ErrInvalidTable, name)
	}

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if col.Name == "" {
			return models.Table{}, fmt.Errorf("%w: table %s has a column without a name", ErrInvalidTable, name)
		}
		if seen[col.Name] {
			return models.Table{}, fmt.Errorf("%w: %s.%s", ErrDuplicateColumn, name, col.Name)
		}
		seen[col.Name] = true
	}

	table := models.NewTable(name, columns)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[name]; exists {
		return models.Table{}, fmt.Errorf("%w: %s", ErrDuplicateTable, name)
	}

	c.tables[name] = table
	c.order = append(c.order, name)
	return table, nil
}

// LookupTable returns the table registered under name, or an error wrapping ErrTableNotFound
func (c *Catalog) LookupTable(name string) (models.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	table, ok := c.tables[name]
	if !ok {
		return models.Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return table, nil
}

// Tables returns all tables in registration order
func (c *Catalog) Tables() []models.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tables := make([]models.Table, 0, len(c.order))
	for _, name := range c.order {
		tables = append(tables, c.tables[name])
	}
	return tables
}

// TableNames returns the table names in registration order
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]string(nil), c.order...)
}

// Len returns the number of registered tables
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.order)
}

// Validate checks that every foreign key points at a registered table and column.
// All problems are reported, each wrapping ErrInvalidForeignKey.
func (c *Catalog) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	for _, name := range c.order {
		for _, col := range c.tables[name].Columns() {
			for _, fk := range col.ForeignKeys {
				target, ok := c.tables[fk.Table]
				if !ok {
					errs = append(errs, fmt.Errorf("%w: %s.%s references missing table %s", ErrInvalidForeignKey, name, col.Name, fk.Table))
					continue
				}
				if _, ok := target.Column(fk.Column); !ok {
					errs = append(errs, fmt.Errorf("%w: %s.%s references missing column %s", ErrInvalidForeignKey, name, col.Name, fk))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// DescribeTable renders one line per column, in declaration order.
// Each line holds five tab separated fields: name, type, nullability ("NOT NULL"
// or empty), primary key marker ("PK" or empty) and the foreign key reference.
// Only the first foreign key of a column is rendered.
func DescribeTable(table models.Table) []string {
	columns := table.Columns()
	lines := make([]string, 0, len(columns))
	for _, col := range columns {
		nullable := ""
		if !col.Nullable() {
			nullable = "NOT NULL"
		}
		pk := ""
		if col.PrimaryKey {
			pk = "PK"
		}
		ref := ""
		if fk, ok := col.ForeignKey(); ok {
			ref = fk.String()
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s\t%s\t%s", col.Name, col.Type, nullable, pk, ref))
	}
	return lines
}

// Describe looks up a table by name and renders it with DescribeTable
func (c *Catalog) Describe(name string) ([]string, error) {
	table, err := c.LookupTable(name)
	if err != nil {
		return nil, err
	}
	return DescribeTable(table), nil
}
