package models

import "fmt"

// TypeKind is the semantic tag of a column type
type TypeKind int

const (
	IntegerKind TypeKind = iota
	StringKind
	TextKind
	FloatKind
	BooleanKind
	DateTimeKind
)

// ColumnType is the declared type of a column. Length only applies to strings,
// zero meaning no maximum length.
type ColumnType struct {
	Kind   TypeKind
	Length int
}

func Integer() ColumnType  { return ColumnType{Kind: IntegerKind} }
func Text() ColumnType     { return ColumnType{Kind: TextKind} }
func Float() ColumnType    { return ColumnType{Kind: FloatKind} }
func Boolean() ColumnType  { return ColumnType{Kind: BooleanKind} }
func DateTime() ColumnType { return ColumnType{Kind: DateTimeKind} }

// String returns a string type, optionally bounded by a single max length
func String(length ...int) ColumnType {
	t := ColumnType{Kind: StringKind}
	if len(length) > 0 && length[0] > 0 {
		t.Length = length[0]
	}
	return t
}

// String renders the type tag, e.g. INTEGER or VARCHAR(30)
func (t ColumnType) String() string {
	switch t.Kind {
	case IntegerKind:
		return "INTEGER"
	case StringKind:
		if t.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", t.Length)
		}
		return "VARCHAR"
	case TextKind:
		return "TEXT"
	case FloatKind:
		return "FLOAT"
	case BooleanKind:
		return "BOOLEAN"
	case DateTimeKind:
		return "DATETIME"
	default:
		return "UNKNOWN"
	}
}

// ForeignKeyRef names the referenced column of a foreign key
type ForeignKeyRef struct {
	Table  string
	Column string
}

// String renders the reference as table.column
func (fk ForeignKeyRef) String() string {
	return fk.Table + "." + fk.Column
}

// Column represents a table column with its properties
type Column struct {
	Name        string
	Type        ColumnType
	NotNull     bool
	PrimaryKey  bool
	ForeignKeys []ForeignKeyRef
}

// ColumnOption configures a column at construction time
type ColumnOption func(*Column)

// PrimaryKey marks the column as part of the primary key. Primary key columns are never nullable.
func PrimaryKey() ColumnOption {
	return func(c *Column) {
		c.PrimaryKey = true
		c.NotNull = true
	}
}

// NotNull marks the column as not nullable
func NotNull() ColumnOption {
	return func(c *Column) {
		c.NotNull = true
	}
}

// ForeignKey adds a reference to table.column
func ForeignKey(table, column string) ColumnOption {
	return func(c *Column) {
		c.ForeignKeys = append(c.ForeignKeys, ForeignKeyRef{Table: table, Column: column})
	}
}

// NewColumn creates a nullable column and applies the given options
func NewColumn(name string, typ ColumnType, opts ...ColumnOption) Column {
	c := Column{Name: name, Type: typ}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Nullable reports whether the column accepts NULL
func (c Column) Nullable() bool {
	return !c.NotNull
}

// ForeignKey returns the first foreign key reference of the column, if any
func (c Column) ForeignKey() (ForeignKeyRef, bool) {
	if len(c.ForeignKeys) == 0 {
		return ForeignKeyRef{}, false
	}
	return c.ForeignKeys[0], true
}

func (c Column) clone() Column {
	if c.ForeignKeys != nil {
		c.ForeignKeys = append([]ForeignKeyRef(nil), c.ForeignKeys...)
	}
	return c
}

// Table is an immutable table definition
type Table struct {
	name    string
	columns []Column
}

// NewTable creates a table owning a copy of the given columns
func NewTable(name string, columns []Column) Table {
	owned := make([]Column, len(columns))
	for i, col := range columns {
		owned[i] = col.clone()
	}
	return Table{name: name, columns: owned}
}

// Name returns the table name
func (t Table) Name() string {
	return t.name
}

// Columns returns a copy of the columns in declaration order
func (t Table) Columns() []Column {
	columns := make([]Column, len(t.columns))
	for i, col := range t.columns {
		columns[i] = col.clone()
	}
	return columns
}

// Column looks up a column by name
func (t Table) Column(name string) (Column, bool) {
	for _, col := range t.columns {
		if col.Name == name {
			return col.clone(), true
		}
	}
	return Column{}, false
}

// PrimaryKey returns the names of the primary key columns
func (t Table) PrimaryKey() []string {
	var names []string
	for _, col := range t.columns {
		if col.PrimaryKey {
			names = append(names, col.Name)
		}
	}
	return names
}

// ReferencedTables returns the distinct tables referenced by foreign keys, in column order
func (t Table) ReferencedTables() []string {
	seen := make(map[string]bool)
	var tables []string
	for _, col := range t.columns {
		for _, fk := range col.ForeignKeys {
			if !seen[fk.Table] {
				seen[fk.Table] = true
				tables = append(tables, fk.Table)
			}
		}
	}
	return tables
}

// PopulationResult represents the result of the population process
type PopulationResult struct {
	SuccessfulTables []string
	FailedTables     []string
	TotalRecords     int
}

// VerificationResult represents the result of the verification process
type VerificationResult struct {
	Success                  bool
	EmptyTables              []string
	PartiallyPopulatedTables map[string]int
}
