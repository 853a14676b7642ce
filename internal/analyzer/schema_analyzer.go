package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/sqltour/internal/catalog"
	"github.com/vitebski/sqltour/internal/connector"
	"github.com/vitebski/sqltour/pkg/models"
)

// SchemaAnalyzer reflects a live database schema into a catalog
type SchemaAnalyzer struct {
	Engine           *connector.Engine
	Database         string
	Tables           []string
	Views            []string
	Catalog          *catalog.Catalog
	ManyToManyTables map[string]bool
	Logger           *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer. database names the MySQL
// schema to inspect and is ignored for SQLite.
func NewSchemaAnalyzer(engine *connector.Engine, database string, logger *logrus.Logger) *SchemaAnalyzer {
	return &SchemaAnalyzer{
		Engine:           engine,
		Database:         database,
		Catalog:          catalog.New(),
		ManyToManyTables: make(map[string]bool),
		Logger:           logger,
	}
}

// AnalyzeSchema reads tables, views, columns and foreign keys from the database
func (sa *SchemaAnalyzer) AnalyzeSchema(ctx context.Context) error {
	return sa.Engine.Connect(ctx, func(conn *connector.Connection) error {
		var (
			columns map[string][]models.Column
			err     error
		)
		if sa.Engine.Dialect() == connector.DriverMySQL {
			columns, err = sa.analyzeMySQL(ctx, conn)
		} else {
			columns, err = sa.analyzeSQLite(ctx, conn)
		}
		if err != nil {
			return err
		}

		for _, table := range sa.Tables {
			if len(columns[table]) == 0 {
				sa.Logger.Warningf("No columns found for table %s, skipping", table)
				continue
			}
			if _, err := sa.Catalog.RegisterTable(table, columns[table]); err != nil {
				sa.Logger.Errorf("Error registering table %s: %v", table, err)
				return err
			}
		}

		sa.ManyToManyTables = DetectManyToManyTables(sa.Catalog)
		sa.Logger.Infof("Analyzed %d tables and %d views", sa.Catalog.Len(), len(sa.Views))
		return nil
	})
}

func (sa *SchemaAnalyzer) analyzeSQLite(ctx context.Context, conn *connector.Connection) (map[string][]models.Column, error) {
	masterQuery := connector.Text(`
		SELECT name, type
		FROM sqlite_master
		WHERE type IN ('table', 'view')
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	result, err := conn.Execute(ctx, masterQuery)
	if err != nil {
		sa.Logger.Errorf("Error getting tables: %v", err)
		return nil, err
	}
	for _, row := range result.All() {
		name := stringValue(row.Get("name"))
		if stringValue(row.Get("type")) == "view" {
			sa.Views = append(sa.Views, name)
		} else {
			sa.Tables = append(sa.Tables, name)
		}
	}

	columns := make(map[string][]models.Column)
	for _, table := range sa.Tables {
		fkResult, err := conn.Execute(ctx, connector.Text("PRAGMA foreign_key_list(" + quoteIdentifier(table) + ")"))
		if err != nil {
			sa.Logger.Warningf("Failed to retrieve foreign keys for table %s: %v", table, err)
			continue
		}
		refs := make(map[string][]models.ForeignKeyRef)
		for _, row := range fkResult.All() {
			from := stringValue(row.Get("from"))
			refs[from] = append(refs[from], models.ForeignKeyRef{
				Table:  stringValue(row.Get("table")),
				Column: stringValue(row.Get("to")),
			})
		}

		infoResult, err := conn.Execute(ctx, connector.Text("PRAGMA table_info(" + quoteIdentifier(table) + ")"))
		if err != nil {
			sa.Logger.Warningf("Failed to retrieve columns for table %s: %v", table, err)
			continue
		}
		for _, row := range infoResult.All() {
			name := stringValue(row.Get("name"))
			col := models.Column{
				Name:        name,
				Type:        ParseColumnType(stringValue(row.Get("type")), 0),
				NotNull:     int64Value(row.Get("notnull")) != 0,
				PrimaryKey:  int64Value(row.Get("pk")) > 0,
				ForeignKeys: refs[name],
			}
			if col.PrimaryKey {
				col.NotNull = true
			}
			columns[table] = append(columns[table], col)
		}
	}
	return columns, nil
}

func (sa *SchemaAnalyzer) analyzeMySQL(ctx context.Context, conn *connector.Connection) (map[string][]models.Column, error) {
	if sa.Database == "" {
		// Fall back to the schema selected by the DSN
		current, err := conn.Execute(ctx, connector.Text("SELECT DATABASE()"))
		if err != nil {
			return nil, err
		}
		name, err := current.Scalar()
		if err != nil {
			return nil, err
		}
		sa.Database = stringValue(name)
		if sa.Database == "" {
			return nil, fmt.Errorf("no database selected")
		}
	}
	schema := connector.Params{"schema": sa.Database}

	tablesQuery := connector.Text(`
		SELECT table_name AS table_name, table_type AS table_type
		FROM information_schema.tables
		WHERE table_schema = :schema
		ORDER BY table_name
	`)
	tablesResult, err := conn.Execute(ctx, tablesQuery, schema)
	if err != nil {
		sa.Logger.Errorf("Error getting tables: %v", err)
		return nil, err
	}
	for _, row := range tablesResult.All() {
		name := stringValue(row.Get("table_name"))
		if stringValue(row.Get("table_type")) == "VIEW" {
			sa.Views = append(sa.Views, name)
		} else {
			sa.Tables = append(sa.Tables, name)
		}
	}

	fkQuery := connector.Text(`
		SELECT
			table_name AS table_name,
			column_name AS column_name,
			referenced_table_name AS referenced_table_name,
			referenced_column_name AS referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = :schema
		AND referenced_table_name IS NOT NULL
		ORDER BY table_name, column_name
	`)
	fkResult, err := conn.Execute(ctx, fkQuery, schema)
	if err != nil {
		sa.Logger.Errorf("Error getting foreign keys: %v", err)
		return nil, err
	}
	refs := make(map[string]map[string][]models.ForeignKeyRef)
	for _, row := range fkResult.All() {
		table := stringValue(row.Get("table_name"))
		column := stringValue(row.Get("column_name"))
		if refs[table] == nil {
			refs[table] = make(map[string][]models.ForeignKeyRef)
		}
		refs[table][column] = append(refs[table][column], models.ForeignKeyRef{
			Table:  stringValue(row.Get("referenced_table_name")),
			Column: stringValue(row.Get("referenced_column_name")),
		})
	}

	columnsQuery := connector.Text(`
		SELECT
			column_name AS column_name,
			data_type AS data_type,
			column_type AS column_type,
			character_maximum_length AS character_maximum_length,
			is_nullable AS is_nullable,
			column_key AS column_key
		FROM information_schema.columns
		WHERE table_schema = :schema
		AND table_name = :table
		ORDER BY ordinal_position
	`)
	columns := make(map[string][]models.Column)
	for _, table := range sa.Tables {
		columnsResult, err := conn.Execute(ctx, columnsQuery, connector.Params{"schema": sa.Database, "table": table})
		if err != nil {
			sa.Logger.Warningf("Failed to retrieve columns for table %s: %v", table, err)
			continue
		}
		for _, row := range columnsResult.All() {
			name := stringValue(row.Get("column_name"))
			dataType := stringValue(row.Get("data_type"))
			if strings.EqualFold(stringValue(row.Get("column_type")), "tinyint(1)") {
				dataType = "boolean"
			}
			col := models.Column{
				Name:        name,
				Type:        ParseColumnType(dataType, int(int64Value(row.Get("character_maximum_length")))),
				NotNull:     stringValue(row.Get("is_nullable")) != "YES",
				PrimaryKey:  stringValue(row.Get("column_key")) == "PRI",
				ForeignKeys: refs[table][name],
			}
			columns[table] = append(columns[table], col)
		}
	}
	return columns, nil
}

var typeLength = regexp.MustCompile(`\((\d+)\)`)

// ParseColumnType maps a declared SQL type onto a semantic column type.
// A length in the declaration, e.g. VARCHAR(30), wins over the length argument.
func ParseColumnType(declared string, length int) models.ColumnType {
	decl := strings.ToUpper(strings.TrimSpace(declared))
	if m := typeLength.FindStringSubmatch(decl); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			length = n
		}
	}
	base := decl
	if i := strings.IndexAny(base, "( "); i >= 0 {
		base = base[:i]
	}

	switch base {
	case "INTEGER", "INT", "BIGINT", "SMALLINT", "MEDIUMINT":
		return models.Integer()
	case "TINYINT":
		if length == 1 {
			return models.Boolean()
		}
		return models.Integer()
	case "VARCHAR", "CHAR", "NVARCHAR", "NCHAR", "CHARACTER":
		return models.String(length)
	case "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "CLOB":
		return models.Text()
	case "FLOAT", "REAL", "DOUBLE", "DECIMAL", "NUMERIC":
		return models.Float()
	case "BOOLEAN", "BOOL":
		return models.Boolean()
	case "DATETIME", "TIMESTAMP", "DATE":
		return models.DateTime()
	default:
		return models.Text()
	}
}

// DetectManyToManyTables finds association tables: at least two foreign keys to
// different tables, making up most of the columns and covered by the primary key.
func DetectManyToManyTables(cat *catalog.Catalog) map[string]bool {
	manyToMany := make(map[string]bool)
	for _, table := range cat.Tables() {
		columns := table.Columns()
		if len(columns) == 0 {
			continue
		}

		fks := 0
		pkColumns := 0
		for _, col := range columns {
			if _, ok := col.ForeignKey(); ok {
				fks++
			}
			if col.PrimaryKey {
				pkColumns++
			}
		}

		if fks >= 2 && float64(fks)/float64(len(columns)) >= 0.5 && pkColumns >= fks-1 {
			if len(table.ReferencedTables()) >= 2 {
				manyToMany[table.Name()] = true
			}
		}
	}
	return manyToMany
}

// quoteIdentifier wraps a name in double quotes, doubling any embedded quote
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

func int64Value(v interface{}) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case int64:
		return val
	default:
		n, _ := strconv.ParseInt(fmt.Sprintf("%v", val), 10, 64)
		return n
	}
}
