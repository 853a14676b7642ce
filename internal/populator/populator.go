package populator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/sqltour/internal/catalog"
	"github.com/vitebski/sqltour/internal/connector"
	"github.com/vitebski/sqltour/internal/generator"
	"github.com/vitebski/sqltour/pkg/models"
)

// batchSize is the number of records inserted per statement batch
const batchSize = 100

// DatabasePopulator populates catalog tables with fake data
type DatabasePopulator struct {
	Engine        *connector.Engine
	Catalog       *catalog.Catalog
	DataGenerator *generator.DataGenerator
	NumRecords    int
	// InsertedKeys holds, per table and column, the values other tables may reference
	InsertedKeys map[string]map[string][]interface{}
	FailedTables map[string]bool
	Logger       *logrus.Logger
}

// NewDatabasePopulator creates a new database populator
func NewDatabasePopulator(
	engine *connector.Engine,
	cat *catalog.Catalog,
	dataGenerator *generator.DataGenerator,
	numRecords int,
	logger *logrus.Logger,
) *DatabasePopulator {
	return &DatabasePopulator{
		Engine:        engine,
		Catalog:       cat,
		DataGenerator: dataGenerator,
		NumRecords:    numRecords,
		InsertedKeys:  make(map[string]map[string][]interface{}),
		FailedTables:  make(map[string]bool),
		Logger:        logger,
	}
}

// PopulateDatabase fills every table, referenced tables first. Foreign keys
// inside a cycle are inserted as NULL and filled in by a second pass.
func (dp *DatabasePopulator) PopulateDatabase(ctx context.Context) models.PopulationResult {
	orderedTables, circularTables := dp.Catalog.CreationOrder()
	result := models.PopulationResult{}

	for _, name := range orderedTables {
		var inserted int
		table, err := dp.Catalog.LookupTable(name)
		if err == nil {
			inserted, err = dp.populateTable(ctx, table, circularTables)
		}
		if err != nil {
			dp.Logger.Errorf("Error populating table %s: %v", name, err)
			dp.FailedTables[name] = true
			result.FailedTables = append(result.FailedTables, name)
			continue
		}
		result.SuccessfulTables = append(result.SuccessfulTables, name)
		result.TotalRecords += inserted
	}

	for _, name := range orderedTables {
		if !circularTables[name] || dp.FailedTables[name] {
			continue
		}
		if err := dp.resolveCircularKeys(ctx, name, circularTables); err != nil {
			dp.Logger.Warningf("Could not resolve circular foreign keys for %s: %v", name, err)
		}
	}

	return result
}

// populateTable inserts NumRecords generated rows into a single table and
// returns how many were inserted
func (dp *DatabasePopulator) populateTable(ctx context.Context, table models.Table, circularTables map[string]bool) (int, error) {
	dp.Logger.Infof("Populating table: %s", table.Name())

	columns := insertableColumns(table)
	if len(columns) == 0 {
		dp.Logger.Warningf("No insertable columns found for table: %s", table.Name())
		return 0, nil
	}

	var columnNames []string
	var placeholders []string
	for _, col := range columns {
		columnNames = append(columnNames, col.Name)
		placeholders = append(placeholders, ":"+col.Name)
	}
	insertSQL := connector.Text(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table.Name(),
		strings.Join(columnNames, ", "),
		strings.Join(placeholders, ", "),
	))

	err := dp.Engine.Begin(ctx, func(conn *connector.Connection) error {
		var batch []connector.Params
		for i := 0; i < dp.NumRecords; i++ {
			record, err := dp.generateRecord(table.Name(), columns, circularTables)
			if err != nil {
				return err
			}
			batch = append(batch, record)

			if len(batch) >= batchSize || i == dp.NumRecords-1 {
				if err := dp.insertBatch(ctx, conn, insertSQL, batch); err != nil {
					return err
				}
				batch = nil
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := dp.collectKeys(ctx, table.Name()); err != nil {
		return 0, err
	}

	dp.Logger.Infof("Successfully populated table %s with %d records", table.Name(), dp.NumRecords)
	return dp.NumRecords, nil
}

func (dp *DatabasePopulator) insertBatch(ctx context.Context, conn *connector.Connection, stmt connector.TextClause, batch []connector.Params) error {
	// A single Params runs as a plain statement, several as a prepared batch
	_, err := conn.Execute(ctx, stmt, batch...)
	return err
}

// generateRecord builds one row. Foreign keys take a value already inserted in
// the referenced table; circular ones start out NULL.
func (dp *DatabasePopulator) generateRecord(table string, columns []models.Column, circularTables map[string]bool) (connector.Params, error) {
	record := make(connector.Params, len(columns))
	for _, col := range columns {
		fk, hasFK := col.ForeignKey()
		if !hasFK {
			record[col.Name] = dp.DataGenerator.GenerateData(table, col)
			continue
		}

		if circularTables[fk.Table] && circularTables[table] && col.Nullable() {
			record[col.Name] = nil
			continue
		}

		value, ok := dp.randomKey(fk)
		if !ok {
			if col.Nullable() {
				record[col.Name] = nil
				continue
			}
			return nil, fmt.Errorf("no rows in %s to reference from %s.%s", fk, table, col.Name)
		}
		record[col.Name] = value
	}
	return record, nil
}

// resolveCircularKeys points the NULL circular foreign keys of a table at existing rows
func (dp *DatabasePopulator) resolveCircularKeys(ctx context.Context, name string, circularTables map[string]bool) error {
	table, err := dp.Catalog.LookupTable(name)
	if err != nil {
		return err
	}
	pk := table.PrimaryKey()
	if len(pk) != 1 {
		dp.Logger.Warningf("Table %s has no single column primary key, skipping circular update", name)
		return nil
	}
	pkValues := dp.InsertedKeys[name][pk[0]]

	return dp.Engine.Begin(ctx, func(conn *connector.Connection) error {
		for _, col := range table.Columns() {
			fk, ok := col.ForeignKey()
			if !ok || !circularTables[fk.Table] || !col.Nullable() {
				continue
			}
			update := connector.Text(fmt.Sprintf("UPDATE %s SET %s = :value WHERE %s = :pk", name, col.Name, pk[0]))
			for _, pkValue := range pkValues {
				value, ok := dp.randomKey(fk)
				if !ok {
					break
				}
				if _, err := conn.Execute(ctx, update, connector.Params{"value": value, "pk": pkValue}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// collectKeys reads back the columns of a table that other tables reference
func (dp *DatabasePopulator) collectKeys(ctx context.Context, name string) error {
	referenced := dp.referencedColumns(name)
	if len(referenced) == 0 {
		return nil
	}

	query := connector.Text(fmt.Sprintf("SELECT %s FROM %s", strings.Join(referenced, ", "), name))
	return dp.Engine.Connect(ctx, func(conn *connector.Connection) error {
		result, err := conn.Execute(ctx, query)
		if err != nil {
			return err
		}
		keys := make(map[string][]interface{}, len(referenced))
		for _, row := range result.All() {
			for _, col := range referenced {
				if v := row.Get(col); v != nil {
					keys[col] = append(keys[col], v)
				}
			}
		}
		dp.InsertedKeys[name] = keys
		return nil
	})
}

// referencedColumns lists the columns of name referenced by any foreign key,
// plus its primary key
func (dp *DatabasePopulator) referencedColumns(name string) []string {
	seen := make(map[string]bool)
	var columns []string
	add := func(col string) {
		if !seen[col] {
			seen[col] = true
			columns = append(columns, col)
		}
	}

	table, err := dp.Catalog.LookupTable(name)
	if err != nil {
		return nil
	}
	for _, col := range table.PrimaryKey() {
		add(col)
	}
	for _, other := range dp.Catalog.Tables() {
		for _, col := range other.Columns() {
			for _, fk := range col.ForeignKeys {
				if fk.Table == name {
					add(fk.Column)
				}
			}
		}
	}
	return columns
}

func (dp *DatabasePopulator) randomKey(fk models.ForeignKeyRef) (interface{}, bool) {
	values := dp.InsertedKeys[fk.Table][fk.Column]
	if len(values) == 0 {
		return nil, false
	}
	return values[rand.Intn(len(values))], true
}

// insertableColumns skips a single integer primary key, the database generates it
func insertableColumns(table models.Table) []models.Column {
	pk := table.PrimaryKey()
	var columns []models.Column
	for _, col := range table.Columns() {
		if len(pk) == 1 && col.PrimaryKey && col.Type.Kind == models.IntegerKind {
			continue
		}
		columns = append(columns, col)
	}
	return columns
}
