package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/sqltour/internal/catalog"
	"github.com/vitebski/sqltour/internal/connector"
	"github.com/vitebski/sqltour/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("SQLTOUR_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from an .env file.
// It reports whether the file was found and loaded.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		} else {
			logger.Debugf("No %s file found, using existing environment variables", envFile)
		}
		return false
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warningf("Error loading %s file: %v", envFile, err)
		return false
	}
	logger.Infof("Loaded environment variables from %s", envFile)

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		for _, env := range os.Environ() {
			if !strings.HasPrefix(env, "SQLTOUR_") && !strings.HasPrefix(env, "MYSQL_") {
				continue
			}
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 {
				continue
			}
			if parts[0] == "MYSQL_PASSWORD" {
				logger.Debugf("%s=********", parts[0])
			} else {
				logger.Debugf("%s=%s", parts[0], parts[1])
			}
		}
	}

	return true
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// ValidateConnectionParams validates MySQL connection parameters
func ValidateConnectionParams(host, user, password, database, port string, logger *logrus.Logger) bool {
	if host == "" {
		logger.Error("Database host is required")
		return false
	}

	if user == "" {
		logger.Error("Database user is required")
		return false
	}

	if password == "" { // Empty password is allowed
		logger.Warning("Database password is empty")
	}

	if database == "" {
		logger.Error("Database name is required")
		return false
	}

	if _, err := strconv.Atoi(port); err != nil {
		logger.Errorf("Invalid port number: %s", port)
		return false
	}

	return true
}

// PrintSummary prints a summary of the population process
func PrintSummary(w io.Writer, result models.PopulationResult) {
	totalTables := len(result.SuccessfulTables) + len(result.FailedTables)

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "DATABASE POPULATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Total tables processed: %d\n", totalTables)
	fmt.Fprintf(w, "Successfully populated tables: %d\n", len(result.SuccessfulTables))
	fmt.Fprintf(w, "Failed tables: %d\n", len(result.FailedTables))
	fmt.Fprintf(w, "Total records inserted: %d\n", result.TotalRecords)

	if len(result.FailedTables) > 0 {
		fmt.Fprintln(w, "\nFailed tables:")
		for _, table := range result.FailedTables {
			fmt.Fprintf(w, "  - %s\n", table)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// PrintSchemaCatalog prints every table of the catalog, the creation order and,
// when dialect is not empty, the DDL that would create the schema.
func PrintSchemaCatalog(w io.Writer, cat *catalog.Catalog, manyToManyTables map[string]bool, dialect string) error {
	orderedTables, circularTables := cat.CreationOrder()

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "SCHEMA CATALOG REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "\n1. TABLES")
	for _, table := range cat.Tables() {
		fmt.Fprintf(w, "\n   %s\n", table.Name())
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, line := range catalog.DescribeTable(table) {
			fmt.Fprintf(tw, "     %s\n", line)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	var circularList []string
	for table := range circularTables {
		circularList = append(circularList, table)
	}
	sort.Strings(circularList)

	if len(circularList) > 0 {
		fmt.Fprintln(w, "\n2. CIRCULAR DEPENDENCIES")
		fmt.Fprintf(w, "   Tables involved: %s\n", strings.Join(circularList, ", "))
	}

	if len(manyToManyTables) > 0 {
		var list []string
		for table := range manyToManyTables {
			list = append(list, table)
		}
		sort.Strings(list)
		fmt.Fprintln(w, "\n3. MANY-TO-MANY RELATIONSHIP TABLES")
		fmt.Fprintf(w, "   Tables: %s\n", strings.Join(list, ", "))
	}

	fmt.Fprintln(w, "\n4. TABLE CREATION ORDER")
	for i, name := range orderedTables {
		category := "Standalone"
		table, err := cat.LookupTable(name)
		if err != nil {
			return err
		}
		switch {
		case manyToManyTables[name]:
			category = "Many-to-Many"
		case circularTables[name]:
			category = "Circular"
		case len(table.ReferencedTables()) > 0:
			category = "Dependent"
		}
		fmt.Fprintf(w, "   %3d. %s (%s)\n", i+1, name, category)
	}

	if dialect != "" {
		statements, err := cat.CreateAllSQL(dialect)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n5. DDL (%s)\n", dialect)
		for _, stmt := range statements {
			fmt.Fprintf(w, "\n%s;\n", stmt)
		}
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	return nil
}

// VerifyTablePopulation verifies that all tables have at least the minimum number of records
func VerifyTablePopulation(ctx context.Context, engine *connector.Engine, tables []string, minRecords int, logger *logrus.Logger) models.VerificationResult {
	logger.Infof("Verifying that all tables have at least %d record(s)...", minRecords)

	result := models.VerificationResult{
		EmptyTables:              []string{},
		PartiallyPopulatedTables: make(map[string]int),
	}

	for _, table := range tables {
		var count int64
		err := engine.Connect(ctx, func(conn *connector.Connection) error {
			rows, err := conn.Execute(ctx, connector.Text(fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", table)))
			if err != nil {
				return err
			}
			row, err := rows.First()
			if err != nil {
				return err
			}
			return row.Scan(&count)
		})
		if err != nil {
			logger.Warningf("Could not verify record count for table %s: %v", table, err)
			result.EmptyTables = append(result.EmptyTables, table)
			continue
		}

		if count == 0 {
			logger.Warningf("Table %s has no records", table)
			result.EmptyTables = append(result.EmptyTables, table)
		} else if count < int64(minRecords) {
			logger.Warningf("Table %s has only %d/%d expected records", table, count, minRecords)
			result.PartiallyPopulatedTables[table] = int(count)
		}
	}

	result.Success = len(result.EmptyTables) == 0 && len(result.PartiallyPopulatedTables) == 0

	if result.Success {
		logger.Info("Verification successful: All tables have at least the minimum number of records")
	} else {
		if len(result.EmptyTables) > 0 {
			logger.Errorf("Verification failed: %d tables have no records", len(result.EmptyTables))
		}
		if len(result.PartiallyPopulatedTables) > 0 {
			logger.Errorf("Verification failed: %d tables are partially populated", len(result.PartiallyPopulatedTables))
		}
	}

	return result
}

// PrintVerificationResults prints the results of the table population verification
func PrintVerificationResults(w io.Writer, result models.VerificationResult, minRecords int) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "TABLE POPULATION VERIFICATION RESULTS")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	if len(result.EmptyTables) == 0 && len(result.PartiallyPopulatedTables) == 0 {
		fmt.Fprintf(w, "✅ All tables have at least %d record(s)\n", minRecords)
		fmt.Fprintln(w, strings.Repeat("=", 50))
		return
	}

	if len(result.EmptyTables) > 0 {
		fmt.Fprintf(w, "❌ %d tables have no records:\n", len(result.EmptyTables))
		for _, table := range result.EmptyTables {
			fmt.Fprintf(w, "  - %s\n", table)
		}
		fmt.Fprintln(w)
	}

	if len(result.PartiallyPopulatedTables) > 0 {
		tables := make([]string, 0, len(result.PartiallyPopulatedTables))
		for table := range result.PartiallyPopulatedTables {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		fmt.Fprintf(w, "⚠️  %d tables are partially populated:\n", len(tables))
		for _, table := range tables {
			fmt.Fprintf(w, "  - %s: %d/%d records\n", table, result.PartiallyPopulatedTables[table], minRecords)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}
