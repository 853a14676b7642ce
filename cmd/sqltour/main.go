package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/sqltour/internal/analyzer"
	"github.com/vitebski/sqltour/internal/catalog"
	"github.com/vitebski/sqltour/internal/connector"
	"github.com/vitebski/sqltour/internal/entity"
	"github.com/vitebski/sqltour/internal/generator"
	"github.com/vitebski/sqltour/internal/populator"
	"github.com/vitebski/sqltour/internal/tutorial"
	"github.com/vitebski/sqltour/internal/utils"
)

// options holds the flags shared by every subcommand
type options struct {
	driver   string
	dsn      string
	echo     bool
	envFile  string
	logLevel string

	host     string
	user     string
	password string
	database string
	port     string

	logger *logrus.Logger
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "sqltour",
		Short: "A guided tour of database access with a metadata catalog",
		Long: `sqltour

Connects to SQLite (default, in memory) or MySQL, walks through executing
statements, transactions and fetching rows, declares tables in a metadata
catalog and creates, reflects and populates them.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = utils.SetupLogging(opts.logLevel)
			utils.LoadEnvironmentVariables(opts.envFile, opts.logger)
			if !cmd.Flags().Changed("echo") {
				opts.echo = connector.GetEnvBool("SQLTOUR_ECHO", opts.echo)
			}
		},
		// Without a subcommand run the engine tour followed by the entity tour
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd.Context(), func(ctx context.Context, engine *connector.Engine) error {
				if err := tutorial.New(engine, cmd.OutOrStdout(), opts.logger).Run(ctx); err != nil {
					return err
				}
				return runORM(ctx, cmd, engine, opts.logger)
			})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.driver, "driver", "", "Database driver: sqlite or mysql (default: $SQLTOUR_DRIVER or sqlite)")
	flags.StringVar(&opts.dsn, "dsn", "", "Data source name (default: $SQLTOUR_DSN or :memory:)")
	flags.BoolVar(&opts.echo, "echo", false, "Log every statement and its parameters")
	flags.StringVarP(&opts.envFile, "env-file", "e", ".env", "Path to .env file")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	flags.StringVarP(&opts.host, "host", "H", "", "MySQL host, used when --dsn is empty (default: localhost)")
	flags.StringVarP(&opts.user, "user", "u", "", "MySQL user (default: root)")
	flags.StringVarP(&opts.password, "password", "p", "", "MySQL password")
	flags.StringVarP(&opts.database, "database", "d", "", "MySQL database name")
	flags.StringVarP(&opts.port, "port", "P", "", "MySQL port (default: 3306)")

	rootCmd.AddCommand(
		newEngineCmd(opts),
		newORMCmd(opts),
		newSchemaCmd(opts),
		newPopulateCmd(opts),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newEngineCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "engine",
		Short: "Connect, execute, commit and fetch rows step by step",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd.Context(), func(ctx context.Context, engine *connector.Engine) error {
				return tutorial.New(engine, cmd.OutOrStdout(), opts.logger).Run(ctx)
			})
		},
	}
}

func newORMCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "orm",
		Short: "Declare user_account and address, store sample users and load them back",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd.Context(), func(ctx context.Context, engine *connector.Engine) error {
				return runORM(ctx, cmd, engine, opts.logger)
			})
		},
	}
}

func newSchemaCmd(opts *options) *cobra.Command {
	var (
		reflect bool
		ddl     bool
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the metadata catalog report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd.Context(), func(ctx context.Context, engine *connector.Engine) error {
				cat := catalog.New()
				manyToMany := map[string]bool{}

				if reflect {
					schemaAnalyzer := analyzer.NewSchemaAnalyzer(engine, opts.database, opts.logger)
					if err := schemaAnalyzer.AnalyzeSchema(ctx); err != nil {
						return fmt.Errorf("failed to analyze schema: %w", err)
					}
					cat = schemaAnalyzer.Catalog
					manyToMany = schemaAnalyzer.ManyToManyTables
				} else if err := entity.Declare(cat); err != nil {
					return err
				}

				dialect := ""
				if ddl {
					dialect = engine.Dialect()
				}
				return utils.PrintSchemaCatalog(cmd.OutOrStdout(), cat, manyToMany, dialect)
			})
		},
	}

	cmd.Flags().BoolVarP(&reflect, "reflect", "a", false, "Reflect the connected database instead of the declared tables")
	cmd.Flags().BoolVar(&ddl, "ddl", true, "Print the CREATE TABLE statements for the engine's dialect")
	return cmd
}

func newPopulateCmd(opts *options) *cobra.Command {
	var (
		records    int
		minRecords int
		seed       int64
		reflect    bool
		create     bool
		verify     bool
	)

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Fill tables with realistic fake data in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("records") {
				records = utils.GetEnvInt("SQLTOUR_RECORDS", records)
			}

			return opts.withEngine(cmd.Context(), func(ctx context.Context, engine *connector.Engine) error {
				cat := catalog.New()
				if reflect {
					schemaAnalyzer := analyzer.NewSchemaAnalyzer(engine, opts.database, opts.logger)
					if err := schemaAnalyzer.AnalyzeSchema(ctx); err != nil {
						return fmt.Errorf("failed to analyze schema: %w", err)
					}
					cat = schemaAnalyzer.Catalog
				} else {
					if err := entity.Declare(cat); err != nil {
						return err
					}
					if create {
						if err := engine.CreateAll(ctx, cat); err != nil {
							return err
						}
					}
				}
				if cat.Len() == 0 {
					return errors.New("no tables found in database")
				}

				dataGenerator := generator.NewDataGenerator(opts.logger)
				if cmd.Flags().Changed("seed") {
					dataGenerator = generator.NewSeededDataGenerator(seed, opts.logger)
				}

				opts.logger.Info("Starting database population...")
				dbPopulator := populator.NewDatabasePopulator(engine, cat, dataGenerator, records, opts.logger)
				result := dbPopulator.PopulateDatabase(ctx)
				utils.PrintSummary(cmd.OutOrStdout(), result)

				if verify {
					verification := utils.VerifyTablePopulation(ctx, engine, cat.TableNames(), minRecords, opts.logger)
					utils.PrintVerificationResults(cmd.OutOrStdout(), verification, minRecords)
					if !verification.Success {
						return errors.New("table population verification failed")
					}
				}
				if len(result.FailedTables) > 0 {
					return fmt.Errorf("failed to populate %d tables", len(result.FailedTables))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&records, "records", "r", 10, "Number of records to generate per table (default: $SQLTOUR_RECORDS or 10)")
	cmd.Flags().IntVarP(&minRecords, "min-records", "n", 1, "Minimum number of records each table should have for verification")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for reproducible fake data")
	cmd.Flags().BoolVarP(&reflect, "reflect", "a", false, "Populate the reflected schema of the connected database")
	cmd.Flags().BoolVar(&create, "create", true, "Create the declared tables before populating them")
	cmd.Flags().BoolVarP(&verify, "verify", "v", false, "Verify that all tables have been populated with the expected number of records")
	return cmd
}

// runORM stores the sample users and prints them as they are loaded back
func runORM(ctx context.Context, cmd *cobra.Command, engine *connector.Engine, logger *logrus.Logger) error {
	cat := catalog.New()
	if err := entity.Declare(cat); err != nil {
		return err
	}
	if err := engine.CreateAll(ctx, cat); err != nil {
		return err
	}

	repo := entity.NewRepository(engine, logger)
	if err := repo.SaveUsers(ctx, entity.SampleUsers()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	users, err := repo.Users(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintln(out, u)
		for _, a := range u.Addresses {
			fmt.Fprintf(out, "  %s -> %s\n", a, a.User.Name)
		}
	}

	sandy, err := repo.UserByName(ctx, "sandy")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s has %d addresses\n", sandy, len(sandy.Addresses))
	return nil
}

// withEngine opens the configured engine, runs fn and closes the engine
func (o *options) withEngine(ctx context.Context, fn func(context.Context, *connector.Engine) error) error {
	driver := o.driver
	if driver == "" {
		driver = os.Getenv("SQLTOUR_DRIVER")
	}

	dsn := o.dsn
	if driver == connector.DriverMySQL && dsn == "" && os.Getenv("SQLTOUR_DSN") == "" {
		host := firstNonEmpty(o.host, os.Getenv("MYSQL_HOST"), "localhost")
		user := firstNonEmpty(o.user, os.Getenv("MYSQL_USER"), "root")
		password := firstNonEmpty(o.password, os.Getenv("MYSQL_PASSWORD"))
		o.database = firstNonEmpty(o.database, os.Getenv("MYSQL_DATABASE"))
		port := firstNonEmpty(o.port, os.Getenv("MYSQL_PORT"), "3306")

		if !utils.ValidateConnectionParams(host, user, password, o.database, port, o.logger) {
			return errors.New("invalid MySQL connection parameters")
		}
		dsn = connector.MySQLDSN(host, user, password, o.database, port)
	}

	engine := connector.NewEngine(driver, dsn, o.echo, o.logger)
	if err := engine.Open(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer engine.Close()

	return fn(ctx, engine)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
