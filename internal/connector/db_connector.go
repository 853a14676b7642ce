package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	// MemoryDSN opens a private in-memory SQLite database
	MemoryDSN = ":memory:"
)

var (
	ErrNotConnected = errors.New("engine is not connected")
	ErrNoRows       = errors.New("result has no rows")
)

// Engine owns the connection pool for one database and hands out scoped connections
type Engine struct {
	Driver string
	DSN    string
	Echo   bool
	DB     *sql.DB
	Logger *logrus.Logger
}

// NewEngine creates a new engine. Empty driver and dsn fall back to
// SQLTOUR_DRIVER and SQLTOUR_DSN, then to an in-memory SQLite database.
func NewEngine(driver, dsn string, echo bool, logger *logrus.Logger) *Engine {
	if driver == "" {
		driver = getEnvOrDefault("SQLTOUR_DRIVER", DriverSQLite)
	}
	if dsn == "" {
		dsn = getEnvOrDefault("SQLTOUR_DSN", MemoryDSN)
	}

	return &Engine{
		Driver: driver,
		DSN:    dsn,
		Echo:   echo,
		Logger: logger,
	}
}

// NewEngineFromDB wraps an already opened pool
func NewEngineFromDB(db *sql.DB, driver string, logger *logrus.Logger) *Engine {
	return &Engine{
		Driver: driver,
		DB:     db,
		Logger: logger,
	}
}

// MySQLDSN builds a go-sql-driver DSN from its parts
func MySQLDSN(host, user, password, database, port string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Dialect returns the SQL dialect spoken by the engine's driver
func (e *Engine) Dialect() string {
	if e.Driver == DriverMySQL {
		return DriverMySQL
	}
	return DriverSQLite
}

// Open establishes the connection pool and checks that the database answers
func (e *Engine) Open(ctx context.Context) error {
	if e.DB != nil {
		return e.DB.PingContext(ctx)
	}
	if e.Driver != DriverSQLite && e.Driver != DriverMySQL {
		return fmt.Errorf("unsupported driver: %s", e.Driver)
	}
	if e.DSN == "" {
		return fmt.Errorf("a data source name must be provided either as an argument or as SQLTOUR_DSN environment variable")
	}

	dsn := e.DSN
	// foreign_keys is a per-connection setting, have every pooled connection enable it
	if e.Driver == DriverSQLite && !isMemoryDSN(dsn) && !strings.Contains(dsn, "foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}

	db, err := sql.Open(e.Driver, dsn)
	if err != nil {
		e.Logger.Errorf("Error opening %s database: %v", e.Driver, err)
		return err
	}

	// Every new connection to :memory: is a fresh, empty database
	if e.Driver == DriverSQLite && isMemoryDSN(e.DSN) {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		e.Logger.Errorf("Error pinging %s database: %v", e.Driver, err)
		db.Close()
		return err
	}

	if e.Driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			e.Logger.Errorf("Error enabling foreign keys: %v", err)
			db.Close()
			return err
		}
	}

	e.DB = db
	e.Logger.Infof("Connected to %s database: %s", e.Driver, e.displayDSN())
	return nil
}

// Close closes the connection pool
func (e *Engine) Close() {
	if e.DB != nil {
		err := e.DB.Close()
		if err != nil {
			e.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			e.Logger.Infof("%s connection closed", e.Driver)
		}
		e.DB = nil
	}
}

// Connect runs fn with a connection that is released on every exit path.
// A transaction still open when fn returns is rolled back.
func (e *Engine) Connect(ctx context.Context, fn func(*Connection) error) (err error) {
	if e.DB == nil {
		return ErrNotConnected
	}

	conn, err := e.DB.Conn(ctx)
	if err != nil {
		e.Logger.Errorf("Error acquiring connection: %v", err)
		return err
	}

	c := &Connection{engine: e, conn: conn}
	defer func() {
		if rerr := c.release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	return fn(c)
}

// Begin runs fn inside a transaction that is committed when fn returns nil
// and rolled back otherwise.
func (e *Engine) Begin(ctx context.Context, fn func(*Connection) error) error {
	return e.Connect(ctx, func(c *Connection) error {
		if err := c.begin(ctx, false); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			if rerr := c.Rollback(); rerr != nil {
				e.Logger.Errorf("Error rolling back transaction: %v", rerr)
			}
			return err
		}
		return c.Commit()
	})
}

func (e *Engine) logStatement(query string, args []interface{}) {
	if !e.Echo {
		return
	}
	if len(args) == 0 {
		e.Logger.Info(query)
		return
	}
	e.Logger.WithField("params", args).Info(query)
}

func (e *Engine) displayDSN() string {
	if e.Driver != DriverMySQL {
		return e.DSN
	}
	cfg, err := mysql.ParseDSN(e.DSN)
	if err != nil {
		return e.Driver
	}
	return cfg.DBName
}

func isMemoryDSN(dsn string) bool {
	return dsn == MemoryDSN || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvBool gets a boolean value from an environment variable
func GetEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
