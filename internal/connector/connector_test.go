package connector

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// Helper function to create a silent test logger
func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func newMockEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEngineFromDB(db, DriverSQLite, createTestLogger()), mock
}

func TestNewEngine(t *testing.T) {
	os.Setenv("SQLTOUR_DRIVER", "mysql")
	os.Setenv("SQLTOUR_DSN", "root:secret@tcp(db:3306)/tour")
	defer os.Unsetenv("SQLTOUR_DRIVER")
	defer os.Unsetenv("SQLTOUR_DSN")

	logger := createTestLogger()

	engine := NewEngine("", "", false, logger)
	if engine.Driver != "mysql" {
		t.Errorf("Expected driver to be 'mysql', got '%s'", engine.Driver)
	}
	if engine.DSN != "root:secret@tcp(db:3306)/tour" {
		t.Errorf("Expected DSN from environment, got '%s'", engine.DSN)
	}
	if engine.Dialect() != "mysql" {
		t.Errorf("Expected dialect to be 'mysql', got '%s'", engine.Dialect())
	}

	engine = NewEngine("sqlite", "tour.db", true, logger)
	if engine.Driver != "sqlite" || engine.DSN != "tour.db" || !engine.Echo {
		t.Errorf("Expected explicit parameters to be used, got %+v", engine)
	}

	os.Unsetenv("SQLTOUR_DRIVER")
	os.Unsetenv("SQLTOUR_DSN")
	engine = NewEngine("", "", false, logger)
	if engine.Driver != DriverSQLite || engine.DSN != MemoryDSN {
		t.Errorf("Expected in-memory sqlite defaults, got %s %s", engine.Driver, engine.DSN)
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN("localhost", "root", "secret", "tour", "3306")
	want := "root:secret@tcp(localhost:3306)/tour?parseTime=true"
	if dsn != want {
		t.Errorf("MySQLDSN() = %q, want %q", dsn, want)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	engine := NewEngine("oracle", "x", false, createTestLogger())
	if err := engine.Open(context.Background()); err == nil {
		t.Error("Expected an error for an unsupported driver")
	}
}

func TestConnectWithoutOpen(t *testing.T) {
	engine := NewEngine(DriverSQLite, MemoryDSN, false, createTestLogger())
	err := engine.Connect(context.Background(), func(*Connection) error { return nil })
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestCommitAsYouGo(t *testing.T) {
	engine, mock := newMockEngine(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE some_table (x int, y int)").WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare("INSERT INTO some_table (x, y) VALUES (?, ?)")
	prep.ExpectExec().WithArgs(1, 1).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(2, 4).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := engine.Connect(ctx, func(conn *Connection) error {
		if _, err := conn.Execute(ctx, Text("CREATE TABLE some_table (x int, y int)")); err != nil {
			return err
		}
		result, err := conn.Execute(ctx,
			Text("INSERT INTO some_table (x, y) VALUES (:x, :y)"),
			Params{"x": 1, "y": 1}, Params{"x": 2, "y": 4},
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() != 2 {
			t.Errorf("Expected 2 rows affected, got %d", result.RowsAffected())
		}
		if result.LastInsertID() != 2 {
			t.Errorf("Expected last insert id 2, got %d", result.LastInsertID())
		}
		return conn.Commit()
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUncommittedWorkIsRolledBack(t *testing.T) {
	engine, mock := newMockEngine(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO some_table (x, y) VALUES (?, ?)").WithArgs(3, 9).WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectRollback()

	err := engine.Connect(ctx, func(conn *Connection) error {
		_, err := conn.Execute(ctx, Text("INSERT INTO some_table (x, y) VALUES (:x, :y)"), Params{"x": 3, "y": 9})
		if !conn.InTransaction() {
			t.Error("Expected the first statement to begin a transaction")
		}
		return err
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestBeginCommitsOnSuccess(t *testing.T) {
	engine, mock := newMockEngine(t)
	ctx := context.Background()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO some_table (x, y) VALUES (?, ?)")
	prep.ExpectExec().WithArgs(6, 8).WillReturnResult(sqlmock.NewResult(3, 1))
	prep.ExpectExec().WithArgs(9, 10).WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectCommit()

	err := engine.Begin(ctx, func(conn *Connection) error {
		_, err := conn.Execute(ctx,
			Text("INSERT INTO some_table (x, y) VALUES (:x, :y)"),
			Params{"x": 6, "y": 8}, Params{"x": 9, "y": 10},
		)
		return err
	})
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestBeginRollsBackOnError(t *testing.T) {
	engine, mock := newMockEngine(t)
	ctx := context.Background()
	failure := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM some_table").WillReturnError(failure)
	mock.ExpectRollback()

	err := engine.Begin(ctx, func(conn *Connection) error {
		_, err := conn.Execute(ctx, Text("DELETE FROM some_table"))
		return err
	})
	if !errors.Is(err, failure) {
		t.Fatalf("Begin() error = %v, want %v", err, failure)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestExecuteMissingParameter(t *testing.T) {
	engine, mock := newMockEngine(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := engine.Connect(ctx, func(conn *Connection) error {
		_, err := conn.Execute(ctx, Text("SELECT x FROM some_table WHERE y = :y"), Params{"x": 1})
		return err
	})
	if !errors.Is(err, ErrMissingParameter) {
		t.Errorf("Expected ErrMissingParameter, got %v", err)
	}
}

func TestQueryRowAccess(t *testing.T) {
	engine, mock := newMockEngine(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT x, y FROM some_table WHERE y > ?").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"x", "y"}).
			AddRow(int64(2), int64(4)).
			AddRow(int64(6), []byte("8")))
	mock.ExpectRollback()

	var result *Result
	err := engine.Connect(ctx, func(conn *Connection) error {
		var err error
		result, err = conn.Execute(ctx, Text("SELECT x, y FROM some_table WHERE y > :y"), Params{"y": 2})
		return err
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !result.ReturnsRows() || result.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", result.Len())
	}
	rows := result.All()
	if rows[0].Get("x") != int64(2) || rows[0].Index(1) != int64(4) {
		t.Errorf("Unexpected first row %v", rows[0])
	}
	if rows[1].Get("y") != "8" {
		t.Errorf("Expected []byte to be converted to string, got %T", rows[1].Get("y"))
	}
	if rows[1].Get("z") != nil || rows[1].Has("z") {
		t.Error("Expected unknown column to be absent")
	}

	var x, y int64
	if err := rows[1].Scan(&x, &y); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if x != 6 || y != 8 {
		t.Errorf("Scan() = %d, %d; want 6, 8", x, y)
	}
	if err := rows[1].Scan(&x); err == nil {
		t.Error("Expected Scan with the wrong number of arguments to fail")
	}

	mappings := result.Mappings()
	if mappings[0]["x"] != int64(2) || mappings[0]["y"] != int64(4) {
		t.Errorf("Unexpected mapping %v", mappings[0])
	}

	scalar, err := result.Scalar()
	if err != nil || scalar != int64(2) {
		t.Errorf("Scalar() = %v, %v", scalar, err)
	}
	if got := rows[1].String(); got != "(6, '8')" {
		t.Errorf("String() = %q", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestEmptyResult(t *testing.T) {
	result := &Result{returnsRows: true}
	if _, err := result.First(); !errors.Is(err, ErrNoRows) {
		t.Errorf("First() error = %v, want ErrNoRows", err)
	}
	if _, err := result.Scalar(); !errors.Is(err, ErrNoRows) {
		t.Errorf("Scalar() error = %v, want ErrNoRows", err)
	}
	if len(result.Mappings()) != 0 {
		t.Error("Expected no mappings")
	}
}

func TestEchoLogsStatements(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	logger, hook := test.NewNullLogger()
	engine := NewEngineFromDB(db, DriverSQLite, logger)
	engine.Echo = true
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t (a) VALUES (?)").WithArgs("b").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = engine.Begin(ctx, func(conn *Connection) error {
		_, err := conn.Execute(ctx, Text("INSERT INTO t (a) VALUES (:a)"), Params{"a": "b"})
		return err
	})
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	var messages []string
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	want := []string{"BEGIN", "INSERT INTO t (a) VALUES (?)", "COMMIT"}
	if len(messages) != len(want) {
		t.Fatalf("Expected log messages %v, got %v", want, messages)
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, messages[i], want[i])
		}
	}
	if hook.AllEntries()[1].Data["params"] == nil {
		t.Error("Expected statement parameters to be logged")
	}
}
