package tutorial

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/sqltour/internal/connector"
)

func newTestTutorial(t *testing.T) (*Tutorial, *bytes.Buffer) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	engine := connector.NewEngine(connector.DriverSQLite, connector.MemoryDSN, false, logger)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(engine.Close)

	var out bytes.Buffer
	return New(engine, &out, logger), &out
}

func TestRun(t *testing.T) {
	tour, out := newTestTutorial(t)

	if err := tour.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if !strings.HasPrefix(lines[0], "go version: go") {
		t.Errorf("Expected go version first, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "sqlite version: 3.") {
		t.Errorf("Expected sqlite version, got %q", lines[1])
	}
	if lines[2] != "[('hello world')]" {
		t.Errorf("Expected rows, got %q", lines[2])
	}
	if lines[3] != "('hello world')" {
		t.Errorf("Expected first row, got %q", lines[3])
	}
	if lines[4] != "hello world" {
		t.Errorf("Expected first value, got %q", lines[4])
	}

	rows := lines[5:]
	// Four access styles over four rows
	if len(rows) != 16 {
		t.Fatalf("Expected 16 fetched lines, got %d: %v", len(rows), rows)
	}
	want := []string{"x: 1  y: 1", "x: 2  y: 4", "x: 6  y: 8", "x: 9  y: 10"}
	for i, line := range rows {
		if line != want[i%4] {
			t.Errorf("line %d = %q, want %q", i, line, want[i%4])
		}
	}
}

func TestStepsNeedSomeTable(t *testing.T) {
	tour, _ := newTestTutorial(t)

	if err := tour.FetchRows(context.Background()); err == nil {
		t.Error("Expected FetchRows to fail before some_table is created")
	}
	if err := tour.UseTransactionToCommit(context.Background()); err == nil {
		t.Error("Expected UseTransactionToCommit to fail before some_table is created")
	}
}

func TestCommitAsYouGoTwice(t *testing.T) {
	tour, _ := newTestTutorial(t)
	ctx := context.Background()

	if err := tour.CommitAsYouGo(ctx); err != nil {
		t.Fatalf("CommitAsYouGo() error = %v", err)
	}
	if err := tour.CommitAsYouGo(ctx); err == nil {
		t.Error("Expected creating some_table twice to fail")
	}
	// The failed attempt must not leave anything behind
	var out bytes.Buffer
	tour.Out = &out
	if err := tour.FetchRowsViaMappings(ctx); err != nil {
		t.Fatalf("FetchRowsViaMappings() error = %v", err)
	}
	if got := strings.Count(out.String(), "\n"); got != 2 {
		t.Errorf("Expected 2 rows, got %d", got)
	}
}
