package connector

import (
	"errors"
	"reflect"
	"testing"
)

func TestText(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		wantQuery string
		wantNames []string
	}{
		{
			name:      "insert with two parameters",
			sql:       "INSERT INTO some_table (x, y) VALUES (:x, :y)",
			wantQuery: "INSERT INTO some_table (x, y) VALUES (?, ?)",
			wantNames: []string{"x", "y"},
		},
		{
			name:      "no parameters",
			sql:       "select 'hello world'",
			wantQuery: "select 'hello world'",
		},
		{
			name:      "marker inside string literal",
			sql:       "SELECT ':x' AS label, x FROM t WHERE y > :y",
			wantQuery: "SELECT ':x' AS label, x FROM t WHERE y > ?",
			wantNames: []string{"y"},
		},
		{
			name:      "doubled quote inside literal",
			sql:       "SELECT 'it''s :not' WHERE a = :a",
			wantQuery: "SELECT 'it''s :not' WHERE a = ?",
			wantNames: []string{"a"},
		},
		{
			name:      "quoted identifier",
			sql:       `SELECT "col:x" FROM t WHERE id = :id`,
			wantQuery: `SELECT "col:x" FROM t WHERE id = ?`,
			wantNames: []string{"id"},
		},
		{
			name:      "double colon cast",
			sql:       "SELECT :v::text",
			wantQuery: "SELECT ?::text",
			wantNames: []string{"v"},
		},
		{
			name:      "escaped colon",
			sql:       `SELECT '12' || \:minutes`,
			wantQuery: `SELECT '12' || :minutes`,
		},
		{
			name:      "repeated parameter",
			sql:       "SELECT * FROM t WHERE a = :v OR b = :v",
			wantQuery: "SELECT * FROM t WHERE a = ? OR b = ?",
			wantNames: []string{"v", "v"},
		},
		{
			name:      "unterminated quote",
			sql:       "SELECT 'oops :x",
			wantQuery: "SELECT 'oops :x",
		},
		{
			name:      "colon followed by digit",
			sql:       "SELECT :1",
			wantQuery: "SELECT :1",
		},
		{
			name:      "underscore names",
			sql:       "UPDATE t SET user_id = :user_id_2",
			wantQuery: "UPDATE t SET user_id = ?",
			wantNames: []string{"user_id_2"},
		},
		{
			name:      "apostrophe in line comment",
			sql:       "SELECT :a -- don't\n, :b",
			wantQuery: "SELECT ? -- don't\n, ?",
			wantNames: []string{"a", "b"},
		},
		{
			name:      "marker in line comment",
			sql:       "SELECT :a -- uses :b",
			wantQuery: "SELECT ? -- uses :b",
			wantNames: []string{"a"},
		},
		{
			name:      "block comment",
			sql:       "SELECT /* it's :x */ :y",
			wantQuery: "SELECT /* it's :x */ ?",
			wantNames: []string{"y"},
		},
		{
			name:      "unterminated block comment",
			sql:       "SELECT :y /* :x",
			wantQuery: "SELECT ? /* :x",
			wantNames: []string{"y"},
		},
		{
			name:      "minus is not a comment",
			sql:       "SELECT :a - :b",
			wantQuery: "SELECT ? - ?",
			wantNames: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause := Text(tt.sql)
			if got := clause.Query(); got != tt.wantQuery {
				t.Errorf("Query() = %q, want %q", got, tt.wantQuery)
			}
			if got := clause.BindNames(); !reflect.DeepEqual(got, tt.wantNames) {
				t.Errorf("BindNames() = %v, want %v", got, tt.wantNames)
			}
			if clause.String() != tt.sql {
				t.Errorf("String() = %q, want %q", clause.String(), tt.sql)
			}
		})
	}
}

func TestBind(t *testing.T) {
	clause := Text("INSERT INTO some_table (x, y) VALUES (:x, :y)")

	args, err := clause.bind(Params{"y": 4, "x": 2, "extra": "ignored"})
	if err != nil {
		t.Fatalf("bind() error = %v", err)
	}
	if !reflect.DeepEqual(args, []interface{}{2, 4}) {
		t.Errorf("bind() = %v, want [2 4]", args)
	}

	_, err = clause.bind(Params{"x": 1})
	if !errors.Is(err, ErrMissingParameter) {
		t.Errorf("bind() error = %v, want ErrMissingParameter", err)
	}

	_, err = clause.bind(nil)
	if !errors.Is(err, ErrMissingParameter) {
		t.Errorf("bind(nil) error = %v, want ErrMissingParameter", err)
	}

	args, err = Text("select 1").bind(nil)
	if err != nil || args != nil {
		t.Errorf("bind() without markers = %v, %v; want nil, nil", args, err)
	}
}
