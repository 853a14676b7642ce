package connector

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingParameter = errors.New("missing bind parameter")

// Params maps bind parameter names to values
type Params map[string]interface{}

// TextClause is SQL text using :name bind parameters, rewritten to the
// positional ? markers understood by the drivers.
type TextClause struct {
	SQL   string
	query string
	names []string
}

// Text parses SQL text. Markers inside quoted strings or identifiers, comments,
// "::" casts and backslash escaped colons are left alone.
func Text(sql string) TextClause {
	var b strings.Builder
	var names []string

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				end = len(sql) - i
			}
			b.WriteString(sql[i : i+end])
			i += end - 1
		case ch == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				end = len(sql)
			} else {
				end = i + 2 + end + 2
			}
			b.WriteString(sql[i:end])
			i = end - 1
		case ch == '\'' || ch == '"' || ch == '`':
			end := closingQuote(sql, i)
			b.WriteString(sql[i:end])
			i = end - 1
		case ch == '\\' && i+1 < len(sql) && sql[i+1] == ':':
			b.WriteByte(':')
			i++
		case ch == ':' && i+1 < len(sql) && sql[i+1] == ':':
			b.WriteString("::")
			i++
		case ch == ':' && i+1 < len(sql) && isNameStart(sql[i+1]) && (i == 0 || !isNameChar(sql[i-1])):
			j := i + 1
			for j < len(sql) && isNameChar(sql[j]) {
				j++
			}
			names = append(names, sql[i+1:j])
			b.WriteByte('?')
			i = j - 1
		default:
			b.WriteByte(ch)
		}
	}

	return TextClause{SQL: sql, query: b.String(), names: names}
}

// Query returns the statement with positional markers
func (t TextClause) Query() string {
	return t.query
}

// BindNames returns the bind parameter names in order of appearance
func (t TextClause) BindNames() []string {
	return append([]string(nil), t.names...)
}

// String returns the original SQL text
func (t TextClause) String() string {
	return t.SQL
}

func (t TextClause) bind(p Params) ([]interface{}, error) {
	if len(t.names) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(t.names))
	for i, name := range t.names {
		value, ok := p[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingParameter, name)
		}
		args[i] = value
	}
	return args, nil
}

// closingQuote returns the index just past the quoted section starting at i.
// A doubled quote character escapes itself. Unterminated quotes run to the end.
func closingQuote(sql string, i int) int {
	quote := sql[i]
	for j := i + 1; j < len(sql); j++ {
		if sql[j] == quote {
			if j+1 < len(sql) && sql[j+1] == quote {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(sql)
}

func isNameStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isNameChar(ch byte) bool {
	return isNameStart(ch) || (ch >= '0' && ch <= '9')
}
