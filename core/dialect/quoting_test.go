package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsQuoted(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		mode       SQLMode
		expected   bool
	}{
		{"backticks default mode", "`users`", "", true},
		{"bare identifier", "users", "", false},
		{"double quotes default mode", `"users"`, "", false},
		{"double quotes ansi mode", `"users"`, "ANSI_QUOTES", true},
		{"backticks ansi mode", "`users`", "ANSI_QUOTES", true},
		{"combined mode string", `"users"`, "STRICT_TRANS_TABLES,ANSI_QUOTES", true},
		{"empty identifier", "", "", false},
		{"single backtick", "`", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsQuoted(tt.identifier, tt.mode))
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		mode       SQLMode
		expected   string
	}{
		{"plain identifier", "users", "", "`users`"},
		{"already quoted", "`users`", "", "`users`"},
		{"embedded backtick doubled", "us`ers", "", "`us``ers`"},
		{"empty identifier", "", "", "``"},
		{"ansi mode", "users", "ANSI_QUOTES", `"users"`},
		{"ansi embedded quote doubled", `us"ers`, "ANSI_QUOTES", `"us""ers"`},
		{"ansi already quoted", `"users"`, "ANSI_QUOTES", `"users"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Quote(tt.identifier, tt.mode))
		})
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	identifiers := []string{"users", "us`ers", "", "a.b", "with space"}
	for _, id := range identifiers {
		quoted := Quote(id, "")
		assert.True(t, IsQuoted(quoted, ""), "quoted form of %q must read as quoted", id)
		assert.Equal(t, id, Unquote(quoted, ""))
	}

	quoted := Quote(`us"ers`, "ANSI_QUOTES")
	assert.True(t, IsQuoted(quoted, "ANSI_QUOTES"))
	assert.Equal(t, `us"ers`, Unquote(quoted, "ANSI_QUOTES"))
}

func TestQuoteMultipart(t *testing.T) {
	assert.Equal(t, "`db`.`tbl`", QuoteMultipart([]string{"db", "tbl"}, ""))
	assert.Equal(t, `"db"."tbl"`, QuoteMultipart([]string{"db", "tbl"}, "ANSI_QUOTES"))
	assert.Equal(t, "`db`.`tbl`.`col`", QuoteMultipart([]string{"db", "tbl", "col"}, ""))
}

func TestParseTableName(t *testing.T) {
	tests := []struct {
		name           string
		defaultSchema  string
		tableName      string
		mode           SQLMode
		expectedSchema string
		expectedTable  string
	}{
		{"bare table", "s", "t", "", "s", "t"},
		{"qualified quoted", "s", "`db`.`tbl`", "", "db", "tbl"},
		{"qualified bare", "s", "db.tbl", "", "db", "tbl"},
		{"quoted table only", "s", "`tbl`", "", "s", "tbl"},
		{"dot inside quoted table", "s", "`db`.`a.b`", "", "db", "a.b"},
		{"ansi qualified", "s", `"db"."tbl"`, "ANSI_QUOTES", "db", "tbl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, table := ParseTableName(tt.defaultSchema, tt.tableName, tt.mode)
			assert.Equal(t, tt.expectedSchema, schema)
			assert.Equal(t, tt.expectedTable, table)
		})
	}
}
