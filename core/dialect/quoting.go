// Package dialect provides identifier quoting and table-name parsing helpers
// shared by the statement builders and the SQL rendering layer. Quoting follows
// server conventions: backticks by default, double quotes when the session SQL
// mode enables ANSI_QUOTES, and escape-by-doubling for embedded quote
// characters.
package dialect

import "strings"

// SQLMode is the session SQL mode string as reported by the server. Only the
// ANSI_QUOTES flag is relevant to identifier quoting.
type SQLMode string

// ANSIQuotes reports whether the mode enables double-quoted identifiers.
func (m SQLMode) ANSIQuotes() bool {
	return strings.Contains(string(m), "ANSI_QUOTES")
}

// quoteChar returns the active identifier quote character for the mode.
func (m SQLMode) quoteChar() string {
	if m.ANSIQuotes() {
		return `"`
	}
	return "`"
}

// IsQuoted reports whether the identifier is already wrapped in quote
// characters. Under ANSI_QUOTES both backticks and double quotes count as
// quoted; otherwise only backticks do.
func IsQuoted(identifier string, mode SQLMode) bool {
	if len(identifier) < 2 {
		return false
	}
	if identifier[0] == '`' && identifier[len(identifier)-1] == '`' {
		return true
	}
	if mode.ANSIQuotes() {
		return identifier[0] == '"' && identifier[len(identifier)-1] == '"'
	}
	return false
}

// Quote wraps the identifier in the mode's quote character, doubling any
// embedded quote characters. An empty identifier still quotes to a pair of
// quote characters so it round-trips. Already-quoted identifiers are returned
// unchanged.
func Quote(identifier string, mode SQLMode) string {
	quote := mode.quoteChar()
	if len(identifier) == 0 {
		return quote + quote
	}
	if IsQuoted(identifier, mode) {
		return identifier
	}
	return quote + strings.ReplaceAll(identifier, quote, quote+quote) + quote
}

// Unquote strips one level of quoting from the identifier and un-doubles any
// embedded quote characters. Unquoted identifiers are returned unchanged.
func Unquote(identifier string, mode SQLMode) string {
	if !IsQuoted(identifier, mode) {
		return identifier
	}
	quote := string(identifier[0])
	inner := identifier[1 : len(identifier)-1]
	return strings.ReplaceAll(inner, quote+quote, quote)
}

// QuoteMultipart quotes each part of a multi-part identifier and joins them
// with dots.
func QuoteMultipart(parts []string, mode SQLMode) string {
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = Quote(part, mode)
	}
	return strings.Join(quoted, ".")
}

// ParseTableName splits a possibly schema-qualified, possibly quoted table
// reference into its schema and table parts. When the reference carries the
// active quote character, the split happens on the "." that immediately
// precedes a quoted part, so dots inside quoted identifiers survive. A
// reference without a separator belongs to the default schema.
func ParseTableName(defaultSchema, name string, mode SQLMode) (schema, table string) {
	quote := mode.quoteChar()
	delimiter := "."
	if strings.Contains(name, quote) {
		delimiter = "." + quote
	}
	idx := strings.Index(name, delimiter)
	if idx < 0 {
		return defaultSchema, strings.Trim(name, quote)
	}
	schema = strings.Trim(name[:idx], quote)
	table = strings.Trim(name[idx+1:], quote)
	return schema, table
}
