package lexer

// Reserved is the closed, case-insensitive MariaDB reserved-word set the
// lexer consults to decide whether a scanned word is a Keyword or a Name.
// Only words that matter to the supported grammar are listed; MariaDB's
// full reserved list is much larger, but any word the parser never asks
// for can safely remain an ordinary Name.
var Reserved = buildReservedSet([]string{
	"SELECT", "FROM", "WHERE", "AS", "DISTINCT", "ALL",
	"INNER", "LEFT", "RIGHT", "CROSS", "OUTER", "JOIN", "ON", "USING",
	"GROUP", "BY", "HAVING", "ORDER", "ASC", "DESC",
	"LIMIT", "OFFSET",
	"WITH", "RECURSIVE",
	"AND", "OR", "NOT",
	"IN", "IS", "NULL", "LIKE", "BETWEEN", "EXISTS",
	"CASE", "WHEN", "THEN", "ELSE", "END",
	"IF", "COALESCE", "NULLIF",
	"TRUE", "FALSE",
	"INSERT", "INTO", "VALUES",
	"UPDATE", "SET",
	"DELETE",
	"OVER", "PARTITION",
	"EXTRACT", "CAST", "INTERVAL",
	"SEPARATOR",
	"YEAR", "QUARTER", "MONTH", "WEEK", "DAY", "HOUR", "MINUTE", "SECOND", "MICROSECOND",
	"UNION",
})

func buildReservedSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// IsReserved reports whether upper (already uppercased) is a reserved word.
func IsReserved(upper string) bool {
	return Reserved[upper]
}
