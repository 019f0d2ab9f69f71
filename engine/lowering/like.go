package lowering

import "strings"

// likeToRegex converts a MariaDB LIKE pattern to the regular expression
// the emitted filter carries: % → .*, _ → ., every other regex
// metacharacter escaped, and the result anchored with ^…$ unless the
// pattern already starts/ends with %. The output is the
// only place a regex ever appears in this module — pattern recognition
// on the input side is token-driven throughout.
func likeToRegex(pattern string) string {
	var b strings.Builder

	if !strings.HasPrefix(pattern, "%") {
		b.WriteByte('^')
	}
	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; ch {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		case '.', '*', '+', '?', '^', '$', '(', ')', '[', ']', '{', '}', '|', '\\':
			b.WriteByte('\\')
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}
	if !strings.HasSuffix(pattern, "%") {
		b.WriteByte('$')
	}
	return b.String()
}
