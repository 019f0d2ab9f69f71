package catalog

import (
	"strings"

	"github.com/toddstoffel/MongoSQL/translrerr"
)

// mariaToMongoSpecifier maps every MariaDB DATE_FORMAT/STR_TO_DATE
// specifier this catalogue supports to its $dateToString equivalent.
// It covers only the specifiers listed below; any other specifier,
// including MariaDB ones such as %D, %k, %r, %T, %U or %w, is
// UnsupportedFormatSpecifier.
var mariaToMongoSpecifier = map[byte]string{
	'Y': "%Y", // 4-digit year
	'y': "%y", // 2-digit year
	'm': "%m", // month, 2 digits
	'c': "%m", // month, no padding in MariaDB; Mongo has no unpadded form
	'd': "%d", // day of month, 2 digits
	'e': "%d", // day of month, no padding in MariaDB
	'H': "%H", // hour 00-23
	'h': "%I", // hour 01-12
	'I': "%I", // hour 01-12
	'i': "%M", // minutes
	's': "%S", // seconds
	'S': "%S",
	'f': "%L", // microseconds -> Mongo milliseconds (closest equivalent)
	'p': "%p", // AM/PM
	'a': "%a", // abbreviated weekday
	'W': "%A", // full weekday name
	'b': "%b", // abbreviated month name
	'M': "%B", // full month name
	'j': "%j", // day of year
	'%': "%%",
}

// lowerDateFormat converts a literal MariaDB format string (the second
// argument must be a string literal, already surfaced by the parser as a
// Go string) into a $dateToString format spec.
func lowerDateFormat(args []interface{}) (interface{}, error) {
	pattern, ok := args[1].(string)
	if !ok {
		return M{"$dateToString": M{"date": args[0]}}, nil
	}
	out, err := convertFormat(pattern, "DATE_FORMAT")
	if err != nil {
		return nil, err
	}
	return M{"$dateToString": M{"date": args[0], "format": out}}, nil
}

func lowerStrToDate(args []interface{}) (interface{}, error) {
	pattern, ok := args[1].(string)
	if !ok {
		return M{"$dateFromString": M{"dateString": args[0]}}, nil
	}
	out, err := convertFormat(pattern, "STR_TO_DATE")
	if err != nil {
		return nil, err
	}
	return M{"$dateFromString": M{"dateString": args[0], "format": out}}, nil
}

func convertFormat(pattern, fn string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		if ch != '%' || i+1 >= len(pattern) {
			b.WriteByte(ch)
			continue
		}
		i++
		spec, ok := mariaToMongoSpecifier[pattern[i]]
		if !ok {
			return "", &translrerr.UnsupportedFormatSpecifier{Specifier: "%" + string(pattern[i]), Function: fn}
		}
		b.WriteString(spec)
	}
	return b.String(), nil
}
