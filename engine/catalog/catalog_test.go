package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toddstoffel/MongoSQL/translrerr"
)

func TestLookupKnownNames(t *testing.T) {
	for _, name := range []string{"NOW", "YEAR", "CONCAT", "SUBSTRING", "ABS", "COUNT", "SUM", "ROW_NUMBER", "JSON_EXTRACT", "REGEXP"} {
		_, err := Lookup(name)
		assert.NoError(t, err, name)
	}
}

func TestLookupUnknownSuggests(t *testing.T) {
	_, err := Lookup("CONCATT")
	var unknown *translrerr.UnknownFunction
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "CONCATT", unknown.Name)
	assert.Equal(t, "CONCAT", unknown.Hint)
}

func TestArityBounds(t *testing.T) {
	entry, err := Lookup("SUBSTRING")
	require.NoError(t, err)
	assert.NoError(t, entry.CheckArity(2))
	assert.NoError(t, entry.CheckArity(3))

	var mismatch *translrerr.ArityMismatch
	require.True(t, errors.As(entry.CheckArity(1), &mismatch))
	assert.Equal(t, 1, mismatch.Got)

	// Unbounded max.
	entry, err = Lookup("CONCAT")
	require.NoError(t, err)
	assert.NoError(t, entry.CheckArity(12))
}

func lowerCall(t *testing.T, name string, args ...interface{}) interface{} {
	t.Helper()
	entry, err := Lookup(name)
	require.NoError(t, err)
	out, err := entry.Lower(args)
	require.NoError(t, err)
	return out
}

func TestSubstringIsZeroBased(t *testing.T) {
	out := lowerCall(t, "SUBSTRING", "$name", int64(3), int64(2))
	assert.Equal(t, M{"$substrCP": A{"$name", int64(2), int64(2)}}, out)

	// Without a length, the remainder of the string.
	out = lowerCall(t, "SUBSTRING", "$name", int64(1))
	assert.Equal(t, M{"$substrCP": A{"$name", int64(0), M{"$strLenCP": "$name"}}}, out)
}

func TestStatisticalAggregatesRound(t *testing.T) {
	out := lowerCall(t, "STDDEV_POP", "$x")
	assert.Equal(t, M{"$round": A{M{"$stdDevPop": "$x"}, 6}}, out)

	out = lowerCall(t, "VAR_SAMP", "$x")
	assert.Equal(t, M{"$round": A{M{"$pow": A{M{"$stdDevSamp": "$x"}, 2}}, 6}}, out)
}

func TestDateFormatConversion(t *testing.T) {
	out := lowerCall(t, "DATE_FORMAT", "$orderDate", "%Y-%m-%d %H:%i:%S")
	assert.Equal(t, M{"$dateToString": M{"date": "$orderDate", "format": "%Y-%m-%d %H:%M:%S"}}, out)

	out = lowerCall(t, "DATE_FORMAT", "$orderDate", "%W, %M %e")
	assert.Equal(t, M{"$dateToString": M{"date": "$orderDate", "format": "%A, %B %d"}}, out)
}

func TestDateFormatUnsupportedSpecifier(t *testing.T) {
	entry, err := Lookup("DATE_FORMAT")
	require.NoError(t, err)
	_, err = entry.Lower([]interface{}{"$d", "%Q"})
	var unsupported *translrerr.UnsupportedFormatSpecifier
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "%Q", unsupported.Specifier)
	assert.Equal(t, "DATE_FORMAT", unsupported.Function)
}

func TestDateAddRequiresInterval(t *testing.T) {
	out := lowerCall(t, "DATE_ADD", "$d", M{"amount": int64(3), "unit": "day"})
	assert.Equal(t, M{"$dateAdd": M{"startDate": "$d", "unit": "day", "amount": int64(3)}}, out)

	entry, _ := Lookup("DATE_SUB")
	_, err := entry.Lower([]interface{}{"$d", int64(3)})
	require.Error(t, err)
}

func TestConcatWSInterleavesSeparator(t *testing.T) {
	out := lowerCall(t, "CONCAT_WS", "-", "$a", "$b", "$c")
	assert.Equal(t, M{"$concat": A{"$a", "-", "$b", "-", "$c"}}, out)
}

func TestBitwiseDualForm(t *testing.T) {
	assert.Equal(t, M{"$bitAnd": A{"$a", "$b"}}, lowerCall(t, "BIT_AND", "$a", "$b"))
	assert.Equal(t, M{"$bitAnd": "$a"}, lowerCall(t, "BIT_AND", "$a"))

	// Only the one-argument form is a $group accumulator.
	assert.True(t, IsAccumulator("BIT_AND", 1))
	assert.False(t, IsAccumulator("BIT_AND", 2))
	assert.True(t, IsAccumulator("SUM", 1))
	assert.False(t, IsAccumulator("UPPER", 1))
}

func TestUnsupportedRecipesFailLoudly(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []interface{}
	}{
		{"HEX", []interface{}{"$x"}},
		{"UNHEX", []interface{}{"$x"}},
		{"REGEXP_REPLACE", []interface{}{"$x", "a+", "b"}},
	} {
		entry, err := Lookup(tc.name)
		require.NoError(t, err, tc.name)
		_, err = entry.Lower(tc.args)
		var unsupported *translrerr.UnsupportedArgument
		require.True(t, errors.As(err, &unsupported), tc.name)
		assert.Equal(t, tc.name, unsupported.Name)
	}
}

func TestShiftOffsets(t *testing.T) {
	assert.Equal(t, M{"$shift": M{"output": "$x", "by": interface{}(-1)}}, lowerCall(t, "LAG", "$x"))
	assert.Equal(t, M{"$shift": M{"output": "$x", "by": int64(-2)}}, lowerCall(t, "LAG", "$x", int64(2)))
	assert.Equal(t, M{"$shift": M{"output": "$x", "by": interface{}(1)}}, lowerCall(t, "LEAD", "$x"))
}
