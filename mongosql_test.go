package mongosql

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/toddstoffel/MongoSQL/engine/invocation"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

func TestTranslateFind(t *testing.T) {
	inv, err := Translate("SELECT customerName FROM customers WHERE customerNumber > 100 ORDER BY customerName LIMIT 10", "classicmodels", nil)
	require.NoError(t, err)

	assert.Equal(t, "customers", inv.Collection)
	assert.Equal(t, invocation.OpFind, inv.Op)
	assert.Equal(t, bson.M{"customerNumber": bson.M{"$gt": int64(100)}}, inv.Filter)
	assert.Equal(t, bson.M{
		"locale": "en", "caseLevel": false, "strength": 1, "numericOrdering": false,
	}, inv.Collation)
}

func TestTranslateDeterminism(t *testing.T) {
	sql := `SELECT c.customerName, COUNT(*) AS n FROM customers c
		LEFT JOIN orders o ON c.customerNumber = o.customerNumber
		GROUP BY c.customerName ORDER BY n DESC LIMIT 5`

	first, err := Translate(sql, "classicmodels", nil)
	require.NoError(t, err)
	second, err := Translate(sql, "classicmodels", nil)
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(first, second))
}

func TestTranslateKeywordCaseInsensitive(t *testing.T) {
	upper, err := Translate("SELECT name FROM customers WHERE city = 'Oslo'", "db", nil)
	require.NoError(t, err)
	lower, err := Translate("select name from customers where city = 'Oslo'", "db", nil)
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
}

func TestTranslateBacktickTransparency(t *testing.T) {
	plain, err := Translate("SELECT customerName FROM customers", "db", nil)
	require.NoError(t, err)
	escaped, err := Translate("SELECT `customerName` FROM `customers`", "db", nil)
	require.NoError(t, err)
	assert.Equal(t, plain, escaped)
}

func TestTranslateLimitStability(t *testing.T) {
	inv, err := Translate("SELECT UPPER(name) AS n FROM customers LIMIT 3", "db", nil)
	require.NoError(t, err)

	n := len(inv.Pipeline)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, "$limit", inv.Pipeline[n-1][0].Key)
	assert.Equal(t, "$sort", inv.Pipeline[n-2][0].Key)

	opts := DefaultOptions()
	opts.ImplicitOrderOnLimit = false
	inv, err = Translate("SELECT UPPER(name) AS n FROM customers LIMIT 3", "db", &opts)
	require.NoError(t, err)
	for _, st := range inv.Pipeline {
		assert.NotEqual(t, "$sort", st[0].Key)
	}
}

func TestTranslateSyntaxError(t *testing.T) {
	_, err := Translate("SELECT FROM", "db", nil)
	require.Error(t, err)
	var te translrerr.TranslationError
	require.True(t, errors.As(err, &te))
}

func TestTranslateMany(t *testing.T) {
	invs, err := TranslateMany("SELECT a FROM t; DELETE FROM t WHERE a = 1;", "db", nil)
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.Equal(t, invocation.OpFind, invs[0].Op)
	assert.Equal(t, invocation.OpDeleteMany, invs[1].Op)
}

func TestTranslateManyReportsIndex(t *testing.T) {
	_, err := TranslateMany("SELECT a FROM t; SELECT UNKNOWNFN(a) FROM t", "db", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
	var unknown *translrerr.UnknownFunction
	assert.True(t, errors.As(err, &unknown))
}

// The returned invocation carries only JSON-representable primitives in
// its documents — no host-language values are smuggled through.
func TestNoClientEvaluation(t *testing.T) {
	inv, err := Translate("SELECT 1 + 1 AS two", "db", nil)
	require.NoError(t, err)
	assert.Equal(t, invocation.OpAggregate, inv.Op)
	assertPrimitives(t, inv.Pipeline)
}

func assertPrimitives(t *testing.T, v interface{}) {
	t.Helper()
	switch x := v.(type) {
	case nil, bool, int, int32, int64, float64, string:
	case bson.M:
		for _, item := range x {
			assertPrimitives(t, item)
		}
	case bson.A:
		for _, item := range x {
			assertPrimitives(t, item)
		}
	case bson.D:
		for _, e := range x {
			assertPrimitives(t, e.Value)
		}
	case []bson.D:
		for _, d := range x {
			assertPrimitives(t, d)
		}
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice {
			for i := 0; i < rv.Len(); i++ {
				assertPrimitives(t, rv.Index(i).Interface())
			}
			return
		}
		t.Fatalf("non-primitive value %T in invocation", v)
	}
}
