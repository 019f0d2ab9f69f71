package lowering

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/toddstoffel/MongoSQL/engine/invocation"
	"github.com/toddstoffel/MongoSQL/engine/parser"
	"github.com/toddstoffel/MongoSQL/translrerr"
)

func lower(t *testing.T, sql string) *invocation.Invocation {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	inv, err := Lower(stmt, DefaultOptions())
	require.NoError(t, err)
	return inv
}

func lowerErr(t *testing.T, sql string) error {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	_, err = Lower(stmt, DefaultOptions())
	require.Error(t, err)
	return err
}

func stage(t *testing.T, inv *invocation.Invocation, i int) bson.E {
	t.Helper()
	require.Greater(t, len(inv.Pipeline), i)
	require.Len(t, inv.Pipeline[i], 1)
	return inv.Pipeline[i][0]
}

// A plain single-table select takes the find fast path.
func TestFindFastPath(t *testing.T) {
	inv := lower(t, "SELECT customerName FROM customers WHERE customerNumber > 100 ORDER BY customerName ASC LIMIT 10;")

	assert.Equal(t, "customers", inv.Collection)
	assert.Equal(t, invocation.OpFind, inv.Op)
	assert.Equal(t, bson.M{"customerNumber": bson.M{"$gt": int64(100)}}, inv.Filter)
	assert.Equal(t, bson.M{"_id": 0, "customerName": 1}, inv.Projection)
	assert.Equal(t, bson.D{{Key: "customerName", Value: 1}}, inv.Sort)
	require.NotNil(t, inv.Limit)
	assert.EqualValues(t, 10, *inv.Limit)
	assert.Equal(t, DefaultCollation(), inv.Collation)
}

// GROUP BY with HAVING resolved against the accumulator alias.
func TestGroupByHaving(t *testing.T) {
	inv := lower(t, "SELECT country, COUNT(*) AS n FROM customers GROUP BY country HAVING COUNT(*) > 5 ORDER BY n DESC;")

	require.Equal(t, invocation.OpAggregate, inv.Op)
	require.Len(t, inv.Pipeline, 4)

	group := stage(t, inv, 0)
	assert.Equal(t, "$group", group.Key)
	assert.Equal(t, bson.M{
		"_id":     "$country",
		"n":       bson.M{"$sum": 1},
		"country": bson.M{"$first": "$country"},
	}, group.Value)

	match := stage(t, inv, 1)
	assert.Equal(t, "$match", match.Key)
	assert.Equal(t, bson.M{"n": bson.M{"$gt": int64(5)}}, match.Value)

	sort := stage(t, inv, 2)
	assert.Equal(t, "$sort", sort.Key)
	assert.Equal(t, bson.D{{Key: "n", Value: -1}}, sort.Value)

	project := stage(t, inv, 3)
	assert.Equal(t, "$project", project.Key)
	assert.Equal(t, bson.M{"_id": 0, "country": 1, "n": 1}, project.Value)
}

// LEFT JOIN lowers to a correlated $lookup + $unwind pair.
func TestLeftJoin(t *testing.T) {
	inv := lower(t, "SELECT c.customerName, o.orderDate FROM customers c LEFT JOIN orders o ON c.customerNumber = o.customerNumber;")

	require.Equal(t, "customers", inv.Collection)
	require.Len(t, inv.Pipeline, 3)

	lookup := stage(t, inv, 0)
	require.Equal(t, "$lookup", lookup.Key)
	spec := lookup.Value.(bson.M)
	assert.Equal(t, "orders", spec["from"])
	assert.Equal(t, "o", spec["as"])
	assert.Equal(t, bson.M{"customerNumber": "$customerNumber"}, spec["let"])
	assert.Equal(t, []bson.D{
		{{Key: "$match", Value: bson.M{"$expr": bson.M{"$eq": bson.A{"$$customerNumber", "$customerNumber"}}}}},
	}, spec["pipeline"])

	unwind := stage(t, inv, 1)
	require.Equal(t, "$unwind", unwind.Key)
	assert.Equal(t, bson.M{"path": "$o", "preserveNullAndEmptyArrays": true}, unwind.Value)

	project := stage(t, inv, 2)
	assert.Equal(t, bson.M{"_id": 0, "customerName": 1, "orderDate": "$o.orderDate"}, project.Value)
}

func TestInnerJoinUnwindDropsMisses(t *testing.T) {
	inv := lower(t, "SELECT c.customerName FROM customers c JOIN orders o ON c.customerNumber = o.customerNumber")
	unwind := stage(t, inv, 1)
	assert.Equal(t, bson.M{"path": "$o", "preserveNullAndEmptyArrays": false}, unwind.Value)
}

func TestRightJoinSwaps(t *testing.T) {
	inv := lower(t, "SELECT o.orderDate FROM customers c RIGHT JOIN orders o ON c.customerNumber = o.customerNumber")

	// Base and target swap; the lookup now targets customers and o's
	// fields sit at the root.
	assert.Equal(t, "orders", inv.Collection)
	lookup := stage(t, inv, 0)
	spec := lookup.Value.(bson.M)
	assert.Equal(t, "customers", spec["from"])
	assert.Equal(t, "c", spec["as"])
	unwind := stage(t, inv, 1)
	assert.Equal(t, bson.M{"path": "$c", "preserveNullAndEmptyArrays": true}, unwind.Value)
}

// IN subqueries hoist a $lookup and compare against its output array.
func TestInSubquery(t *testing.T) {
	inv := lower(t, "SELECT customerName FROM customers WHERE customerNumber IN (SELECT customerNumber FROM orders);")

	require.Len(t, inv.Pipeline, 3)

	lookup := stage(t, inv, 0)
	spec := lookup.Value.(bson.M)
	assert.Equal(t, "orders", spec["from"])
	assert.Equal(t, "__in_1", spec["as"])
	assert.Equal(t, []bson.D{
		{{Key: "$project", Value: bson.M{"_id": 0, "customerNumber": 1}}},
	}, spec["pipeline"])

	match := stage(t, inv, 1)
	assert.Equal(t, bson.M{"$expr": bson.M{"$in": bson.A{"$customerNumber", "$__in_1.customerNumber"}}}, match.Value)

	project := stage(t, inv, 2)
	assert.Equal(t, bson.M{"_id": 0, "customerName": 1, "__in_1": 0}, project.Value)
}

// IF lowers to $cond.
func TestIfProjection(t *testing.T) {
	inv := lower(t, "SELECT IF(creditLimit > 50000, 'High', 'Low') AS tier FROM customers;")

	require.Len(t, inv.Pipeline, 1)
	project := stage(t, inv, 0)
	assert.Equal(t, bson.M{
		"_id":  0,
		"tier": bson.M{"$cond": bson.A{bson.M{"$gt": bson.A{"$creditLimit", int64(50000)}}, "High", "Low"}},
	}, project.Value)
}

// UPDATE with a literal SET keeps the plain $set document.
func TestUpdate(t *testing.T) {
	inv := lower(t, "UPDATE customers SET contactFirstName = 'Jane' WHERE customerNumber = 500;")

	assert.Equal(t, "customers", inv.Collection)
	assert.Equal(t, invocation.OpUpdateMany, inv.Op)
	assert.Equal(t, bson.M{"customerNumber": int64(500)}, inv.Filter)
	assert.Equal(t, bson.M{"$set": bson.M{"contactFirstName": "Jane"}}, inv.Update)
}

func TestUpdateWithColumnExpressionUsesPipeline(t *testing.T) {
	inv := lower(t, "UPDATE products SET price = price * 2 WHERE price < 10")

	pipeline, ok := inv.Update.(mongo.Pipeline)
	require.True(t, ok)
	require.Len(t, pipeline, 1)
	assert.Equal(t, "$set", pipeline[0][0].Key)
	assert.Equal(t, bson.M{"price": bson.M{"$multiply": bson.A{"$price", int64(2)}}}, pipeline[0][0].Value)
}

func TestInsertOneVersusMany(t *testing.T) {
	inv := lower(t, "INSERT INTO customers (name, city) VALUES ('Acme', 'Oslo')")
	assert.Equal(t, invocation.OpInsertOne, inv.Op)
	assert.Equal(t, bson.M{"name": "Acme", "city": "Oslo"}, inv.Document)

	inv = lower(t, "INSERT INTO customers (name) VALUES ('Acme'), ('Borg')")
	assert.Equal(t, invocation.OpInsertMany, inv.Op)
	require.Len(t, inv.Documents, 2)
}

func TestDelete(t *testing.T) {
	inv := lower(t, "DELETE FROM customers WHERE city = 'Oslo'")
	assert.Equal(t, invocation.OpDeleteMany, inv.Op)
	assert.Equal(t, bson.M{"city": "Oslo"}, inv.Filter)

	inv = lower(t, "DELETE FROM customers")
	assert.Equal(t, bson.M{}, inv.Filter)
}

func TestImplicitOrderShim(t *testing.T) {
	// find form: a LIMIT without ORDER BY sorts by _id.
	inv := lower(t, "SELECT name FROM customers LIMIT 5")
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, inv.Sort)

	// aggregate form: $sort immediately precedes $limit.
	inv = lower(t, "SELECT UPPER(name) AS n FROM customers LIMIT 5")
	n := len(inv.Pipeline)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, "$sort", inv.Pipeline[n-2][0].Key)
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, inv.Pipeline[n-2][0].Value)
	assert.Equal(t, "$limit", inv.Pipeline[n-1][0].Key)

	// Disabled by option.
	opts := DefaultOptions()
	opts.ImplicitOrderOnLimit = false
	stmt, err := parser.Parse("SELECT name FROM customers LIMIT 5")
	require.NoError(t, err)
	out, err := Lower(stmt, opts)
	require.NoError(t, err)
	assert.Nil(t, out.Sort)
}

func TestLikeLowering(t *testing.T) {
	inv := lower(t, "SELECT name FROM customers WHERE name LIKE 'Acme%'")
	assert.Equal(t, bson.M{"name": bson.M{"$regex": "^Acme.*"}}, inv.Filter)

	inv = lower(t, "SELECT name FROM customers WHERE name LIKE '%a_b%'")
	assert.Equal(t, bson.M{"name": bson.M{"$regex": ".*a.b.*"}}, inv.Filter)

	// Literal-only patterns are fully anchored and escaped.
	inv = lower(t, `SELECT name FROM customers WHERE name LIKE 'a.c+'`)
	assert.Equal(t, bson.M{"name": bson.M{"$regex": `^a\.c\+$`}}, inv.Filter)
}

func TestBetweenMergesBounds(t *testing.T) {
	inv := lower(t, "SELECT name FROM customers WHERE credit BETWEEN 100 AND 500")
	assert.Equal(t, bson.M{"credit": bson.M{"$gte": int64(100), "$lte": int64(500)}}, inv.Filter)
}

func TestNullPredicates(t *testing.T) {
	inv := lower(t, "SELECT name FROM customers WHERE phone IS NULL")
	assert.Equal(t, bson.M{"phone": nil}, inv.Filter)

	inv = lower(t, "SELECT name FROM customers WHERE phone IS NOT NULL")
	assert.Equal(t, bson.M{"phone": bson.M{"$exists": true, "$ne": nil}}, inv.Filter)
}

func TestDistinctLowering(t *testing.T) {
	inv := lower(t, "SELECT DISTINCT country FROM customers")

	group := stage(t, inv, 0)
	assert.Equal(t, bson.M{"_id": "$country"}, group.Value)
	replace := stage(t, inv, 1)
	assert.Equal(t, "$replaceRoot", replace.Key)
	assert.Equal(t, bson.M{"newRoot": bson.M{"country": "$_id"}}, replace.Value)

	inv = lower(t, "SELECT DISTINCT country, city FROM customers")
	group = stage(t, inv, 0)
	assert.Equal(t, bson.M{"_id": bson.M{"country": "$country", "city": "$city"}}, group.Value)
}

func TestScalarSubqueryValidation(t *testing.T) {
	err := lowerErr(t, "SELECT name FROM customers WHERE credit > (SELECT credit FROM customers)")
	var unsupported *translrerr.UnsupportedConstruct
	require.True(t, errors.As(err, &unsupported))

	inv := lower(t, "SELECT name FROM customers WHERE credit > (SELECT AVG(credit) FROM customers)")
	lookup := stage(t, inv, 0)
	require.Equal(t, "$lookup", lookup.Key)
	spec := lookup.Value.(bson.M)
	assert.Equal(t, "__scalar_1", spec["as"])
	unwind := stage(t, inv, 1)
	assert.Equal(t, "$unwind", unwind.Key)
}

func TestExistsSubquery(t *testing.T) {
	inv := lower(t, "SELECT name FROM customers c WHERE EXISTS (SELECT 1 FROM orders o WHERE o.customerNumber = c.customerNumber)")

	lookup := stage(t, inv, 0)
	spec := lookup.Value.(bson.M)
	assert.Equal(t, "orders", spec["from"])
	assert.Equal(t, "__exists_1", spec["as"])
	assert.Equal(t, bson.M{"customerNumber": "$customerNumber"}, spec["let"])

	match := stage(t, inv, 1)
	assert.Equal(t, bson.M{"$expr": bson.M{"$gt": bson.A{bson.M{"$size": "$__exists_1"}, 0}}}, match.Value)
}

func TestNotExistsSubquery(t *testing.T) {
	inv := lower(t, "SELECT name FROM customers c WHERE NOT EXISTS (SELECT 1 FROM orders o WHERE o.customerNumber = c.customerNumber)")
	match := stage(t, inv, 1)
	assert.Equal(t, bson.M{"$expr": bson.M{"$eq": bson.A{bson.M{"$size": "$__exists_1"}, 0}}}, match.Value)
}

func TestDerivedTableBecomesBase(t *testing.T) {
	inv := lower(t, "SELECT name FROM (SELECT name FROM customers WHERE credit > 100) rich")

	assert.Equal(t, "customers", inv.Collection)
	match := stage(t, inv, 0)
	assert.Equal(t, "$match", match.Key)
	assert.Equal(t, bson.M{"credit": bson.M{"$gt": int64(100)}}, match.Value)
}

func TestGroupByMismatch(t *testing.T) {
	err := lowerErr(t, "SELECT city, COUNT(*) FROM customers GROUP BY country")
	var mismatch *translrerr.GroupByMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "city", mismatch.Expression)
}

func TestAggregateWithoutGroupBy(t *testing.T) {
	inv := lower(t, "SELECT COUNT(*) AS n FROM customers")
	group := stage(t, inv, 0)
	assert.Equal(t, bson.M{"_id": nil, "n": bson.M{"$sum": 1}}, group.Value)
}

func TestCountDistinctTwoPhase(t *testing.T) {
	inv := lower(t, "SELECT COUNT(DISTINCT city) AS cities FROM customers")

	group := stage(t, inv, 0)
	assert.Equal(t, bson.M{"_id": nil, "cities": bson.M{"$addToSet": "$city"}}, group.Value)
	set := stage(t, inv, 1)
	assert.Equal(t, "$set", set.Key)
	assert.Equal(t, bson.M{"cities": bson.M{"$size": "$cities"}}, set.Value)
}

func TestGroupConcat(t *testing.T) {
	inv := lower(t, "SELECT country, GROUP_CONCAT(name SEPARATOR '; ') AS names FROM customers GROUP BY country")

	group := stage(t, inv, 0)
	doc := group.Value.(bson.M)
	assert.Equal(t, bson.M{"$push": "$name"}, doc["names"])
	set := stage(t, inv, 1)
	assert.Equal(t, "$set", set.Key)
}

func TestHavingHiddenAccumulator(t *testing.T) {
	inv := lower(t, "SELECT country FROM customers GROUP BY country HAVING COUNT(*) > 3")

	group := stage(t, inv, 0)
	doc := group.Value.(bson.M)
	assert.Contains(t, doc, "__having_1")

	match := stage(t, inv, 1)
	assert.Equal(t, bson.M{"__having_1": bson.M{"$gt": int64(3)}}, match.Value)

	project := stage(t, inv, 2)
	assert.Equal(t, bson.M{"_id": 0, "country": 1, "__having_1": 0}, project.Value)
}

func TestWindowRowNumber(t *testing.T) {
	inv := lower(t, "SELECT name, ROW_NUMBER() OVER (PARTITION BY country ORDER BY name) AS rn FROM customers")

	window := stage(t, inv, 0)
	require.Equal(t, "$setWindowFields", window.Key)
	spec := window.Value.(bson.M)
	assert.Equal(t, "$country", spec["partitionBy"])
	assert.Equal(t, bson.D{{Key: "name", Value: 1}}, spec["sortBy"])
	assert.Equal(t, bson.M{"rn": bson.M{"$documentNumber": bson.M{}}}, spec["output"])

	project := stage(t, inv, 1)
	assert.Equal(t, bson.M{"_id": 0, "name": 1, "rn": 1}, project.Value)
}

func TestWindowWithoutOverRejected(t *testing.T) {
	err := lowerErr(t, "SELECT ROW_NUMBER() FROM customers")
	var unsupported *translrerr.UnsupportedArgument
	require.True(t, errors.As(err, &unsupported))
}

func TestCTEInlined(t *testing.T) {
	inv := lower(t, `WITH rich AS (SELECT name, credit FROM customers WHERE credit > 100)
		SELECT name FROM rich ORDER BY name`)

	assert.Equal(t, "customers", inv.Collection)
	match := stage(t, inv, 0)
	assert.Equal(t, "$match", match.Key)
}

func TestRecursiveCTEGraphLookup(t *testing.T) {
	inv := lower(t, `WITH RECURSIVE tree AS (
		SELECT id, parent FROM nodes WHERE parent IS NULL
		UNION ALL
		SELECT n.id, n.parent FROM nodes n JOIN tree ON n.parent = tree.id
	) SELECT id FROM tree`)

	assert.Equal(t, "nodes", inv.Collection)
	var graph bson.M
	for _, st := range inv.Pipeline {
		if st[0].Key == "$graphLookup" {
			graph = st[0].Value.(bson.M)
		}
	}
	require.NotNil(t, graph)
	assert.Equal(t, "nodes", graph["from"])
	assert.Equal(t, "$id", graph["startWith"])
	assert.Equal(t, "id", graph["connectFromField"])
	assert.Equal(t, "parent", graph["connectToField"])
}

func TestUnsupportedRecursiveCTE(t *testing.T) {
	err := lowerErr(t, `WITH RECURSIVE t AS (
		SELECT id FROM nodes
		UNION ALL
		SELECT id FROM nodes WHERE id > 1
	) SELECT id FROM t`)
	var unsupported *translrerr.UnsupportedCTE
	require.True(t, errors.As(err, &unsupported))
}

// The two-argument bitwise form is a per-row scalar: it must not force
// the statement through $group.
func TestScalarBitwiseStaysPerRow(t *testing.T) {
	inv := lower(t, "SELECT BIT_AND(flags, 12) AS masked FROM events")

	require.Len(t, inv.Pipeline, 1)
	project := stage(t, inv, 0)
	assert.Equal(t, "$project", project.Key)
	assert.Equal(t, bson.M{
		"_id":    0,
		"masked": bson.M{"$bitAnd": bson.A{"$flags", int64(12)}},
	}, project.Value)

	// It is equally usable inside WHERE, where it does not disturb the
	// find fast path.
	inv = lower(t, "SELECT id FROM events WHERE BIT_AND(flags, 4) > 0")
	assert.Equal(t, invocation.OpFind, inv.Op)
	assert.Equal(t, bson.M{"$expr": bson.M{"$gt": bson.A{
		bson.M{"$bitAnd": bson.A{"$flags", int64(4)}}, int64(0),
	}}}, inv.Filter)
}

// The one-argument form accumulates across the group.
func TestAggregateBitwise(t *testing.T) {
	inv := lower(t, "SELECT BIT_OR(flags) AS combined FROM events")

	group := stage(t, inv, 0)
	assert.Equal(t, "$group", group.Key)
	assert.Equal(t, bson.M{"_id": nil, "combined": bson.M{"$bitOr": "$flags"}}, group.Value)
}

func TestHexUnhexRejected(t *testing.T) {
	for _, sql := range []string{
		"SELECT HEX(id) FROM customers",
		"SELECT UNHEX(code) FROM customers",
	} {
		err := lowerErr(t, sql)
		var unsupported *translrerr.UnsupportedArgument
		require.True(t, errors.As(err, &unsupported), sql)
	}
}

func TestRegexpReplaceRejected(t *testing.T) {
	err := lowerErr(t, "SELECT REGEXP_REPLACE(name, 'a+', 'b') FROM customers")
	var unsupported *translrerr.UnsupportedArgument
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "REGEXP_REPLACE", unsupported.Name)
}

func TestUnknownFunction(t *testing.T) {
	err := lowerErr(t, "SELECT FROBNICATE(name) FROM customers")
	var unknown *translrerr.UnknownFunction
	require.True(t, errors.As(err, &unknown))
}

func TestTableLessSelect(t *testing.T) {
	inv := lower(t, "SELECT 1 + 1 AS two")

	assert.Equal(t, "__literals", inv.Collection)
	docs := stage(t, inv, 0)
	assert.Equal(t, "$documents", docs.Key)
	project := stage(t, inv, 1)
	assert.Equal(t, bson.M{"_id": 0, "two": bson.M{"$add": bson.A{int64(1), int64(1)}}}, project.Value)
}

func TestCaseLowering(t *testing.T) {
	inv := lower(t, "SELECT CASE WHEN credit > 100 THEN 'high' ELSE 'low' END AS tier FROM customers")
	project := stage(t, inv, 0)
	assert.Equal(t, bson.M{"_id": 0, "tier": bson.M{"$switch": bson.M{
		"branches": bson.A{bson.M{
			"case": bson.M{"$gt": bson.A{"$credit", int64(100)}},
			"then": "high",
		}},
		"default": "low",
	}}}, project.Value)
}

func TestCoalesceNesting(t *testing.T) {
	inv := lower(t, "SELECT COALESCE(a, b, 0) AS v FROM t")
	project := stage(t, inv, 0)
	assert.Equal(t, bson.M{"_id": 0, "v": bson.M{
		"$ifNull": bson.A{"$a", bson.M{"$ifNull": bson.A{"$b", int64(0)}}},
	}}, project.Value)
}

func TestNullIfLowering(t *testing.T) {
	inv := lower(t, "SELECT NULLIF(a, b) AS v FROM t")
	project := stage(t, inv, 0)
	assert.Equal(t, bson.M{"_id": 0, "v": bson.M{
		"$cond": bson.A{bson.M{"$eq": bson.A{"$a", "$b"}}, nil, "$a"},
	}}, project.Value)
}

func TestOrderByPosition(t *testing.T) {
	inv := lower(t, "SELECT name, city FROM customers ORDER BY 2 DESC")
	assert.Equal(t, bson.D{{Key: "city", Value: -1}}, inv.Sort)
}

func TestSkipThenLimit(t *testing.T) {
	inv := lower(t, "SELECT UPPER(name) AS n FROM customers ORDER BY n LIMIT 10 OFFSET 5")
	n := len(inv.Pipeline)
	assert.Equal(t, "$skip", inv.Pipeline[n-2][0].Key)
	assert.EqualValues(t, 5, inv.Pipeline[n-2][0].Value)
	assert.Equal(t, "$limit", inv.Pipeline[n-1][0].Key)
	assert.EqualValues(t, 10, inv.Pipeline[n-1][0].Value)
}
