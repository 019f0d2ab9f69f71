package catalog

// Regex family. These lower to $regexMatch/$regexFind
// rather than the LIKE pattern conversion in engine/lowering/like.go —
// REGEXP operands are already regular expressions, unlike LIKE's
// %/_ wildcard syntax.

func init() {
	register(Entry{Name: "REGEXP", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$regexMatch": M{"input": args[0], "regex": args[1]}}, nil
	}})
	register(Entry{Name: "RLIKE", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$regexMatch": M{"input": args[0], "regex": args[1]}}, nil
	}})
	register(Entry{Name: "REGEXP_INSTR", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$add": A{
			M{"$ifNull": A{M{"$indexOfCP": A{args[0], M{"$getField": M{"field": "match", "input": M{"$regexFind": M{"input": args[0], "regex": args[1]}}}}}}, -1}},
			1,
		}}, nil
	}})
	register(Entry{Name: "REGEXP_SUBSTR", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$getField": M{"field": "match", "input": M{"$regexFind": M{"input": args[0], "regex": args[1]}}}}, nil
	}})
	// $replaceAll only matches literal substrings and the aggregation
	// framework has no regex-replace operator, so REGEXP_REPLACE fails
	// loudly; REPLACE covers the literal-substring case.
	register(Entry{Name: "REGEXP_REPLACE", Kind: Scalar, MinArgs: 3, MaxArgs: 3,
		Lower: unsupported("REGEXP_REPLACE", "no MongoDB regex-replace operator; use REPLACE for literal substrings")})
}
