package catalog

// Aggregate family. Lower recipes here are consulted by
// the lowering engine's $group-stage assembly (engine/lowering/group.go),
// which supplies an already-lowered single expression argument (COUNT(*)
// is special-cased there after the arity check, without calling these
// recipes).
// Statistical aggregates round their result to 6 decimal places to match
// reference behaviour.

func init() {
	register(Entry{Name: "COUNT", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$sum": 1}, nil
	}})
	register(Entry{Name: "SUM", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: unary("$sum")})
	register(Entry{Name: "AVG", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: unary("$avg")})
	register(Entry{Name: "MIN", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: unary("$min")})
	register(Entry{Name: "MAX", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: unary("$max")})
	register(Entry{Name: "GROUP_CONCAT", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$push": args[0]}, nil
	}})
	register(Entry{Name: "STDDEV_POP", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: roundedAccumulator("$stdDevPop")})
	register(Entry{Name: "STDDEV_SAMP", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: roundedAccumulator("$stdDevSamp")})
	register(Entry{Name: "STDDEV", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: roundedAccumulator("$stdDevSamp")})
	register(Entry{Name: "VAR_POP", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$round": A{M{"$pow": A{M{"$stdDevPop": args[0]}, 2}}, 6}}, nil
	}})
	register(Entry{Name: "VAR_SAMP", Kind: Aggregate, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$round": A{M{"$pow": A{M{"$stdDevSamp": args[0]}, 2}}, 6}}, nil
	}})
	// BIT_AND/OR/XOR are dual scalar/aggregate: two arguments lower to
	// the per-row bitwise operator, one argument to the accumulator used
	// inside $group. IsAccumulator tells the call sites apart, so the
	// two-argument form never routes through $group-stage assembly.
	register(Entry{Name: "BIT_AND", Kind: Aggregate, MinArgs: 1, MaxArgs: 2, Lower: dualBitwise("$bitAnd")})
	register(Entry{Name: "BIT_OR", Kind: Aggregate, MinArgs: 1, MaxArgs: 2, Lower: dualBitwise("$bitOr")})
	register(Entry{Name: "BIT_XOR", Kind: Aggregate, MinArgs: 1, MaxArgs: 2, Lower: dualBitwise("$bitXor")})
}

func roundedAccumulator(op string) LowerFunc {
	return func(args []interface{}) (interface{}, error) {
		return M{"$round": A{M{op: args[0]}, 6}}, nil
	}
}

func dualBitwise(op string) LowerFunc {
	return func(args []interface{}) (interface{}, error) {
		if len(args) == 2 {
			return M{op: A{args[0], args[1]}}, nil
		}
		return M{op: args[0]}, nil
	}
}
