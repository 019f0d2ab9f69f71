package catalog

// Math family. Most names map directly onto the Mongo expression
// operator of the same name; LOG, LOG2 and COT are composed from other
// operators.

func init() {
	register(Entry{Name: "ABS", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$abs")})
	register(Entry{Name: "CEIL", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$ceil")})
	register(Entry{Name: "CEILING", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$ceil")})
	register(Entry{Name: "FLOOR", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$floor")})
	register(Entry{Name: "ROUND", Kind: Scalar, MinArgs: 1, MaxArgs: 2, Lower: variadic("$round")})
	register(Entry{Name: "TRUNCATE", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: variadic("$trunc")})
	register(Entry{Name: "MOD", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: variadic("$mod")})
	register(Entry{Name: "POWER", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: variadic("$pow")})
	register(Entry{Name: "POW", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: variadic("$pow")})
	register(Entry{Name: "SQRT", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$sqrt")})
	register(Entry{Name: "EXP", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$exp")})
	register(Entry{Name: "LN", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$ln")})
	register(Entry{Name: "LOG", Kind: Scalar, MinArgs: 1, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		if len(args) == 2 {
			return M{"$log": A{args[1], args[0]}}, nil
		}
		return M{"$ln": args[0]}, nil
	}})
	register(Entry{Name: "LOG2", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$log": A{args[0], 2}}, nil
	}})
	register(Entry{Name: "LOG10", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$log10")})
	register(Entry{Name: "SIN", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$sin")})
	register(Entry{Name: "COS", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$cos")})
	register(Entry{Name: "TAN", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$tan")})
	register(Entry{Name: "ASIN", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$asin")})
	register(Entry{Name: "ACOS", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$acos")})
	register(Entry{Name: "ATAN", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$atan")})
	register(Entry{Name: "ATAN2", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: variadic("$atan2")})
	register(Entry{Name: "COT", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$divide": A{1, M{"$tan": args[0]}}}, nil
	}})
	register(Entry{Name: "DEGREES", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$radiansToDegrees")})
	register(Entry{Name: "RADIANS", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$degreesToRadians")})
	register(Entry{Name: "SIGN", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$switch": M{
			"branches": A{
				M{"case": M{"$gt": A{args[0], 0}}, "then": 1},
				M{"case": M{"$lt": A{args[0], 0}}, "then": -1},
			},
			"default": 0,
		}}, nil
	}})
	register(Entry{Name: "GREATEST", Kind: Scalar, MinArgs: 1, MaxArgs: -1, Lower: variadic("$max")})
	register(Entry{Name: "LEAST", Kind: Scalar, MinArgs: 1, MaxArgs: -1, Lower: variadic("$min")})
	register(Entry{Name: "RAND", Kind: Scalar, MinArgs: 0, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$rand": M{}}, nil
	}})
	register(Entry{Name: "PI", Kind: Scalar, MinArgs: 0, MaxArgs: 0, Lower: func(args []interface{}) (interface{}, error) {
		return 3.141592653589793, nil
	}})
}
