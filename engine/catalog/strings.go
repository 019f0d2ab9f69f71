package catalog

// String family. Recipes assume CONCAT/LEFT/RIGHT-style
// argument order as in MariaDB; index arithmetic converts MariaDB's
// 1-based positions to Mongo's 0-based $substrCP offsets

func init() {
	register(Entry{Name: "CONCAT", Kind: Scalar, MinArgs: 1, MaxArgs: -1, Lower: variadic("$concat")})
	register(Entry{Name: "CONCAT_WS", Kind: Scalar, MinArgs: 2, MaxArgs: -1, Lower: func(args []interface{}) (interface{}, error) {
		sep := args[0]
		parts := A{}
		for i, a := range args[1:] {
			if i > 0 {
				parts = append(parts, sep)
			}
			parts = append(parts, a)
		}
		return M{"$concat": parts}, nil
	}})
	register(Entry{Name: "LENGTH", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$strLenBytes")})
	register(Entry{Name: "CHAR_LENGTH", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$strLenCP")})
	register(Entry{Name: "CHARACTER_LENGTH", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$strLenCP")})
	register(Entry{Name: "UPPER", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$toUpper")})
	register(Entry{Name: "UCASE", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$toUpper")})
	register(Entry{Name: "LOWER", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$toLower")})
	register(Entry{Name: "LCASE", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$toLower")})

	register(Entry{Name: "LEFT", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$substrCP": A{args[0], 0, args[1]}}, nil
	}})
	register(Entry{Name: "RIGHT", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		strLen := M{"$strLenCP": args[0]}
		start := M{"$subtract": A{strLen, args[1]}}
		return M{"$substrCP": A{args[0], M{"$max": A{start, 0}}, args[1]}}, nil
	}})
	register(Entry{Name: "SUBSTRING", Kind: Scalar, MinArgs: 2, MaxArgs: 3, Lower: lowerSubstring})
	register(Entry{Name: "SUBSTR", Kind: Scalar, MinArgs: 2, MaxArgs: 3, Lower: lowerSubstring})
	register(Entry{Name: "MID", Kind: Scalar, MinArgs: 2, MaxArgs: 3, Lower: lowerSubstring})

	register(Entry{Name: "TRIM", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$trim")})
	register(Entry{Name: "LTRIM", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$ltrim")})
	register(Entry{Name: "RTRIM", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$rtrim")})

	register(Entry{Name: "REPLACE", Kind: Scalar, MinArgs: 3, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$replaceAll": M{"input": args[0], "find": args[1], "replacement": args[2]}}, nil
	}})
	register(Entry{Name: "REVERSE", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$reverseArray": M{"$split": A{args[0], ""}}}, nil
	}})
	register(Entry{Name: "LPAD", Kind: Scalar, MinArgs: 3, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$pad": M{"input": args[0], "size": args[1], "char": args[2], "side": "left"}}, nil
	}})
	register(Entry{Name: "RPAD", Kind: Scalar, MinArgs: 3, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$pad": M{"input": args[0], "size": args[1], "char": args[2], "side": "right"}}, nil
	}})
	register(Entry{Name: "INSTR", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$add": A{M{"$indexOfCP": A{args[0], args[1]}}, 1}}, nil
	}})
	register(Entry{Name: "LOCATE", Kind: Scalar, MinArgs: 2, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		idxArgs := A{args[1], args[0]}
		if len(args) == 3 {
			idxArgs = append(idxArgs, M{"$subtract": A{args[2], 1}})
		}
		return M{"$add": A{M{"$indexOfCP": idxArgs}, 1}}, nil
	}})
	register(Entry{Name: "POSITION", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$add": A{M{"$indexOfCP": A{args[1], args[0]}}, 1}}, nil
	}})
	register(Entry{Name: "REPEAT", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$reduce": M{
			"input":        M{"$range": A{0, args[1]}},
			"initialValue": "",
			"in":           M{"$concat": A{"$$value", args[0]}},
		}}, nil
	}})
	register(Entry{Name: "FORMAT", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$trunc": A{args[0], args[1]}}, nil
	}})
	// MongoDB has no hex encode/decode expression operators; these fail
	// loudly rather than lower to something unrelated.
	register(Entry{Name: "HEX", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unsupported("HEX", "no MongoDB hex-encoding operator")})
	register(Entry{Name: "UNHEX", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unsupported("UNHEX", "no MongoDB hex-decoding operator")})
	register(Entry{Name: "SOUNDEX", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$toUpper")})
	register(Entry{Name: "ASCII", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$first": M{"$map": M{
			"input": M{"$range": A{0, 1}},
			"in":    M{"$toInt": M{"$substrBytes": A{args[0], 0, 1}}},
		}}}, nil
	}})
}

func lowerSubstring(args []interface{}) (interface{}, error) {
	start := zeroBasedStart(args[1])
	if len(args) == 3 {
		return M{"$substrCP": A{args[0], start, args[2]}}, nil
	}
	return M{"$substrCP": A{args[0], start, M{"$strLenCP": args[0]}}}, nil
}

// zeroBasedStart converts a MariaDB 1-based start position to Mongo's
// 0-based offset; if the literal is statically known, the subtraction is
// folded at lowering time, otherwise it is emitted as an expression.
func zeroBasedStart(start interface{}) interface{} {
	if n, ok := toInt(start); ok {
		return n - 1
	}
	return M{"$subtract": A{start, 1}}
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
