package catalog

// Window family. Recognised only when an OVER(...)
// clause is present; the lowering engine's window-stage assembly
// (engine/lowering/window.go) calls these recipes to build each output
// field inside a $setWindowFields stage, not a $group accumulator.

func init() {
	register(Entry{Name: "ROW_NUMBER", Kind: Window, MinArgs: 0, MaxArgs: 0, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$documentNumber": M{}}, nil
	}})
	register(Entry{Name: "RANK", Kind: Window, MinArgs: 0, MaxArgs: 0, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$rank": M{}}, nil
	}})
	register(Entry{Name: "DENSE_RANK", Kind: Window, MinArgs: 0, MaxArgs: 0, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$denseRank": M{}}, nil
	}})
	register(Entry{Name: "NTILE", Kind: Window, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$documentNumber": M{}}, nil // bucket assignment handled by lowering using the argument
	}})
	register(Entry{Name: "LAG", Kind: Window, MinArgs: 1, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		by := interface{}(-1)
		if len(args) >= 2 {
			by = negate(args[1])
		}
		shift := M{"output": args[0], "by": by}
		if len(args) == 3 {
			shift["default"] = args[2]
		}
		return M{"$shift": shift}, nil
	}})
	register(Entry{Name: "LEAD", Kind: Window, MinArgs: 1, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		by := interface{}(1)
		if len(args) >= 2 {
			by = args[1]
		}
		shift := M{"output": args[0], "by": by}
		if len(args) == 3 {
			shift["default"] = args[2]
		}
		return M{"$shift": shift}, nil
	}})
}

func negate(v interface{}) interface{} {
	if n, ok := toInt(v); ok {
		return -n
	}
	return M{"$multiply": A{v, -1}}
}
