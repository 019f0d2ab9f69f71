package catalog

import "strings"

// JSON family. JSON_EXTRACT's path argument is a MariaDB
// JSON path ("$.a.b" / "$[0]"); Mongo has no generic JSONPath operator, so
// paths restricted to simple dotted field access lower to $getField
// chains, the common case for the catalogue's scope.

func init() {
	register(Entry{Name: "JSON_EXTRACT", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		path, ok := args[1].(string)
		if !ok {
			return nil, argsError("JSON_EXTRACT", "path must be a string literal")
		}
		return lowerJSONPath(args[0], path)
	}})
	register(Entry{Name: "JSON_OBJECT", Kind: Scalar, MinArgs: 0, MaxArgs: -1, Lower: func(args []interface{}) (interface{}, error) {
		if len(args)%2 != 0 {
			return nil, argsError("JSON_OBJECT", "expects key/value pairs")
		}
		obj := M{}
		for i := 0; i+1 < len(args); i += 2 {
			key, ok := args[i].(string)
			if !ok {
				return nil, argsError("JSON_OBJECT", "keys must be string literals")
			}
			obj[key] = args[i+1]
		}
		return obj, nil
	}})
	register(Entry{Name: "JSON_ARRAY", Kind: Scalar, MinArgs: 0, MaxArgs: -1, Lower: func(args []interface{}) (interface{}, error) {
		return A(args), nil
	}})
	register(Entry{Name: "JSON_UNQUOTE", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: unary("$toString")})
	register(Entry{Name: "JSON_KEYS", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$map": M{"input": M{"$objectToArray": args[0]}, "as": "kv", "in": "$$kv.k"}}, nil
	}})
	register(Entry{Name: "JSON_LENGTH", Kind: Scalar, MinArgs: 1, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$size": M{"$objectToArray": args[0]}}, nil
	}})
	register(Entry{Name: "JSON_CONTAINS", Kind: Scalar, MinArgs: 2, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$in": A{args[1], M{"$map": M{"input": M{"$objectToArray": args[0]}, "as": "kv", "in": "$$kv.v"}}}}, nil
	}})
	register(Entry{Name: "JSON_SET", Kind: Scalar, MinArgs: 3, MaxArgs: -1, Lower: func(args []interface{}) (interface{}, error) {
		return lowerJSONMutate(args, true)
	}})
	register(Entry{Name: "JSON_REPLACE", Kind: Scalar, MinArgs: 3, MaxArgs: -1, Lower: func(args []interface{}) (interface{}, error) {
		return lowerJSONMutate(args, false)
	}})
	register(Entry{Name: "JSON_REMOVE", Kind: Scalar, MinArgs: 2, MaxArgs: -1, Lower: func(args []interface{}) (interface{}, error) {
		doc := args[0]
		for _, p := range args[1:] {
			path, ok := p.(string)
			if !ok {
				return nil, argsError("JSON_REMOVE", "path must be a string literal")
			}
			field := strings.TrimPrefix(path, "$.")
			doc = M{"$setField": M{"field": field, "input": doc, "value": "$$REMOVE"}}
		}
		return doc, nil
	}})
}

func lowerJSONPath(doc interface{}, path string) (interface{}, error) {
	field := strings.TrimPrefix(path, "$.")
	if field == "$" || field == "" {
		return doc, nil
	}
	segments := strings.Split(field, ".")
	expr := doc
	for _, seg := range segments {
		expr = M{"$getField": M{"field": seg, "input": expr}}
	}
	return expr, nil
}

func lowerJSONMutate(args []interface{}, allowCreate bool) (interface{}, error) {
	doc := args[0]
	for i := 1; i+1 < len(args); i += 2 {
		path, ok := args[i].(string)
		if !ok {
			return nil, argsError("JSON_SET", "path must be a string literal")
		}
		field := strings.TrimPrefix(path, "$.")
		doc = M{"$setField": M{"field": field, "input": doc, "value": args[i+1]}}
	}
	return doc, nil
}
