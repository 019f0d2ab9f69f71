package catalog

// Datetime family: current time/date, component extractors, arithmetic,
// construction, formatting, timezone, and unix-time conversions.
// NOW/CURDATE take no arguments; component extractors take their single
// argument already lowered to a Mongo date expression.

func init() {
	register(Entry{Name: "NOW", Kind: Scalar, MinArgs: 0, MaxArgs: 0, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$toDate": "$$NOW"}, nil
	}})
	register(Entry{Name: "CURDATE", Kind: Scalar, MinArgs: 0, MaxArgs: 0, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateTrunc": M{"date": "$$NOW", "unit": "day"}}, nil
	}})
	register(Entry{Name: "CURTIME", Kind: Scalar, MinArgs: 0, MaxArgs: 0, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateToString": M{"date": "$$NOW", "format": "%H:%M:%S"}}, nil
	}})
	register(Entry{Name: "UTC_TIMESTAMP", Kind: Scalar, MinArgs: 0, MaxArgs: 0, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$toDate": "$$NOW"}, nil
	}})
	register(Entry{Name: "UTC_DATE", Kind: Scalar, MinArgs: 0, MaxArgs: 0, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateTrunc": M{"date": "$$NOW", "unit": "day"}}, nil
	}})
	register(Entry{Name: "UTC_TIME", Kind: Scalar, MinArgs: 0, MaxArgs: 0, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateToString": M{"date": "$$NOW", "format": "%H:%M:%S"}}, nil
	}})

	extractor := func(op string) LowerFunc {
		return unary(op)
	}
	register(Entry{Name: "YEAR", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: extractor("$year")})
	register(Entry{Name: "MONTH", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: extractor("$month")})
	register(Entry{Name: "DAY", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: extractor("$dayOfMonth")})
	register(Entry{Name: "HOUR", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: extractor("$hour")})
	register(Entry{Name: "MINUTE", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: extractor("$minute")})
	register(Entry{Name: "SECOND", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: extractor("$second")})
	register(Entry{Name: "MICROSECOND", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$multiply": A{M{"$millisecond": args[0]}, 1000}}, nil
	}})
	register(Entry{Name: "DAYOFWEEK", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: extractor("$dayOfWeek")})
	register(Entry{Name: "DAYOFYEAR", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: extractor("$dayOfYear")})
	register(Entry{Name: "QUARTER", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$ceil": M{"$divide": A{M{"$month": args[0]}, 3}}}, nil
	}})
	register(Entry{Name: "WEEK", Kind: Scalar, MinArgs: 1, MaxArgs: 2, Lower: extractor("$week")})
	register(Entry{Name: "WEEKOFYEAR", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: extractor("$isoWeek")})
	register(Entry{Name: "WEEKDAY", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		// MariaDB WEEKDAY is 0=Monday..6=Sunday; Mongo $dayOfWeek is 1=Sunday..7=Saturday.
		return M{"$mod": A{M{"$add": A{M{"$dayOfWeek": args[0]}, 5}}, 7}}, nil
	}})
	register(Entry{Name: "YEARWEEK", Kind: Scalar, MinArgs: 1, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$add": A{
			M{"$multiply": A{M{"$year": args[0]}, 100}},
			M{"$week": args[0]},
		}}, nil
	}})
	register(Entry{Name: "DAYNAME", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateToString": M{"date": args[0], "format": "%A"}}, nil
	}})
	register(Entry{Name: "MONTHNAME", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateToString": M{"date": args[0], "format": "%B"}}, nil
	}})

	register(Entry{Name: "DATE_ADD", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: dateShift(1)})
	register(Entry{Name: "DATE_SUB", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: dateShift(-1)})
	register(Entry{Name: "ADDDATE", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: dateShift(1)})
	register(Entry{Name: "SUBDATE", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: dateShift(-1)})
	register(Entry{Name: "ADDTIME", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateAdd": M{"startDate": args[0], "unit": "second", "amount": args[1]}}, nil
	}})
	register(Entry{Name: "SUBTIME", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateSubtract": M{"startDate": args[0], "unit": "second", "amount": args[1]}}, nil
	}})
	register(Entry{Name: "TIMESTAMPADD", Kind: Scalar, MinArgs: 3, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateAdd": M{"startDate": args[2], "unit": timeUnitArg(args[0]), "amount": args[1]}}, nil
	}})
	register(Entry{Name: "TIMESTAMPDIFF", Kind: Scalar, MinArgs: 3, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateDiff": M{"startDate": args[1], "endDate": args[2], "unit": timeUnitArg(args[0])}}, nil
	}})
	register(Entry{Name: "DATEDIFF", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateDiff": M{"startDate": args[1], "endDate": args[0], "unit": "day"}}, nil
	}})
	register(Entry{Name: "PERIOD_ADD", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$add": A{args[0], args[1]}}, nil
	}})
	register(Entry{Name: "PERIOD_DIFF", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$subtract": A{args[0], args[1]}}, nil
	}})

	register(Entry{Name: "MAKEDATE", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateAdd": M{
			"startDate": M{"$dateFromParts": M{"year": args[0], "month": 1, "day": 1}},
			"unit":      "day",
			"amount":    M{"$subtract": A{args[1], 1}},
		}}, nil
	}})
	register(Entry{Name: "MAKETIME", Kind: Scalar, MinArgs: 3, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateFromParts": M{"year": 1970, "month": 1, "day": 1, "hour": args[0], "minute": args[1], "second": args[2]}}, nil
	}})
	register(Entry{Name: "FROM_DAYS", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateAdd": M{"startDate": M{"$dateFromParts": M{"year": 1, "month": 1, "day": 1}}, "unit": "day", "amount": args[0]}}, nil
	}})
	register(Entry{Name: "TO_DAYS", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateDiff": M{"startDate": M{"$dateFromParts": M{"year": 1, "month": 1, "day": 1}}, "endDate": args[0], "unit": "day"}}, nil
	}})
	register(Entry{Name: "SEC_TO_TIME", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateToString": M{
			"date":   M{"$dateAdd": M{"startDate": M{"$dateFromParts": M{"year": 1970, "month": 1, "day": 1}}, "unit": "second", "amount": args[0]}},
			"format": "%H:%M:%S",
		}}, nil
	}})
	register(Entry{Name: "TIME_TO_SEC", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$add": A{
			M{"$multiply": A{M{"$hour": args[0]}, 3600}},
			M{"$multiply": A{M{"$minute": args[0]}, 60}},
			M{"$second": args[0]},
		}}, nil
	}})
	register(Entry{Name: "LAST_DAY", Kind: Scalar, MinArgs: 1, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateSubtract": M{
			"startDate": M{"$dateAdd": M{"startDate": args[0], "unit": "month", "amount": 1}},
			"unit":      "day",
			"amount":    M{"$dayOfMonth": args[0]},
		}}, nil
	}})

	register(Entry{Name: "DATE_FORMAT", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: lowerDateFormat})
	register(Entry{Name: "STR_TO_DATE", Kind: Scalar, MinArgs: 2, MaxArgs: 2, Lower: lowerStrToDate})
	register(Entry{Name: "CONVERT_TZ", Kind: Scalar, MinArgs: 3, MaxArgs: 3, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$dateToString": M{"date": args[0], "timezone": args[2]}}, nil
	}})
	register(Entry{Name: "UNIX_TIMESTAMP", Kind: Scalar, MinArgs: 0, MaxArgs: 1, Lower: func(args []interface{}) (interface{}, error) {
		target := interface{}("$$NOW")
		if len(args) == 1 {
			target = args[0]
		}
		return M{"$divide": A{M{"$subtract": A{target, M{"$dateFromParts": M{"year": 1970, "month": 1, "day": 1}}}}, 1000}}, nil
	}})
	register(Entry{Name: "FROM_UNIXTIME", Kind: Scalar, MinArgs: 1, MaxArgs: 2, Lower: func(args []interface{}) (interface{}, error) {
		return M{"$toDate": M{"$multiply": A{args[0], 1000}}}, nil
	}})
}

// dateShift returns a lower func for DATE_ADD/DATE_SUB-family calls whose
// second argument is an Interval literal already lowered to
// {amount, unit}; sign flips $dateAdd to $dateSubtract.
func dateShift(sign int) LowerFunc {
	return func(args []interface{}) (interface{}, error) {
		iv, ok := args[1].(M)
		if !ok {
			return nil, argsError("DATE_ADD", "second argument must be an INTERVAL")
		}
		op := "$dateAdd"
		if sign < 0 {
			op = "$dateSubtract"
		}
		return M{op: M{"startDate": args[0], "unit": iv["unit"], "amount": iv["amount"]}}, nil
	}
}

func timeUnitArg(arg interface{}) interface{} {
	if s, ok := arg.(string); ok {
		return mariaUnitToMongo(s)
	}
	return arg
}

func mariaUnitToMongo(unit string) string {
	switch unit {
	case "YEAR":
		return "year"
	case "QUARTER":
		return "quarter"
	case "MONTH":
		return "month"
	case "WEEK":
		return "week"
	case "DAY":
		return "day"
	case "HOUR":
		return "hour"
	case "MINUTE":
		return "minute"
	case "SECOND":
		return "second"
	case "MICROSECOND":
		return "millisecond"
	default:
		return "day"
	}
}
