// Command mongosql translates MariaDB-dialect SQL into the MongoDB
// driver call it lowers to and prints the invocation as JSON. It never
// dials a database — connection settings from the environment are only
// surfaced so an enclosing driver shim can forward the invocation.
//
// Usage: mongosql <database> [-e "SQL"] [--batch]
//
// Exit codes: 0 success, 1 translation error, 2 database error
// (reserved for the driver shim), 3 usage error.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	mongosql "github.com/toddstoffel/MongoSQL"
	"github.com/toddstoffel/MongoSQL/engine/invocation"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if os.Getenv("MONGOSQL_DEBUG") != "" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	database := ""
	statement := ""
	batch := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-e":
			if i+1 >= len(args) {
				usage()
				return exitUsage
			}
			i++
			statement = args[i]
		case "--batch":
			batch = true
		default:
			if database != "" || strings.HasPrefix(args[i], "-") {
				usage()
				return exitUsage
			}
			database = args[i]
		}
	}
	if database == "" {
		usage()
		return exitUsage
	}
	logConnectionTarget()

	if statement != "" {
		return translate(statement, database, batch)
	}
	return repl(database)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mongosql <database> [-e \"SQL\"] [--batch]")
}

func translate(sql, database string, batch bool) int {
	if batch {
		invs, err := mongosql.TranslateMany(sql, database, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			return exitError
		}
		for _, inv := range invs {
			printInvocation(inv)
		}
		return exitOK
	}

	inv, err := mongosql.Translate(sql, database, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return exitError
	}
	printInvocation(inv)
	return exitOK
}

// repl reads statements from stdin, one per line, until quit/exit or
// EOF. Translation errors are reported and the loop continues, the way
// an interactive client stays up across bad statements.
func repl(database string) int {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(strings.TrimSuffix(line, ";")) {
		case "":
			continue
		case "quit", "exit":
			return exitOK
		case "help":
			fmt.Println("enter a SQL statement, or: use <db>, quit")
			continue
		}
		if rest, ok := strings.CutPrefix(line, "use "); ok {
			database = strings.TrimSuffix(strings.TrimSpace(rest), ";")
			fmt.Printf("database changed to %s\n", database)
			continue
		}

		inv, err := mongosql.Translate(line, database, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			continue
		}
		printInvocation(inv)
	}
	return exitOK
}

// printInvocation renders the invocation as indented JSON, omitting the
// fields the chosen op leaves empty.
func printInvocation(inv *invocation.Invocation) {
	doc := map[string]interface{}{
		"collection": inv.Collection,
		"op":         inv.Op,
	}
	if inv.Filter != nil {
		doc["filter"] = inv.Filter
	}
	if inv.Projection != nil {
		doc["projection"] = inv.Projection
	}
	if inv.Sort != nil {
		doc["sort"] = inv.Sort
	}
	if inv.Skip != nil {
		doc["skip"] = *inv.Skip
	}
	if inv.Limit != nil {
		doc["limit"] = *inv.Limit
	}
	if inv.Pipeline != nil {
		doc["pipeline"] = inv.Pipeline
	}
	if inv.Document != nil {
		doc["document"] = inv.Document
	}
	if inv.Documents != nil {
		doc["documents"] = inv.Documents
	}
	if inv.Update != nil {
		doc["update"] = inv.Update
	}
	if inv.Collation != nil {
		doc["collation"] = inv.Collation
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

// logConnectionTarget surfaces the driver-facing environment at debug level; the translator itself never reads it.
func logConnectionTarget() {
	host := os.Getenv("MONGO_HOST")
	if host == "" {
		return
	}
	port := os.Getenv("MONGO_PORT")
	if port == "" {
		port = "27017"
	}
	logrus.WithFields(logrus.Fields{
		"host":     host,
		"port":     port,
		"app_name": os.Getenv("MONGO_APP_NAME"),
		"ssl":      os.Getenv("MONGODB_SSL"),
	}).Debug("driver target (forwarded, not dialed)")
}
