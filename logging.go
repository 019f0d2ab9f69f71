package mongosql

import "github.com/sirupsen/logrus"

// log reports translate-call outcomes around the pure core: successful
// translations at Debug, failures at Warn. The lexer, parser, and
// lowering engine themselves never log.
var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the package logger; pass a silenced logger to
// suppress translation telemetry entirely.
func SetLogger(l logrus.FieldLogger) {
	if l != nil {
		log = l
	}
}
