// Package obslog provides the structured logger used for dispatch
// diagnostics: actor spawns, recovered panics, dropped messages and
// unhandled async exceptions. It wraps logrus the way pacs008-actor's
// Actor.run wraps its "log" package alias, except this module never leaves
// the dependency optional — the actor, mailboxfactory and cmd/lpcdemo
// packages import it directly.
package obslog

import "github.com/sirupsen/logrus"

// Log is the package-wide logger. Tests may swap its output via
// Log.SetOutput to silence or capture diagnostics.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}
