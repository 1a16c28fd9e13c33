// Package testutil holds shared test setup. Importing it silences logrus
// unless tests run with -v.
package testutil

import (
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func init() {
	verbose := false
	for _, arg := range os.Args {
		if arg == "-test.v=true" || arg == "-test.v" {
			verbose = true
		}
	}

	logrus.SetLevel(logrus.TraceLevel)
	if !verbose {
		logrus.StandardLogger().Out = io.Discard
	}
}

// CaptureLogs records every entry written to the standard logger until the
// test ends. Tests using it must not run in parallel.
func CaptureLogs(t testing.TB) *logtest.Hook {
	logger := logrus.StandardLogger()

	hook := new(logtest.Hook)
	previous := logger.ReplaceHooks(logrus.LevelHooks{})
	logger.AddHook(hook)

	t.Cleanup(func() {
		logger.ReplaceHooks(previous)
	})
	return hook
}

// EntriesAt returns the captured entries logged at level.
func EntriesAt(hook *logtest.Hook, level logrus.Level) []logrus.Entry {
	var entries []logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level == level {
			entries = append(entries, *entry)
		}
	}
	return entries
}
