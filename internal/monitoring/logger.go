package monitoring

import "log"

// LogFunc is the signature shared by Logf and log.Printf.
type LogFunc func(format string, v ...any)

// Logf emits engine diagnostics (index builds, pipeline stages). It defaults
// to log.Printf; SetLogger swaps it so binaries can tag output and tests can
// mute it.
var Logf LogFunc = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f LogFunc) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}
