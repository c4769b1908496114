// Package monitoring holds the process-wide diagnostic loggers.
package monitoring

import "log"

// Logf is the package-level operational logger. It defaults to log.Printf and
// may be replaced with SetLogger to redirect or mute output.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf is the verbose trace logger for per-event output (notification
// payloads, descriptor acknowledgements). Disabled by default.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the operational logger. Passing nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebugLogger replaces the trace logger. Passing nil installs a no-op.
func SetDebugLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Debugf = func(string, ...interface{}) {}
		return
	}
	Debugf = f
}
