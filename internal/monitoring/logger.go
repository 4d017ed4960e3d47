// Package monitoring holds the package-level diagnostic log hooks shared by
// the segmentation packages.
package monitoring

import "log"

// Logf is the diagnostic logger for progress lines. It defaults to
// log.Printf and may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf receives recoverable conditions such as degenerate seeds or
// sanitised affinities. It defaults to log.Printf with a WARN prefix.
var Warnf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	log.Printf("WARN "+format, v...)
}

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetWarnLogger replaces Warnf. Passing nil installs a no-op logger.
func SetWarnLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Warnf = func(string, ...interface{}) {}
		return
	}
	Warnf = f
}

// Mute silences both hooks and returns a function restoring them.
// Tests use it to keep output quiet.
func Mute() (restore func()) {
	logf, warnf := Logf, Warnf
	SetLogger(nil)
	SetWarnLogger(nil)
	return func() {
		Logf, Warnf = logf, warnf
	}
}
