// Package monitoring carries the module's diagnostic logging hook.
// Pipeline stages report through Logf so a caller (or a test) can
// swap the destination without threading a logger through every
// stage constructor.
package monitoring

import "log"

// Logf emits one diagnostic line. The default is log.Printf; swap it
// with SetLogger to redirect or silence stage output.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger installs f as the package logger. A nil f mutes logging
// entirely.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
