package common

import (
	"log"
	"os"
)

var logger = log.New(os.Stderr, "[wiblgate] ", log.LstdFlags|log.Lmicroseconds)

// Logf is the package-level diagnostic logger. It defaults to the standard
// stderr logger but may be replaced via SetLogger so tests and daemons can
// redirect or mute it.
var Logf func(format string, args ...interface{}) = logger.Printf

func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, args ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// ResetLogger restores the default stderr logger.
func ResetLogger() {
	Logf = logger.Printf
}
