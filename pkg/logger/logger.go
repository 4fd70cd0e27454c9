package logger

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

var (
	InfoLogger  *log.Logger
	ErrorLogger *log.Logger
	DebugLogger *log.Logger
	WarnLogger  *log.Logger

	debug atomic.Bool
)

func init() {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	InfoLogger = log.New(os.Stdout, "INFO: ", flags)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", flags)
	DebugLogger = log.New(os.Stdout, "DEBUG: ", flags)
	WarnLogger = log.New(os.Stdout, "WARN: ", flags)

	debug.Store(os.Getenv("ENVIRONMENT") == "development")
}

// SetDebug turns debug output on or off.
func SetDebug(enabled bool) {
	debug.Store(enabled)
}

func Info(format string, v ...interface{}) {
	InfoLogger.Output(2, fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	ErrorLogger.Output(2, fmt.Sprintf(format, v...))
}

func Debug(format string, v ...interface{}) {
	if debug.Load() {
		DebugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Warn(format string, v ...interface{}) {
	WarnLogger.Output(2, fmt.Sprintf(format, v...))
}

// Session logs a lifecycle event of the chat session of uid.
func Session(uid, event string) {
	InfoLogger.Output(2, fmt.Sprintf("Chat session %s: uid=%s", event, uid))
}

// LogListenerError records a snapshot listener failure.
func LogListenerError(kind, key string, err error) {
	ErrorLogger.Output(2, fmt.Sprintf("Listener error: kind=%s, key=%s, error=%v", kind, key, err))
}
