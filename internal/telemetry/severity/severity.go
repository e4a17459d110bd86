// Package severity maps log level codes onto OpenTelemetry severities.
//
// Level codes follow the numeric convention used by the log emitters that
// feed the pipeline (10 trace ... 60 fatal). Severity numbers are the
// standardized OpenTelemetry values understood by telemetry backends.
package severity

import "go.uber.org/zap/zapcore"

// Number is an OpenTelemetry severity number.
type Number int

// Level codes accepted by Map.
const (
	LevelTrace = 10
	LevelDebug = 20
	LevelInfo  = 30
	LevelWarn  = 40
	LevelError = 50
	LevelFatal = 60
)

// OpenTelemetry severity numbers produced by Map.
const (
	Trace Number = 4
	Debug Number = 7
	Info  Number = 9
	Warn  Number = 14
	Error Number = 18
	Fatal Number = 24
)

// Map returns the severity pair for a level code. Unknown codes map to INFO.
func Map(code int) (Number, string) {
	switch code {
	case LevelTrace:
		return Trace, "TRACE"
	case LevelDebug:
		return Debug, "DEBUG"
	case LevelInfo:
		return Info, "INFO"
	case LevelWarn:
		return Warn, "WARN"
	case LevelError:
		return Error, "ERROR"
	case LevelFatal:
		return Fatal, "FATAL"
	default:
		return Info, "INFO"
	}
}

// FromZap converts a zap level into a level code.
func FromZap(l zapcore.Level) int {
	switch {
	case l < zapcore.InfoLevel:
		return LevelDebug
	case l == zapcore.InfoLevel:
		return LevelInfo
	case l == zapcore.WarnLevel:
		return LevelWarn
	case l == zapcore.ErrorLevel:
		return LevelError
	default:
		return LevelFatal
	}
}
