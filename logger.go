package fulfill

// Logger receives structured log calls. Args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NopLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, ...any) {}

// WithFields returns a Logger that appends fields to the args of every call.
// It is used to scope logs to one job.
func WithFields(logger Logger, fields ...any) Logger {
	if logger == nil {
		return NopLogger{}
	}
	if len(fields) == 0 {
		return logger
	}

	return fieldLogger{next: logger, fields: fields}
}

type fieldLogger struct {
	next   Logger
	fields []any
}

func (l fieldLogger) with(args []any) []any {
	out := make([]any, 0, len(args)+len(l.fields))
	out = append(out, args...)

	return append(out, l.fields...)
}

func (l fieldLogger) Debug(msg string, args ...any) { l.next.Debug(msg, l.with(args)...) }
func (l fieldLogger) Info(msg string, args ...any)  { l.next.Info(msg, l.with(args)...) }
func (l fieldLogger) Warn(msg string, args ...any)  { l.next.Warn(msg, l.with(args)...) }
func (l fieldLogger) Error(msg string, args ...any) { l.next.Error(msg, l.with(args)...) }
