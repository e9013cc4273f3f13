package fulfill

import (
	"reflect"
	"testing"
)

type logCall struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	calls []logCall
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) add(level, msg string, args []any) {
	l.calls = append(l.calls, logCall{level: level, msg: msg, args: args})
}

func TestWithFieldsAppendsFields(t *testing.T) {
	base := &recordingLogger{}
	log := WithFields(base, "job_id", "j1")

	log.Info("fulfill job finished", "result", "delivered")
	log.Error("fulfill job failed")

	want := []logCall{
		{level: "info", msg: "fulfill job finished", args: []any{"result", "delivered", "job_id", "j1"}},
		{level: "error", msg: "fulfill job failed", args: []any{"job_id", "j1"}},
	}
	if !reflect.DeepEqual(base.calls, want) {
		t.Fatalf("unexpected calls %+v", base.calls)
	}
}

func TestWithFieldsNilAndEmpty(t *testing.T) {
	if _, ok := WithFields(nil, "k", "v").(NopLogger); !ok {
		t.Fatalf("nil logger must yield NopLogger")
	}
	base := &recordingLogger{}
	if got := WithFields(base); got != Logger(base) {
		t.Fatalf("empty fields must return the logger unchanged")
	}
}
