package log

import (
	"context"
	"fmt"
	"os"
)

func (b *BaseLogger) clone() *BaseLogger {
	fields := make(Fields, len(b.fields))
	for k, v := range b.fields {
		fields[k] = v
	}
	return &BaseLogger{
		level:      b.level,
		fields:     fields,
		formatter:  b.formatter,
		outputs:    b.outputs,
		slogLogger: b.slogLogger,
	}
}

func (b *BaseLogger) log(level Level, msg string, fields []Field) {
	attrs := attrsToAny(attrsFromFieldSlice(fields))
	b.slogLogger.Log(context.Background(), toSlogLevel(level), msg, attrs...)
}

func (b *BaseLogger) logf(level Level, format string, args []interface{}) {
	b.slogLogger.Log(context.Background(), toSlogLevel(level), fmt.Sprintf(format, args...))
}

func (b *BaseLogger) Debug(msg string, fields ...Field) { b.log(DebugLevel, msg, fields) }
func (b *BaseLogger) Info(msg string, fields ...Field)  { b.log(InfoLevel, msg, fields) }
func (b *BaseLogger) Warn(msg string, fields ...Field)  { b.log(WarnLevel, msg, fields) }
func (b *BaseLogger) Error(msg string, fields ...Field) { b.log(ErrorLevel, msg, fields) }

func (b *BaseLogger) Fatal(msg string, fields ...Field) {
	b.log(FatalLevel, msg, fields)
	os.Exit(1)
}

func (b *BaseLogger) Debugf(msg string, args ...interface{}) { b.logf(DebugLevel, msg, args) }
func (b *BaseLogger) Infof(msg string, args ...interface{})  { b.logf(InfoLevel, msg, args) }
func (b *BaseLogger) Warnf(msg string, args ...interface{})  { b.logf(WarnLevel, msg, args) }
func (b *BaseLogger) Errorf(msg string, args ...interface{}) { b.logf(ErrorLevel, msg, args) }

func (b *BaseLogger) Fatalf(msg string, args ...interface{}) {
	b.logf(FatalLevel, msg, args)
	os.Exit(1)
}

func (b *BaseLogger) WithField(key string, value interface{}) Logger {
	n := b.clone()
	n.fields[key] = value
	n.slogLogger = b.slogLogger.With(key, value)
	return n
}

func (b *BaseLogger) WithFields(fields Fields) Logger {
	n := b.clone()
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		n.fields[k] = v
		args = append(args, k, v)
	}
	n.slogLogger = b.slogLogger.With(args...)
	return n
}

func (b *BaseLogger) WithError(err error) Logger { return b.WithField("error", err) }

func (b *BaseLogger) With(fields ...Field) Logger {
	n := b.clone()
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		n.fields[f.Key] = f.Value
		args = append(args, f.Key, f.Value)
	}
	n.slogLogger = b.slogLogger.With(args...)
	return n
}

func (b *BaseLogger) WithContext(ctx context.Context) Logger {
	extracted := ContextExtractor(ctx)
	if len(extracted) == 0 {
		return b
	}
	return b.WithFields(extracted)
}

func (b *BaseLogger) WithComponent(component string) Logger {
	return b.WithField(ComponentKey, component)
}

func (b *BaseLogger) SetLevel(level Level) { b.level = level }
func (b *BaseLogger) GetLevel() Level      { return b.level }
