package logging

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// impl fans each entry out to its appenders. Subloggers share the appenders but not the level.
type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	appenders []Appender
}

// Appender is an output for log entries. Every `zapcore.Core` is an Appender.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	return &impl{
		name:      newName,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var errs error
	for _, appender := range imp.appenders {
		errs = multierr.Append(errs, appender.Sync())
	}
	return errs
}

// logAt builds and writes an entry when level is enabled. The message is only formatted
// once the level check passes.
func (imp *impl) logAt(level Level, message func() string, keysAndValues []interface{}) {
	if level < imp.level.Get() {
		return
	}
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    message(),
		Caller:     getCaller(),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	fields := toFields(keysAndValues)
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

// toFields pairs odd elements as keys with the value that follows them.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func (imp *impl) Debug(args ...interface{}) {
	imp.logAt(DEBUG, func() string { return fmt.Sprint(args...) }, nil)
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.logAt(DEBUG, func() string { return fmt.Sprintf(template, args...) }, nil)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.logAt(DEBUG, func() string { return msg }, keysAndValues)
}

func (imp *impl) Info(args ...interface{}) {
	imp.logAt(INFO, func() string { return fmt.Sprint(args...) }, nil)
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.logAt(INFO, func() string { return fmt.Sprintf(template, args...) }, nil)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.logAt(INFO, func() string { return msg }, keysAndValues)
}

func (imp *impl) Warn(args ...interface{}) {
	imp.logAt(WARN, func() string { return fmt.Sprint(args...) }, nil)
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.logAt(WARN, func() string { return fmt.Sprintf(template, args...) }, nil)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.logAt(WARN, func() string { return msg }, keysAndValues)
}

func (imp *impl) Error(args ...interface{}) {
	imp.logAt(ERROR, func() string { return fmt.Sprint(args...) }, nil)
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.logAt(ERROR, func() string { return fmt.Sprintf(template, args...) }, nil)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.logAt(ERROR, func() string { return msg }, keysAndValues)
}

// getCaller reports the code that called one of the level methods, e.g. "cli/commands.go:134".
func getCaller() zapcore.EntryCaller {
	// getCaller, logAt, the level method, then its caller.
	const skipToLogCaller = 3
	var entryCaller zapcore.EntryCaller
	var ok bool
	entryCaller.PC, entryCaller.File, entryCaller.Line, ok = runtime.Caller(skipToLogCaller)
	if !ok {
		return entryCaller
	}
	entryCaller.Defined = true
	if fn := runtime.FuncForPC(entryCaller.PC); fn != nil {
		entryCaller.Function = fn.Name()
	}
	return entryCaller
}
