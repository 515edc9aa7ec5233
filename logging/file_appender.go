package logging

import (
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileAppender writes JSON log lines to a size-rotated file.
type FileAppender struct {
	zapcore.Core
	out *lumberjack.Logger
}

// NewFileAppender returns an appender that writes to path, rotating it every 64 MB and
// keeping three old files.
func NewFileAppender(path string) *FileAppender {
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 3,
	}
	encoderConfig := NewLoggerConfig().EncoderConfig
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return &FileAppender{
		Core: zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(out), zapcore.DebugLevel),
		out:  out,
	}
}

// Close closes the underlying file.
func (fa *FileAppender) Close() error {
	return fa.out.Close()
}
