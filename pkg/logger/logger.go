package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log - глобальный экземпляр логгера
var Log *zap.SugaredLogger

// Logger представляет интерфейс для логирования
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// DefaultLogger реализует интерфейс Logger, оборачивая глобальный логгер
type DefaultLogger struct{}

// Debug логирует с уровнем Debug
func (l *DefaultLogger) Debug(msg string, args ...interface{}) {
	Log.Debugw(msg, args...)
}

// Info логирует с уровнем Info
func (l *DefaultLogger) Info(msg string, args ...interface{}) {
	Log.Infow(msg, args...)
}

// Warn логирует с уровнем Warn
func (l *DefaultLogger) Warn(msg string, args ...interface{}) {
	Log.Warnw(msg, args...)
}

// Error логирует с уровнем Error
func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	Log.Errorw(msg, args...)
}

// Fatal логирует с уровнем Fatal и завершает программу с кодом 1
func (l *DefaultLogger) Fatal(msg string, args ...interface{}) {
	Log.Fatalw(msg, args...)
}

// NewLogger создает новый экземпляр логгера, который можно передавать в другие компоненты
func NewLogger() Logger {
	return &DefaultLogger{}
}

// Init инициализирует логгер на основе переданного окружения
// env: "prod" для продакшена, иначе используется development конфигурация
func Init(env string) {
	if env == "prod" {
		initLogger(zapcore.InfoLevel, false)
	} else {
		initLogger(zapcore.DebugLevel, true)
	}
}

func initLogger(level zapcore.Level, dev bool) {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		FunctionKey:    zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		zap.NewAtomicLevelAt(level),
	)

	options := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.ErrorOutput(zapcore.AddSync(os.Stderr)),
	}

	if dev {
		// Расширенный набор опций для dev-окружения
		options = append(options,
			zap.AddStacktrace(zapcore.WarnLevel),
			zap.Development(),
		)
	}

	Log = zap.New(core, options...).Sugar()
}

// Close закрывает логгер и освобождает ресурсы
func Close() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

// nopLogger ничего не пишет
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

// Nop возвращает логгер, который ничего не пишет (для тестов)
func Nop() Logger {
	return nopLogger{}
}
