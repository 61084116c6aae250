package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации ("info", "DEBUG", ...)
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

// Options общие настройки логгеров компонентов
type Options struct {
	Dir          string // каталог файлов логов; пустой — только консоль
	ConsoleLevel LogLevel
	FileLevel    LogLevel
	MaxSizeMB    int
	MaxBackups   int
	MaxAgeDays   int
}

// DefaultOptions консоль с INFO, без файлов
func DefaultOptions() Options {
	return Options{
		ConsoleLevel: INFO,
		FileLevel:    DEBUG,
		MaxSizeMB:    10,
		MaxBackups:   3,
		MaxAgeDays:   7,
	}
}

var (
	optionsMu sync.RWMutex
	options   = DefaultOptions()
)

// Configure задаёт настройки для логгеров, созданных после вызова
func Configure(opts Options) {
	optionsMu.Lock()
	options = opts
	optionsMu.Unlock()
}

func currentOptions() Options {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options
}

// Logger логгер компонента: консоль и (опционально) ротируемый файл
type Logger struct {
	component       string
	consoleLogger   *zap.SugaredLogger
	fileLogger      *zap.SugaredLogger
	file            *lumberjack.Logger
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeName:    zapcore.FullNameEncoder,
	}
}

// NewLogger создаёт логгер компонента по текущим настройкам
func NewLogger(component string) (*Logger, error) {
	opts := currentOptions()
	encoder := zapcore.NewConsoleEncoder(encoderConfig())

	console := zap.New(zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.DebugLevel)).
		Named(component).Sugar()

	l := &Logger{
		component:       component,
		consoleLogger:   console,
		minConsoleLevel: opts.ConsoleLevel,
		minFileLevel:    opts.FileLevel,
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории %s: %w", opts.Dir, err)
		}
		l.file = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, component+".log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		l.fileLogger = zap.New(zapcore.NewCore(encoder.Clone(), zapcore.AddSync(l.file), zapcore.DebugLevel)).
			Named(component).Sugar()
	}

	return l, nil
}

// Component имя компонента
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}
	if level >= l.minConsoleLevel && l.consoleLogger != nil {
		write(l.consoleLogger, level, format, args...)
	}
	if level >= l.minFileLevel && l.fileLogger != nil {
		write(l.fileLogger, level, format, args...)
	}
}

func write(s *zap.SugaredLogger, level LogLevel, format string, args ...interface{}) {
	switch level {
	case TRACE, DEBUG:
		s.Debugf(format, args...)
	case INFO:
		s.Infof(format, args...)
	case WARN:
		s.Warnf(format, args...)
	default:
		s.Errorf(format, args...)
	}
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// Close сбрасывает буферы и закрывает файл
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.consoleLogger.Sync()
	if l.fileLogger != nil {
		_ = l.fileLogger.Sync()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// HexDump создает hex дамп данных
func HexDump(data []byte) string {
	if len(data) == 0 {
		return "No data"
	}

	// Ограничиваем размер дампа до 256 байт
	size := len(data)
	if size > 256 {
		size = 256
	}

	return hex.Dump(data[:size])
}

// LogProtocolError логирует ошибки разбора кадра с дампом сырых данных
func LogProtocolError(logger *Logger, connID string, err error, data []byte) {
	logger.Warn("Protocol error from %s: %v", connID, err)
	if len(data) > 0 {
		logger.Debug("Raw data (%d bytes):\n%s", len(data), HexDump(data))
	}
}
