package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"codeberg.org/mutker/printwatch/internal/errors"
	"github.com/rs/zerolog"
)

// TimeFormat renders log timestamps as 2006-01-02T15:04:05.000+00:00.
const TimeFormat = "2006-01-02T15:04:05.000-07:00"

const defaultFilePerm = 0o644

var (
	log     = zerolog.Nop()
	logFile *os.File
	mu      sync.Mutex
)

func init() {
	zerolog.TimeFieldFormat = TimeFormat
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
}

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Options configures the global logger.
type Options struct {
	Level string
	// File is appended to; empty disables file output.
	File   string
	Stdout io.Writer
	Stderr io.Writer
}

// Init initializes the global logger. Entries go to the log file and are
// mirrored to Stdout, with error and fatal entries sent to Stderr instead.
func Init(opts Options) error {
	errFactory := errors.New()

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	writers := []io.Writer{splitWriter{
		out: newConsoleWriter(zerolog.SyncWriter(opts.Stdout)),
		err: newConsoleWriter(zerolog.SyncWriter(opts.Stderr)),
	}}

	mu.Lock()
	defer mu.Unlock()

	closeFile()
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFilePerm)
		if err != nil {
			return errFactory.Wrap(errors.ErrOpenLogFile, err)
		}
		logFile = f
		writers = append(writers, newConsoleWriter(zerolog.SyncWriter(f)))
	}

	log = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()

	return nil
}

// Close releases the log file, if any. The console writers stay usable.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	return closeFile()
}

func closeFile() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// New returns a Logger writing the console format to w. It does not touch
// the global logger.
func New(w io.Writer, level string) (Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	zl := zerolog.New(newConsoleWriter(zerolog.SyncWriter(w))).
		Level(lvl).
		With().Timestamp().Logger()

	return &instance{zl: &zl}, nil
}

// Get returns the global logger behind the Logger interface.
func Get() Logger {
	return &instance{}
}

// ParseLevel accepts debug, info, warn, warning and error. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, errors.New().WithData(errors.ErrInvalidLogLevel, level)
	}
}

// newConsoleWriter formats entries as "[<timestamp>] [<LEVEL>] <message>".
func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:     out,
		NoColor: true,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.MessageFieldName,
		},
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprintf("[%v]", i)
		},
		FormatLevel: func(i interface{}) string {
			if i == nil {
				return "[-]"
			}
			return "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
		},
	}
}

// splitWriter routes error and fatal entries to err and everything else to out.
type splitWriter struct {
	out io.Writer
	err io.Writer
}

func (w splitWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w splitWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.ErrorLevel && level < zerolog.NoLevel {
		return w.err.Write(p)
	}
	return w.out.Write(p)
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

type instance struct {
	zl *zerolog.Logger
}

func (l *instance) logger() *zerolog.Logger {
	if l.zl != nil {
		return l.zl
	}
	return &log
}

func (l *instance) Debug() *LogEvent { return &LogEvent{l.logger().Debug()} }
func (l *instance) Info() *LogEvent  { return &LogEvent{l.logger().Info()} }
func (l *instance) Warn() *LogEvent  { return &LogEvent{l.logger().Warn()} }
func (l *instance) Error() *LogEvent { return &LogEvent{l.logger().Error()} }

func (l *instance) ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(l.logger().Error(), err)
}

func withCode(e *zerolog.Event, err errors.Error) *LogEvent {
	return &LogEvent{e.
		Str("error_code", string(err.Code())).
		Err(err)}
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(log.Error(), err)
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.Fatal()}
}
