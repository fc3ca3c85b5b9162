package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/crytic/slotguard/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is configured by the CLI. Each package should create
// its own sub-logger so that logs can be filtered by service.
var GlobalLogger = NewLogger(zerolog.Disabled)

// Logger describes a custom logging object that can log events to any arbitrary channel in structured, unstructured,
// or colorized unstructured format.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// context holds the key-value pairs attached by NewSubLogger, in insertion order.
	context []string

	// structuredLogger describes a logger that will output JSON-formatted logs to its writers.
	structuredLogger zerolog.Logger

	// structuredWriters describes the writers used by structuredLogger.
	structuredWriters []io.Writer

	// unstructuredLogger describes a logger that will output plain-text logs to its writers.
	unstructuredLogger zerolog.Logger

	// unstructuredWriters describes the writers used by unstructuredLogger.
	unstructuredWriters []io.Writer

	// unstructuredColorLogger describes a logger that will output colorized plain-text logs to its writers.
	unstructuredColorLogger zerolog.Logger

	// unstructuredColorWriters describes the writers used by unstructuredColorLogger.
	unstructuredColorWriters []io.Writer
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. No writers are attached by default.
func NewLogger(level zerolog.Level) *Logger {
	l := &Logger{level: level}
	l.rebuild()
	return l
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that parsing of logs is "grep-able" based on some key
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	sub := &Logger{
		level:                    l.level,
		context:                  append(append([]string{}, l.context...), key, value),
		structuredWriters:        l.structuredWriters,
		unstructuredWriters:      l.unstructuredWriters,
		unstructuredColorWriters: l.unstructuredColorWriters,
	}
	sub.rebuild()
	return sub
}

// rebuild recreates the underlying zerolog loggers from the current writer lists, level and context.
func (l *Logger) rebuild() {
	withContext := func(logger zerolog.Logger) zerolog.Logger {
		ctx := logger.With()
		for i := 0; i+1 < len(l.context); i += 2 {
			ctx = ctx.Str(l.context[i], l.context[i+1])
		}
		return ctx.Logger()
	}

	l.structuredLogger = zerolog.Nop()
	if len(l.structuredWriters) > 0 {
		l.structuredLogger = withContext(zerolog.New(zerolog.MultiLevelWriter(l.structuredWriters...)).Level(l.level).With().Timestamp().Logger())
	}

	l.unstructuredLogger = zerolog.Nop()
	if len(l.unstructuredWriters) > 0 {
		writers := make([]io.Writer, len(l.unstructuredWriters))
		for i, w := range l.unstructuredWriters {
			writers[i] = setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level)
		}
		l.unstructuredLogger = withContext(zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(l.level))
	}

	l.unstructuredColorLogger = zerolog.Nop()
	if len(l.unstructuredColorWriters) > 0 {
		writers := make([]io.Writer, len(l.unstructuredColorWriters))
		for i, w := range l.unstructuredColorWriters {
			writers[i] = setupDefaultFormatting(zerolog.ConsoleWriter{Out: w}, l.level)
		}
		l.unstructuredColorLogger = withContext(zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(l.level))
	}
}

// writerList returns a pointer to the writer list for the given format and coloring.
func (l *Logger) writerList(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &l.structuredWriters
	}
	if colored {
		return &l.unstructuredColorWriters
	}
	return &l.unstructuredWriters
}

// AddWriter will add a writer to the list of channels where log output will be sent. Structured writers are never
// colorized. Adding the same writer twice with the same settings is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	list := l.writerList(format, colored)
	for _, w := range *list {
		if w == writer {
			return
		}
	}
	*list = append(*list, writer)
	l.rebuild()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist, this
// function is a no-op
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	list := l.writerList(format, colored)
	for i, w := range *list {
		if w == writer {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			l.rebuild()
			return
		}
	}
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, args...)
}

// Error is a wrapper function that will log an error event
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// Panic is a wrapper function that will log a panic event and then panic
func (l *Logger) Panic(args ...any) {
	l.log(zerolog.PanicLevel, args...)
}

// log builds the messages for every writer set and sends one event per logger.
func (l *Logger) log(level zerolog.Level, args ...any) {
	coloredMsg, plainMsg, err, info := buildMsgs(args...)
	withStack := level == zerolog.PanicLevel || l.level <= zerolog.DebugLevel

	events := []*zerolog.Event{
		l.structuredLogger.WithLevel(level),
		l.unstructuredLogger.WithLevel(level),
		l.unstructuredColorLogger.WithLevel(level),
	}
	msgs := []string{plainMsg, plainMsg, coloredMsg}
	for i, event := range events {
		if event == nil {
			continue
		}
		if err != nil {
			event = event.Err(err)
			if withStack {
				event = event.Stack()
			}
		}
		if info != nil {
			event = event.Any("info", info)
		}
		event.Msg(msgs[i])
	}

	// WithLevel never panics on its own
	if level == zerolog.PanicLevel {
		panic(plainMsg)
	}
}

// buildMsgs describes a function that takes in a variadic list of arguments of any type and returns two strings and,
// optionally, an error and a StructuredLogInfo object. The first string will be a colorized-string that can be used for
// console logging while the second string will be a non-colorized one that can be used for file/structured logging.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	coloredOutput := make([]string, 0, len(args))
	plainOutput := make([]string, 0, len(args))
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// A color function switches the color context of the arguments that follow
			colorCtx = t
		case StructuredLogInfo:
			// Only one structured log info can be provided for each log message
			info = t
		case error:
			// Only one error can be provided for each log message
			err = t
		default:
			coloredOutput = append(coloredOutput, colorCtx(t))
			plainOutput = append(plainOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(coloredOutput, ""), strings.Join(plainOutput, ""), err, info
}

// setupDefaultFormatting will update the console writer's formatting to the slotguard standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i any) string {
		return ""
	}

	colorize := func(f colors.ColorFunc, s string) string {
		if writer.NoColor {
			return s
		}
		return f(s)
	}

	writer.FormatLevel = func(i any) string {
		levelStr, _ := i.(string)
		parsed, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}

		switch parsed {
		case zerolog.TraceLevel:
			return colorize(colors.CyanBold, zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colorize(colors.BlueBold, zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colorize(colors.GreenBold, colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colorize(colors.YellowBold, zerolog.LevelWarnValue)
		case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
			return colorize(colors.RedBold, levelStr)
		default:
			return levelStr
		}
	}

	// Above debug level the service name is noise on the console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}

	return writer
}
