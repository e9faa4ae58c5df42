package logger

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type (
	ContextLogger struct {
		zeroLogger      *zerolog.Logger
		level           LogLevel
		context         Context
		showGoroutineID bool
	}

	Context map[string]interface{}
)

// newContextLogger creates the logger, but doesn't initialize it yet.
// Loggers are created in var phase, global log configuration is applied later.
func newContextLogger(level LogLevel, context Context, showGoroutineID bool) *ContextLogger {
	return &ContextLogger{
		level:           level,
		context:         context,
		showGoroutineID: showGoroutineID,
	}
}

// init must be called with the global factory lock held.
func (c *ContextLogger) init() {
	globalFactoryImpl.initialize()
	if c.zeroLogger == nil {
		c.update(c.level, c.context, c.showGoroutineID)
	}
}

func (c *ContextLogger) update(level LogLevel, context Context, showGoroutineID bool) {
	c.level = level
	c.context = context
	c.showGoroutineID = showGoroutineID

	zl := log.Level(toZeroLevel(level))
	for key, value := range context {
		zl = zl.With().Interface(key, value).Logger()
	}
	if showGoroutineID {
		zl = zl.Hook(goRoutineIDHook{})
	}
	c.zeroLogger = &zl
}

func (c *ContextLogger) Trace(format string, args ...interface{}) {
	c.logMessage(c.zero().Trace(), format, args)
}

func (c *ContextLogger) Debug(format string, args ...interface{}) {
	c.logMessage(c.zero().Debug(), format, args)
}

func (c *ContextLogger) Info(format string, args ...interface{}) {
	c.logMessage(c.zero().Info(), format, args)
}

func (c *ContextLogger) Warning(format string, args ...interface{}) {
	c.logMessage(c.zero().Warn(), format, args)
}

func (c *ContextLogger) Error(format string, args ...interface{}) {
	c.logMessage(c.zero().Error(), format, args)
}

func (c *ContextLogger) zero() *zerolog.Logger {
	globalFactoryImpl.Lock()
	defer globalFactoryImpl.Unlock()
	if c.zeroLogger == nil {
		c.init()
	}
	return c.zeroLogger
}

func (c *ContextLogger) logMessage(event *zerolog.Event, format string, args []interface{}) {
	if len(args) == 0 {
		event.Msg(format)
	} else {
		event.Msgf(format, args...)
	}
}

// ChangeLevel changes the level of the context logger.
func (c *ContextLogger) ChangeLevel(newLevel LogLevel) {
	zl := c.zero().Level(toZeroLevel(newLevel))
	globalFactoryImpl.Lock()
	defer globalFactoryImpl.Unlock()
	c.level = newLevel
	c.zeroLogger = &zl
}

func (c *ContextLogger) GetLevel() LogLevel {
	return fromZeroLevel(c.zero().GetLevel())
}

// A hook that adds goroutine ID to the log event
type goRoutineIDHook struct{}

func (h goRoutineIDHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Uint64("GoID", goroutineID())
}

func toZeroLevel(lvl LogLevel) zerolog.Level {
	switch lvl {
	case NONE:
		return zerolog.Disabled
	case TRACE:
		return zerolog.TraceLevel
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARNING:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		panic(fmt.Sprintf("unknown level: %d", lvl))
	}
}

func fromZeroLevel(l zerolog.Level) LogLevel {
	switch l {
	case zerolog.Disabled:
		return NONE
	case zerolog.TraceLevel:
		return TRACE
	case zerolog.DebugLevel:
		return DEBUG
	case zerolog.InfoLevel:
		return INFO
	case zerolog.WarnLevel:
		return WARNING
	case zerolog.ErrorLevel:
		return ERROR
	default:
		panic(fmt.Sprintf("unknown level: %v", l))
	}
}
