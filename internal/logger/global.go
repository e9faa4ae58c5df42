package logger

import (
	"io"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type (
	// GlobalConfig is the application wide logging configuration.
	GlobalConfig struct {
		DefaultLevel    LogLevel
		PackageLevels   map[string]LogLevel
		Writer          io.Writer
		ConsoleFormat   bool
		ShowCaller      bool
		TimeLocation    string
		ShowGoroutineID bool
	}

	globalFactory struct {
		sync.Mutex
		config               GlobalConfig
		loggers              map[string]*ContextLogger
		context              Context
		consoleTimeFormat    string
		callerSkipFrames     int // frames to skip to get the real caller, depends on the logger code
		packageNameResolver  *PackageNameResolver
		nonAlphaNumericRegex *regexp.Regexp
		initialized          bool
	}
)

const defaultTimeLocation = "Local"

// Singleton for managing application wide logging.
var globalFactoryImpl *globalFactory

func init() {
	globalFactoryImpl = &globalFactory{
		loggers:              make(map[string]*ContextLogger),
		context:              make(Context),
		consoleTimeFormat:    "15:04:05.000000",
		callerSkipFrames:     4,
		packageNameResolver:  &PackageNameResolver{BasePackage: "codypharm/Opensafari"},
		nonAlphaNumericRegex: regexp.MustCompile(`[^a-zA-Z0-9]`),
	}
}

func developerConfiguration() GlobalConfig {
	return GlobalConfig{
		DefaultLevel:  DEBUG,
		PackageLevels: map[string]LogLevel{},
		Writer:        os.Stdout,
		ConsoleFormat: true,
		ShowCaller:    true,
		TimeLocation:  defaultTimeLocation,
	}
}

// SetContext sets context for all loggers
func SetContext(key string, value interface{}) {
	gf := globalFactoryImpl
	gf.Lock()
	defer gf.Unlock()
	gf.context[key] = value
	gf.updateAllLoggers()
}

// ClearContext will clear a context key from all loggers
func ClearContext(key string) {
	gf := globalFactoryImpl
	gf.Lock()
	defer gf.Unlock()
	delete(gf.context, key)
	gf.updateAllLoggers()
}

// CreateForPackage creates logger named after the caller package.
func CreateForPackage() Logger {
	return Create(globalFactoryImpl.packageNameResolver.PackageName())
}

// Create creates custom named logger. Loggers with the same (normalized) name are shared.
func Create(name string) Logger {
	return globalFactoryImpl.create(name)
}

// UpdateGlobalConfig updates global config and all the loggers created so far.
func UpdateGlobalConfig(config GlobalConfig) {
	gf := globalFactoryImpl
	gf.Lock()
	defer gf.Unlock()
	gf.updateFromConfig(config)
}

// UpdateGlobalConfigFromFile reads the YAML file and updates global logger configuration accordingly.
// In case of an error, logger won't be updated.
func UpdateGlobalConfigFromFile(fileName string) error {
	conf, err := LoadGlobalConfig(fileName)
	if err != nil {
		return err
	}
	UpdateGlobalConfig(conf)
	return nil
}

// InitializeGlobalLogger applies the default configuration unless some configuration has been applied already.
func InitializeGlobalLogger() {
	gf := globalFactoryImpl
	gf.Lock()
	defer gf.Unlock()
	gf.initialize()
}

func (gf *globalFactory) initialize() {
	if !gf.initialized {
		gf.updateFromConfig(developerConfiguration())
	}
}

func (gf *globalFactory) updateFromConfig(config GlobalConfig) {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.PackageLevels == nil {
		config.PackageLevels = map[string]LogLevel{}
	}
	gf.config = config
	gf.initialized = true

	if config.TimeLocation != "" {
		gf.updateTimeLocation(config.TimeLocation)
	}
	gf.updateOutputFormat()
	gf.updateAllLoggers()
}

func (gf *globalFactory) updateTimeLocation(location string) {
	loc, err := time.LoadLocation(location)
	if err != nil {
		loc, _ = time.LoadLocation(defaultTimeLocation)
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().In(loc)
	}
}

func (gf *globalFactory) updateOutputFormat() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var l zerolog.Logger
	if gf.config.ConsoleFormat {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:          gf.config.Writer,
			TimeFormat:   gf.consoleTimeFormat,
			FormatCaller: consoleFormatCallerLastTwoDirs,
		}).With().Timestamp().Logger()
	} else {
		l = zerolog.New(gf.config.Writer).With().Timestamp().Logger()
	}
	if gf.config.ShowCaller {
		l = l.With().CallerWithSkipFrameCount(gf.callerSkipFrames).Logger()
	}
	log.Logger = l
}

func (gf *globalFactory) updateAllLoggers() {
	for name, l := range gf.loggers {
		l.update(gf.loggerLevel(name), gf.context, gf.config.ShowGoroutineID)
	}
}

func (gf *globalFactory) create(name string) Logger {
	gf.Lock()
	defer gf.Unlock()

	normName := gf.normalizeName(name)
	if l, ok := gf.loggers[normName]; ok {
		return l
	}
	// configuration specifies the log levels by logger name, by convention each
	// package creates one named after itself
	cl := newContextLogger(gf.loggerLevel(normName), gf.context, gf.config.ShowGoroutineID)
	gf.loggers[normName] = cl
	return cl
}

func (gf *globalFactory) normalizeName(name string) string {
	return gf.nonAlphaNumericRegex.ReplaceAllString(name, "_")
}

func (gf *globalFactory) loggerLevel(loggerName string) LogLevel {
	if level, ok := gf.config.PackageLevels[loggerName]; ok {
		return level
	}
	if !gf.initialized {
		return developerConfiguration().DefaultLevel
	}
	return gf.config.DefaultLevel
}
