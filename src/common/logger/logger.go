package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerEnv string

const (
	LoggerEnvDevelopment LoggerEnv = "development"
	LoggerEnvProduction  LoggerEnv = "production"
)

// Logger is the process wide sugared logger. It is never nil: until InitLogger
// is called it discards everything.
var Logger = zap.NewNop().Sugar()

var level = zap.NewAtomicLevel()

// InitLogger replaces the global logger with one built for the given environment.
func InitLogger(env LoggerEnv) {
	var cfg zap.Config
	switch env {
	case LoggerEnvProduction:
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	level.SetLevel(cfg.Level.Level())
	cfg.Level = level

	base, err := cfg.Build()
	if err != nil {
		return
	}
	Logger = base.Sugar()
}

// SetLevel changes the minimum level of the current logger. Unknown levels are ignored.
func SetLevel(name string) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		Logger.Warnf("action: set_log_level | result: fail | level: %s", name)
		return
	}
	level.SetLevel(lvl)
}

func GetLogger() *zap.SugaredLogger {
	return Logger
}

func Sync() {
	_ = Logger.Sync()
}
