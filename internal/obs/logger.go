package obs

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServicePrefix namespaces the "service" field of every Shortly binary.
const ServicePrefix = "shortly/"

type LogConfig struct {
	Level  string
	Pretty bool
	App    string
	Env    string
	Ver    string
}

func (c LogConfig) service() string {
	app := strings.TrimPrefix(c.App, ServicePrefix)
	if app == "" {
		app = "unknown"
	}
	return ServicePrefix + app
}

func NewLogger(c LogConfig) (*zap.Logger, error) {
	var cfg zap.Config
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	level := zapcore.InfoLevel
	if err := level.Set(c.Level); err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(zap.Fields(
		zap.String("service", c.service()),
		zap.String("env", orDefault(c.Env, "dev")),
		zap.String("version", orDefault(c.Ver, "dev")),
	))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
