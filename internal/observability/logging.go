package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/ebingo-service/internal/config"
)

// NewLogger builds the process logger. Every entry carries the service name,
// environment, version and the binary's component ("api" or "terminal") so
// lines from the door terminals and the API can be told apart in one stream.
func NewLogger(cfg config.LoggerConfig, app config.AppConfig, component string, opts ...zap.Option) (*zap.Logger, error) {
	logger, err := loggerConfig(cfg, app).Build(opts...)
	if err != nil {
		return nil, err
	}
	return logger.With(
		zap.String("service", app.Name),
		zap.String("env", app.Env),
		zap.String("version", app.Version),
		zap.String("component", component),
	), nil
}

func loggerConfig(cfg config.LoggerConfig, app config.AppConfig) zap.Config {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	production := strings.EqualFold(app.Env, "production")
	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: !production,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:   "message",
			LevelKey:     "level",
			TimeKey:      "ts",
			CallerKey:    "caller",
			EncodeLevel:  zapcore.LowercaseLevelEncoder,
			EncodeTime:   zapcore.ISO8601TimeEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if production {
		// a closed branch polled by every terminal repeats the same lines
		zapCfg.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
		zapCfg.DisableStacktrace = true
	}
	return zapCfg
}
