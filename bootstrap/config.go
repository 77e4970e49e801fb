package bootstrap

import (
	"fmt"
	"os"

	"backend/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the zap logger with colored console output. The
// level can be raised or lowered later through the atomic level.
func InitLogger(level zap.AtomicLevel) (*zap.Logger, *zap.SugaredLogger, error) {
	// Create a colored console encoder config
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the application configuration.
func InitConfig(envFile string, sugar *zap.SugaredLogger) (*config.Config, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.PortDiscarded() {
		sugar.Warnw("Ignoring invalid PORT value",
			"value", cfg.RawPort,
			"port", cfg.Port)
	}

	if cfg.MongoURI == "" {
		sugar.Warn("MONGO_URI is not set, the database connection will fail")
	}

	sugar.Infow("Config loaded",
		"port", cfg.Port,
		"log_level", cfg.Log.Level,
		"metrics_enabled", cfg.Metrics.Enabled,
		"rate_limit_rps", cfg.RateLimit.RequestsPerSecond)

	return cfg, nil
}
