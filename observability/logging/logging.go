package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/deicod/ermquery/orm/runtime"
)

// New builds the process logger. Verbose loggers use zap's development config; otherwise
// everything is discarded.
func New(service string, verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named(service), nil
}

// QueryLogger emits one debug entry per query, or a warn entry when the query failed.
func QueryLogger(logger *zap.Logger) runtime.QueryLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return runtime.QueryLoggerFunc(func(_ context.Context, entry runtime.QueryLog) {
		level := zapcore.DebugLevel
		if entry.Err != nil {
			level = zapcore.WarnLevel
		}
		ce := logger.Check(level, "query")
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.String("operation", string(entry.Operation)),
			zap.String("table", entry.Table),
			zap.String("sql", entry.SQL),
			zap.Int("arg_count", len(entry.Args)),
			zap.Duration("duration", entry.Duration),
		}
		if entry.CorrelationID != "" {
			fields = append(fields, zap.String("correlation_id", entry.CorrelationID))
		}
		for _, attr := range entry.Attributes {
			fields = append(fields, zap.Any(attr.Key, attr.Value))
		}
		if entry.Err != nil {
			fields = append(fields, zap.Error(entry.Err))
		}
		ce.Write(fields...)
	})
}

// SkipReporter logs every criterion a fail-open composition dropped.
func SkipReporter(logger *zap.Logger) runtime.SkipReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return runtime.SkipReporterFunc(func(ctx context.Context, query string, skipped []runtime.SkippedCriterion) {
		correlation := runtime.ContextCorrelation(ctx)
		for _, s := range skipped {
			fields := []zap.Field{
				zap.String("query", query),
				zap.String("criterion", s.Name),
				zap.Error(s.Err),
			}
			if correlation != "" {
				fields = append(fields, zap.String("correlation_id", correlation))
			}
			logger.Warn("criterion skipped", fields...)
		}
	})
}
