package portalapi

import (
	"context"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapOperationLogger forwards portal operation callbacks to zap.
type zapOperationLogger struct {
	logger *zap.Logger
}

func newOperationLogger(logger *zap.Logger) portal.OperationLogger {
	return &zapOperationLogger{logger: logger.Named("portal")}
}

func (operationLogger *zapOperationLogger) LogOperation(_ context.Context, entry portal.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.ActorID != "" {
		fields = append(fields, zap.String("actor_id", entry.ActorID))
	}
	if entry.OrderID != "" {
		fields = append(fields, zap.String("order_id", entry.OrderID))
	}
	if entry.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", entry.SubjectID))
	}
	if entry.Detail != "" {
		fields = append(fields, zap.String("detail", entry.Detail))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}
	operationLogger.logger.Log(levelFor(entry), "portal operation", fields...)
}

func levelFor(entry portal.OperationLog) zapcore.Level {
	switch entry.Status {
	case "ok":
		return zapcore.InfoLevel
	case "degraded", "skipped":
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
