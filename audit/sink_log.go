package audit

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes audit records to the structured application log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Write(_ context.Context, record AuditRecord) error {
	s.logger.Info("Agent transaction",
		zap.Time("timestamp", record.Timestamp),
		zap.String("transaction-id", record.TransactionID),
		zap.String("agent-id", record.AgentID),
		zap.String("agent-name", record.AgentName),
		zap.String("principal-id", record.PrincipalID),
		zap.String("action", record.Action),
		zap.String("method", record.Method),
		zap.String("delegation-scope", record.DelegationScope),
		zap.Bool("preserved-identity", record.PreservedIdentity))

	return nil
}
