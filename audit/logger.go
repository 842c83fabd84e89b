package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultSinkTimeout = 5 * time.Second

// Sink persists audit records. Each sink fails independently.
type Sink interface {
	Name() string
	Write(ctx context.Context, record AuditRecord) error
}

// Logger fans audit records out to the configured sinks. Record never
// blocks on a sink and never reports sink failures to the caller; they are
// logged instead. Writes are detached from the request context so a client
// disconnect does not abort them.
type Logger struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewLogger(sinks []Sink, timeout time.Duration, logger *zap.Logger) *Logger {
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}

	return &Logger{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger,
	}
}

func (l *Logger) SinkNames() []string {
	names := make([]string, 0, len(l.sinks))
	for _, sink := range l.sinks {
		names = append(names, sink.Name())
	}

	return names
}

func (l *Logger) Record(ctx context.Context, record AuditRecord) {
	detached := context.WithoutCancel(ctx)

	for _, sink := range l.sinks {
		l.wg.Add(1)

		go l.write(detached, sink, record)
	}
}

func (l *Logger) write(ctx context.Context, sink Sink, record AuditRecord) {
	defer l.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Audit sink panicked",
				zap.String("sink", sink.Name()),
				zap.String("transaction-id", record.TransactionID),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := sink.Write(ctx, record); err != nil {
		l.logger.Error("Audit sink write failed",
			zap.String("sink", sink.Name()),
			zap.String("transaction-id", record.TransactionID),
			zap.String("agent-id", record.AgentID),
			zap.Error(err))
	}
}

// Close waits for in-flight sink writes, or for ctx to end.
func (l *Logger) Close(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit writes still in flight: %w", ctx.Err())
	}
}
