package allocation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

// DecisionLog is the append-only record list of one run.
type DecisionLog struct {
	mu      sync.RWMutex
	records []models.AllocationRecord
	sink    DecisionSink
	logger  *zap.Logger
}

// NewDecisionLog creates an empty log mirrored to sink.
func NewDecisionLog(sink DecisionSink, logger *zap.Logger) *DecisionLog {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionLog{sink: sink, logger: logger}
}

// Append assigns the next sequence number, stores the record and mirrors it.
// A failing sink never loses the in-memory record.
func (l *DecisionLog) Append(ctx context.Context, rec models.AllocationRecord) models.AllocationRecord {
	l.mu.Lock()
	rec.Sequence = len(l.records) + 1
	l.records = append(l.records, rec)
	l.mu.Unlock()

	if err := l.sink.Record(ctx, rec); err != nil {
		l.logger.Warn("decision sink rejected record",
			zap.String("demand_id", rec.DemandID),
			zap.Int("sequence", rec.Sequence),
			zap.Error(err),
		)
	}
	return rec
}

// Records returns a copy of the log in append order.
func (l *DecisionLog) Records() []models.AllocationRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.AllocationRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *DecisionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Report aggregates the log, optionally restricted to one discipline.
func (l *DecisionLog) Report(disciplineCode string) models.DecisionReport {
	return BuildReport(l.Records(), disciplineCode)
}
