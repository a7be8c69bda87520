package allocation

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

// DecisionSink receives every record appended to a decision log.
type DecisionSink interface {
	Record(ctx context.Context, rec models.AllocationRecord) error
	Close() error
}

// Supported sink types.
const (
	SinkNone  = "none"
	SinkLog   = "log"
	SinkJSONL = "jsonl"
	SinkBoth  = "both"
)

// SinkConfig selects and tunes the decision sink.
type SinkConfig struct {
	Type       string
	Trace      bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewSink builds the sink described by cfg. Tracing disabled always yields a NopSink.
func NewSink(cfg SinkConfig, logger *zap.Logger) (DecisionSink, error) {
	if !cfg.Trace {
		return NopSink{}, nil
	}
	switch cfg.Type {
	case "", SinkNone:
		return NopSink{}, nil
	case SinkLog:
		return NewZapSink(logger), nil
	case SinkJSONL:
		return NewJSONLSink(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case SinkBoth:
		jsonl, err := NewJSONLSink(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		if err != nil {
			return nil, err
		}
		return MultiSink{NewZapSink(logger), jsonl}, nil
	default:
		return nil, fmt.Errorf("unknown decision sink %q", cfg.Type)
	}
}

// NopSink drops every record.
type NopSink struct{}

func (NopSink) Record(context.Context, models.AllocationRecord) error { return nil }

func (NopSink) Close() error { return nil }

// ZapSink writes each record as a debug log line.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps a logger; nil falls back to a no-op logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("decisions")}
}

func (s *ZapSink) Record(_ context.Context, rec models.AllocationRecord) error {
	s.logger.Debug("allocation decision",
		zap.Int("sequence", rec.Sequence),
		zap.String("semester_id", rec.SemesterID),
		zap.String("demand_id", rec.DemandID),
		zap.String("discipline_code", rec.DisciplineCode),
		zap.Int("priority", rec.Priority),
		zap.Bool("allocated", rec.Allocated),
		zap.String("room_id", rec.Room()),
		zap.String("phase", string(rec.Phase)),
		zap.Int("total_score", rec.Score.Total),
		zap.String("reason", rec.Reason),
	)
	return nil
}

func (s *ZapSink) Close() error {
	_ = s.logger.Sync()
	return nil
}

// JSONLSink appends records to a rotating JSON lines file.
type JSONLSink struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
	path   string
}

// NewJSONLSink creates the sink; rotation options are in megabytes and days.
func NewJSONLSink(path string, maxSizeMB, maxBackups, maxAgeDays int) (*JSONLSink, error) {
	if path == "" {
		return nil, errors.New("jsonl decision sink requires a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &JSONLSink{
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		},
		path: path,
	}, nil
}

func (s *JSONLSink) Record(_ context.Context, rec models.AllocationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.writer).Encode(rec)
}

// Path returns the active file name.
func (s *JSONLSink) Path() string {
	return s.path
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Close()
}

// ReadJSONL loads records from path and its rotated backups, oldest backup
// first and the active file last. Lines that do not decode are skipped.
func ReadJSONL(path string) ([]models.AllocationRecord, error) {
	files, err := jsonlFiles(path)
	if err != nil {
		return nil, err
	}
	var out []models.AllocationRecord
	for _, name := range files {
		file, err := os.Open(name)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			var rec models.AllocationRecord
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				continue
			}
			out = append(out, rec)
		}
		_ = file.Close()
	}
	return out, nil
}

// MultiSink fans records out to several sinks.
type MultiSink []DecisionSink

func (m MultiSink) Record(ctx context.Context, rec models.AllocationRecord) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// jsonlFiles lists lumberjack backups (<name>-<timestamp><ext>) followed by the
// active file. The timestamp layout sorts lexically in time order.
func jsonlFiles(path string) ([]string, error) {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)
	backups, err := filepath.Glob(filepath.Join(dir, prefix+"-*"+ext))
	if err != nil {
		return nil, err
	}
	sort.Strings(backups)
	if _, err := os.Stat(path); err == nil {
		backups = append(backups, path)
	}
	return backups, nil
}
