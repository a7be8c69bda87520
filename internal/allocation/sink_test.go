package allocation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSinkSelection(t *testing.T) {
	sink, err := NewSink(SinkConfig{Type: SinkLog, Trace: false}, nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, sink)

	sink, err = NewSink(SinkConfig{Type: SinkNone, Trace: true}, nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, sink)

	sink, err = NewSink(SinkConfig{Type: SinkLog, Trace: true}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &ZapSink{}, sink)

	sink, err = NewSink(SinkConfig{Type: SinkJSONL, Trace: true, Path: filepath.Join(t.TempDir(), "d.jsonl"), MaxSizeMB: 1}, nil)
	require.NoError(t, err)
	assert.IsType(t, &JSONLSink{}, sink)
	require.NoError(t, sink.Close())

	sink, err = NewSink(SinkConfig{Type: SinkBoth, Trace: true, Path: filepath.Join(t.TempDir(), "d.jsonl")}, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, MultiSink{}, sink)
	assert.Len(t, sink.(MultiSink), 2)
	require.NoError(t, sink.Close())

	_, err = NewSink(SinkConfig{Type: "kafka", Trace: true}, nil)
	assert.Error(t, err)

	_, err = NewSink(SinkConfig{Type: SinkJSONL, Trace: true}, nil)
	assert.Error(t, err)
}

func TestZapSinkWritesDebugLine(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core))

	require.NoError(t, sink.Record(context.Background(), allocatedRecord("MAT001", "A", 7)))
	entries := logs.FilterMessage("allocation decision").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "A", entries[0].ContextMap()["room_id"])
}

func TestJSONLSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions", "run.jsonl")
	sink, err := NewJSONLSink(path, 1, 2, 1)
	require.NoError(t, err)

	engine := NewEngine(Options{Sink: MultiSink{sink, NopSink{}}})
	result, err := engine.Run(context.Background(), testConfig(), busySemester())
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	stored, err := ReadJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, result.Records, stored)
}

func TestReadJSONLIncludesRotatedBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "decisions.jsonl")
	sink, err := NewJSONLSink(path, 1, 2, 1)
	require.NoError(t, err)

	first := allocatedRecord("MAT101", "room-a", 40)
	second := allocatedRecord("FIS201", "room-b", 35)
	require.NoError(t, sink.Record(context.Background(), first))
	require.NoError(t, sink.writer.Rotate())
	require.NoError(t, sink.Record(context.Background(), second))
	require.NoError(t, sink.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "decisions.jsonl.bak"), []byte("{}\n"), 0o644))

	stored, err := ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "MAT101", stored[0].DisciplineCode)
	assert.Equal(t, "FIS201", stored[1].DisciplineCode)
}
