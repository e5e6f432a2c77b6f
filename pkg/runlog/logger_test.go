package runlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shmemsssp/pkg/logger"
)

func init() {
	logger.Init("error")
}

func TestStdoutLogger(t *testing.T) {
	cfg := &Config{Enabled: true, Backend: "stdout"}

	l := NewStdoutLogger(cfg)
	defer l.Close()

	entry := NewEntry().
		Run("run-1", 4).
		Iteration(0, 2, "directed").
		Outcome(OutcomeConverged).
		Build()

	assert.NoError(t, l.Log(context.Background(), entry))
}

func TestStdoutLogger_Disabled(t *testing.T) {
	l := NewStdoutLogger(&Config{Enabled: false})
	defer l.Close()

	assert.NoError(t, l.Log(context.Background(), NewEntry().Build()))
}

func TestFileLogger(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "runlog.jsonl")

	cfg := &Config{
		Enabled:     true,
		Backend:     "file",
		FilePath:    logPath,
		BufferSize:  100,
		FlushPeriod: 100 * time.Millisecond,
	}

	l, err := NewFileLogger(cfg)
	require.NoError(t, err)

	entry := NewEntry().
		Run("run-1", 2).
		Iteration(0, 0, "directed").
		Outcome(OutcomeConverged).
		Build()

	require.NoError(t, l.Log(context.Background(), entry))

	time.Sleep(200 * time.Millisecond)

	require.NoError(t, l.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, string(data), "run-1")
}

func TestFileLogger_DefaultPath(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(origDir)

	cfg := &Config{Enabled: true, Backend: "file", FilePath: ""}

	l, err := NewFileLogger(cfg)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, "runlog.jsonl", cfg.FilePath)
}

func TestFileLogger_BufferFullFallsBackToSync(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &Config{
		Enabled:    true,
		Backend:    "file",
		FilePath:   filepath.Join(tmpDir, "runlog.jsonl"),
		BufferSize: 1,
	}

	l, err := NewFileLogger(cfg)
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 10; i++ {
		entry := NewEntry().Run("run-1", 1).Build()
		assert.NoError(t, l.Log(context.Background(), entry))
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil config", cfg: nil},
		{name: "disabled", cfg: &Config{Enabled: false}},
		{name: "stdout backend", cfg: &Config{Enabled: true, Backend: "stdout"}},
		{name: "unknown backend defaults to stdout", cfg: &Config{Enabled: true, Backend: "unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, l)
			assert.NoError(t, l.Close())
		})
	}
}

func TestNew_FileBackend(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &Config{
		Enabled:  true,
		Backend:  "file",
		FilePath: filepath.Join(tmpDir, "runlog.jsonl"),
	}

	l, err := New(cfg)
	require.NoError(t, err)
	require.IsType(t, &FileLogger{}, l)
	assert.NoError(t, l.Close())
}

func TestNoopLogger(t *testing.T) {
	l := &NoopLogger{}

	assert.NoError(t, l.Log(context.Background(), &Entry{}))
	assert.NoError(t, l.Close())
}

func TestGlobalLogger(t *testing.T) {
	original := Get()

	newLogger := &NoopLogger{}
	SetGlobal(newLogger)
	assert.Same(t, newLogger, Get())

	entry := NewEntry().Build()
	assert.NoError(t, Log(context.Background(), entry))

	SetGlobal(original)
}
