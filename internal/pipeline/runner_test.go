package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerFullPipeline(t *testing.T) {
	e := testEnv(t, "mouse")
	e.BioMart = biomartStub()
	logDir := filepath.Join(e.OutputDir, "logs")

	r := NewRunner(e, Options{LogDir: logDir})
	require.NoError(t, r.Run(context.Background()))

	// Every collection table, matrix and the combined matrix exist.
	for _, c := range Collections {
		assert.FileExists(t, e.TablePath(c))
		assert.FileExists(t, e.MatrixPath(c))
	}
	assert.FileExists(t, e.CombinedMatrixPath())

	// One timestamped run directory with one log per executed stage.
	runs, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	logs, err := os.ReadDir(filepath.Join(logDir, runs[0].Name()))
	require.NoError(t, err)
	assert.Len(t, logs, len(Stages()))
}

func TestRunnerDryRunHasNoSideEffects(t *testing.T) {
	e := testEnv(t, "mouse")
	logDir := filepath.Join(e.OutputDir, "logs")

	r := NewRunner(e, Options{DryRun: true, LogDir: logDir})
	require.NoError(t, r.Run(context.Background()))

	assert.NoDirExists(t, logDir)
	for _, c := range Collections {
		assert.NoFileExists(t, e.TablePath(c))
	}
}

func TestRunnerStageRange(t *testing.T) {
	e := testEnv(t, "mouse")
	e.BioMart = biomartStub()

	r := NewRunner(e, Options{StartStep: 1, EndStep: 2, LogDir: filepath.Join(e.OutputDir, "logs")})
	require.NoError(t, r.Run(context.Background()))

	assert.FileExists(t, e.TablePath(Collections[0]))
	assert.NoFileExists(t, e.CombinedMatrixPath())
}

func TestRunnerInvalidRange(t *testing.T) {
	e := testEnv(t, "mouse")
	r := NewRunner(e, Options{StartStep: 4, EndStep: 2, LogDir: e.OutputDir})
	require.Error(t, r.Run(context.Background()))
}

func TestRunnerHaltsOnFirstFailure(t *testing.T) {
	e := testEnv(t, "mouse")
	e.SeedPath = filepath.Join(e.OutputDir, "absent.csv")

	r := NewRunner(e, Options{LogDir: filepath.Join(e.OutputDir, "logs")})
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (seed)")

	// Nothing downstream ran.
	for _, c := range Collections {
		assert.NoFileExists(t, e.TablePath(c))
	}
}

func TestRunnerKeepGoing(t *testing.T) {
	e := testEnv(t, "mouse")
	e.SeedPath = filepath.Join(e.OutputDir, "absent.csv")

	r := NewRunner(e, Options{KeepGoing: true, LogDir: filepath.Join(e.OutputDir, "logs")})
	err := r.Run(context.Background())
	// The first failure is still reported after the sequence finishes.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (seed)")
}

func TestRunnerSkipsWhenOutputsExist(t *testing.T) {
	e := testEnv(t, "mouse")
	e.BioMart = biomartStub()
	logDir := filepath.Join(e.OutputDir, "logs")

	require.NoError(t, NewRunner(e, Options{StartStep: 1, EndStep: 1, LogDir: logDir}).Run(context.Background()))

	seedFile := seedListPath(e, Collections[0])
	info, err := os.Stat(seedFile)
	require.NoError(t, err)

	// Second run without force leaves the outputs untouched.
	require.NoError(t, NewRunner(e, Options{StartStep: 1, EndStep: 1, LogDir: logDir}).Run(context.Background()))
	again, err := os.Stat(seedFile)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestStageByName(t *testing.T) {
	s, ok := StageByName("export")
	require.True(t, ok)
	assert.Equal(t, 6, s.Num)

	_, ok = StageByName("nope")
	assert.False(t, ok)
}
