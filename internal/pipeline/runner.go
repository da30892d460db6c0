package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls which stages the runner executes and how.
type Options struct {
	StartStep int    // first stage number to run (1-based; 0 means first)
	EndStep   int    // last stage number to run (0 means last)
	DryRun    bool   // print the plan, execute nothing
	Force     bool   // run stages even when their outputs already exist
	KeepGoing bool   // continue past a failed stage
	LogDir    string // where the timestamped run directory is created
}

// Runner sequences the numbered stages against one environment.
type Runner struct {
	env  *Env
	opts Options
}

// NewRunner creates a runner.
func NewRunner(env *Env, opts Options) *Runner {
	return &Runner{env: env, opts: opts}
}

// Run executes the selected stage range in order, halting on the first
// failing stage unless keep-going is set. Each stage's log is teed to a
// per-step file under a timestamped run directory.
func (r *Runner) Run(ctx context.Context) error {
	stages := Stages()
	start, end := r.opts.StartStep, r.opts.EndStep
	if start == 0 {
		start = stages[0].Num
	}
	if end == 0 {
		end = stages[len(stages)-1].Num
	}
	if start > end {
		return fmt.Errorf("start step %d is after end step %d", start, end)
	}

	if r.opts.DryRun {
		for _, s := range stages {
			if s.Num < start || s.Num > end {
				continue
			}
			fmt.Fprintf(os.Stderr, "would run step %d: %s\n", s.Num, s.Name)
		}
		return nil
	}

	runDir, err := r.makeRunDir()
	if err != nil {
		return err
	}

	var firstErr error
	for _, s := range stages {
		if s.Num < start || s.Num > end {
			continue
		}

		logger, closeLog, err := r.stageLogger(runDir, s)
		if err != nil {
			return err
		}

		if !r.opts.Force && outputsExist(s.Outputs(r.env)) {
			logger.Info("outputs exist, skipping stage (use force to rebuild)",
				zap.Int("step", s.Num), zap.String("stage", s.Name))
			closeLog()
			continue
		}

		env := *r.env
		env.Logger = logger

		began := time.Now()
		sum, err := s.Run(ctx, &env)
		logger.Info("stage finished",
			zap.Int("step", s.Num),
			zap.String("stage", s.Name),
			zap.Int("fetched", sum.Fetched),
			zap.Int("retained", sum.Retained),
			zap.Int("flagged", sum.Flagged),
			zap.Duration("elapsed", time.Since(began)),
			zap.Error(err))
		closeLog()

		if err != nil {
			err = fmt.Errorf("step %d (%s): %w", s.Num, s.Name, err)
			if !r.opts.KeepGoing {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// makeRunDir creates logdir/run-YYYYMMDD-HHMMSS.
func (r *Runner) makeRunDir() (string, error) {
	dir := filepath.Join(r.opts.LogDir, "run-"+time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	return dir, nil
}

// stageLogger builds a logger teeing stderr and the stage's log file.
func (r *Runner) stageLogger(runDir string, s Stage) (*zap.Logger, func(), error) {
	path := filepath.Join(runDir, fmt.Sprintf("%02d-%s.log", s.Num, s.Name))
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create stage log: %w", err)
	}

	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), zapcore.InfoLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(f), zapcore.DebugLevel),
	)
	logger := zap.New(core)
	return logger, func() {
		logger.Sync()
		f.Close()
	}, nil
}

func outputsExist(paths []string) bool {
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}
