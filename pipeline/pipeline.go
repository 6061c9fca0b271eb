// Package pipeline orchestrates a full run: discover input documents,
// dispatch each file to the inline path or the worker pool, collect the
// per-language extraction results, and hand them to the batch writer.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/langsplit/langsplit/config"
	"github.com/langsplit/langsplit/pool"
	"github.com/langsplit/langsplit/splitter"
	"github.com/langsplit/langsplit/writer"
)

// State is the orchestrator's current phase.
type State string

const (
	StateIdle        State = "idle"
	StateDiscovering State = "discovering"
	StateDispatching State = "dispatching"
	StateCollecting  State = "collecting"
	StateWriting     State = "writing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// FileFailure records one input file that produced no outputs.
type FileFailure struct {
	Path string
	Err  error
}

// Report summarizes one pipeline run.
type Report struct {
	// Skipped is true when the runner was constructed disabled.
	Skipped bool
	// Files is the number of discovered input documents.
	Files int
	// Processed is the number of files that produced outputs.
	Processed int
	// Outputs is the number of output documents written.
	Outputs int
	// Dispatched is the number of files routed to the worker pool.
	Dispatched int64
	// Failures are per-file processing failures (parse, read, crash).
	Failures []FileFailure
	// WriteFailures are per-destination write failures.
	WriteFailures []writer.Failure
	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Runner drives the pipeline state machine. A Runner is built for one
// configuration and is not safe for concurrent Run calls.
type Runner struct {
	cfg   config.Config
	set   splitter.LanguageSet
	state State

	// OnLog and OnWarn receive human-readable progress events; either
	// may be nil.
	OnLog  func(format string, args ...any)
	OnWarn func(format string, args ...any)
}

// New validates cfg and returns a Runner in the Idle state.
func New(cfg config.Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = config.DefaultChunkSize
	}
	if cfg.SizeThreshold == 0 {
		cfg.SizeThreshold = config.DefaultSizeThreshold
	}
	return &Runner{
		cfg:   cfg,
		set:   splitter.NewLanguageSet(cfg.Languages),
		state: StateIdle,
	}, nil
}

// State returns the phase the last (or current) run reached.
func (r *Runner) State() State {
	return r.state
}

// Run executes the pipeline. The returned error is non-nil only for
// unrecoverable problems (an unreadable input directory); per-file and
// per-write failures are carried in the Report instead, so one bad file
// never takes down its siblings.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	var rep Report

	if !r.cfg.Enabled {
		rep.Skipped = true
		return rep, nil
	}

	start := time.Now()

	r.state = StateDiscovering
	files, err := r.discover()
	if err != nil {
		r.state = StateFailed
		return rep, err
	}
	rep.Files = len(files)

	if len(files) == 0 {
		r.warnf("no JSON documents found in %s", r.cfg.InputDir)
		r.state = StateDone
		rep.Elapsed = time.Since(start)
		return rep, nil
	}

	r.logf("processing %d file(s) into %d language(s)", len(files), r.set.Len())

	r.state = StateDispatching
	var p *pool.Pool
	var (
		poolResults   []splitter.Result
		poolFailures  []FileFailure
		poolProcessed int
		collectDone   chan struct{}
	)
	if r.cfg.UseWorkers {
		p = pool.New(pool.Options{
			Workers:   r.cfg.MaxWorkers,
			Languages: r.set,
			ChunkSize: r.cfg.ChunkSize,
			OutputDir: r.cfg.OutputDir,
		})
		p.Start(ctx)

		// Drain results while dispatch is still submitting. The pool's
		// task and result channels are bounded, so without a concurrent
		// collector a long run of pool-routed files would fill both and
		// block Submit forever.
		collectDone = make(chan struct{})
		go func() {
			defer close(collectDone)
			for res := range p.Results() {
				if res.Err != nil {
					poolFailures = append(poolFailures, FileFailure{Path: res.Path, Err: res.Err})
					continue
				}
				poolResults = append(poolResults, res.Outputs...)
				poolProcessed++
			}
		}()
	}

	var results []splitter.Result
	for _, name := range files {
		path := filepath.Join(r.cfg.InputDir, name)

		if p != nil && fileSize(path) >= r.cfg.SizeThreshold {
			p.Submit(path)
			continue
		}

		outs, err := r.processInline(ctx, path)
		if err != nil {
			r.warnf("%v", err)
			rep.Failures = append(rep.Failures, FileFailure{Path: path, Err: err})
			continue
		}
		results = append(results, outs...)
		rep.Processed++
	}

	r.state = StateCollecting
	if p != nil {
		p.Close()
		<-collectDone
		for _, f := range poolFailures {
			r.warnf("%v", f.Err)
		}
		rep.Failures = append(rep.Failures, poolFailures...)
		results = append(results, poolResults...)
		rep.Processed += poolProcessed
		rep.Dispatched = p.Dispatched()
	}

	r.state = StateWriting
	wrep := writer.WriteAll(results)
	rep.Outputs = wrep.Written
	rep.WriteFailures = wrep.Failures
	for _, f := range wrep.Failures {
		r.warnf("write failed: %s: %v", f.Dest, f.Err)
	}

	r.state = StateDone
	rep.Elapsed = time.Since(start)
	r.logf("wrote %d output(s) from %d file(s) in %s",
		rep.Outputs, rep.Processed, rep.Elapsed.Round(time.Millisecond))

	return rep, nil
}

// discover lists the input directory and keeps recognized documents.
// An unreadable directory is a configuration error: fatal, nothing has
// been processed yet.
func (r *Runner) discover() ([]string, error) {
	entries, err := os.ReadDir(r.cfg.InputDir)
	if err != nil {
		return nil, &config.Error{
			Field:  "input_dir",
			Reason: fmt.Sprintf("cannot read %s: %v", r.cfg.InputDir, err),
		}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, entry.Name())
	}
	return files, nil
}

// processInline handles one small file on the caller's goroutine,
// through the chunk scheduler so long documents still yield.
func (r *Runner) processInline(ctx context.Context, path string) ([]splitter.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := splitter.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	name := filepath.Base(path)
	outs := make([]splitter.Result, 0, r.set.Len())
	for _, lang := range r.set.Codes() {
		var out *splitter.Object
		if r.cfg.UseStreaming {
			out, err = splitter.ExtractChunked(ctx, doc, lang, r.set, r.cfg.ChunkSize)
			if err != nil {
				return nil, fmt.Errorf("extracting %s from %s: %w", lang, path, err)
			}
		} else {
			out = splitter.Extract(doc, lang, r.set)
		}
		outs = append(outs, splitter.Result{
			Source: path,
			Lang:   lang,
			Dest:   filepath.Join(r.cfg.OutputDir, lang, name),
			Doc:    out,
		})
	}
	return outs, nil
}

// fileSize returns the file's size, or 0 when it cannot be determined;
// an unreadable file then fails on the inline path with a proper error.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (r *Runner) logf(format string, args ...any) {
	if r.OnLog != nil {
		r.OnLog(format, args...)
	}
}

func (r *Runner) warnf(format string, args ...any) {
	if r.OnWarn != nil {
		r.OnWarn(format, args...)
	}
}
