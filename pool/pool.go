// Package pool implements the bounded worker pool that processes large
// input files off the caller's goroutine. Workers share nothing with the
// caller: a task enters as a file path on the task channel and leaves as
// one FileResult message carrying every per-language document for that
// file, or a structured failure.
package pool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/langsplit/langsplit/splitter"
)

// DefaultSizeThreshold is the input size (in bytes) at or above which a
// file is routed to the pool instead of being processed inline.
const DefaultSizeThreshold = 100 * 1024

// DefaultWorkers returns the default pool size: one worker per CPU minus
// one, never fewer than two.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 2 {
		n = 2
	}
	return n
}

// Options configures a Pool.
type Options struct {
	// Workers is the pool size; <= 0 selects DefaultWorkers().
	Workers int
	// Languages are the codes to extract from every file.
	Languages splitter.LanguageSet
	// ChunkSize is passed through to the chunk scheduler.
	ChunkSize int
	// OutputDir is the root of the output tree.
	OutputDir string
}

// FileResult is everything one worker produced for one file. Err is set
// when the file failed as a whole (unreadable, malformed, or a worker
// crash); Outputs and Err are mutually exclusive.
type FileResult struct {
	Path    string
	Outputs []splitter.Result
	Err     error
}

// Pool is a fixed-size set of workers fed from a FIFO task queue.
// Submissions beyond the queue capacity block until a worker frees up,
// which is the pipeline's backpressure mechanism.
type Pool struct {
	opts    Options
	tasks   chan string
	results chan FileResult
	wg      sync.WaitGroup

	dispatched atomic.Int64
}

// New creates a Pool. Start must be called before Submit.
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers()
	}
	return &Pool{
		opts:    opts,
		tasks:   make(chan string, opts.Workers),
		results: make(chan FileResult, opts.Workers),
	}
}

// Start launches the workers. The results channel is closed after Close
// has been called and every in-flight task has finished.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Submit queues one file for processing, blocking while the queue is
// full. A submitted task always produces exactly one FileResult.
func (p *Pool) Submit(path string) {
	p.dispatched.Add(1)
	p.tasks <- path
}

// Close signals that no more tasks will be submitted.
func (p *Pool) Close() {
	close(p.tasks)
}

// Results returns the channel of per-file results.
func (p *Pool) Results() <-chan FileResult {
	return p.results
}

// Dispatched returns how many tasks were submitted to the pool.
func (p *Pool) Dispatched() int64 {
	return p.dispatched.Load()
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for path := range p.tasks {
		p.results <- p.runFile(ctx, path)
	}
}

// runFile executes the whole per-file job: read, parse once, then
// extract every requested language from the same parsed snapshot. A
// panic anywhere inside is reported as a per-file failure so sibling
// workers keep running.
func (p *Pool) runFile(ctx context.Context, path string) (res FileResult) {
	res.Path = path
	defer func() {
		if r := recover(); r != nil {
			res.Outputs = nil
			res.Err = fmt.Errorf("worker crashed on %s: %v", path, r)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", path, err)
		return res
	}

	doc, err := splitter.Parse(data)
	if err != nil {
		res.Err = fmt.Errorf("parsing %s: %w", path, err)
		return res
	}

	name := filepath.Base(path)
	for _, lang := range p.opts.Languages.Codes() {
		out, err := splitter.ExtractChunked(ctx, doc, lang, p.opts.Languages, p.opts.ChunkSize)
		if err != nil {
			res.Outputs = nil
			res.Err = fmt.Errorf("extracting %s from %s: %w", lang, path, err)
			return res
		}
		res.Outputs = append(res.Outputs, splitter.Result{
			Source: path,
			Lang:   lang,
			Dest:   filepath.Join(p.opts.OutputDir, lang, name),
			Doc:    out,
		})
	}

	return res
}
