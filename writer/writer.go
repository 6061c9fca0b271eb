// Package writer persists extraction results to the output tree
// outputDir/<lang>/<fileName>. All writes of one wave are issued
// concurrently; the call returns only after every write has settled, and
// each failure is reported with its destination path so partial success
// stays distinguishable from total success.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/langsplit/langsplit/splitter"
)

// Failure records one write that did not complete.
type Failure struct {
	Dest string
	Err  error
}

// Report summarizes one WriteAll invocation.
type Report struct {
	Written  int
	Failures []Failure
}

// Err returns nil when every write succeeded, otherwise one error
// listing all failed destinations.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	dests := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		dests[i] = f.Dest
	}
	return fmt.Errorf("%d of %d writes failed: %s",
		len(r.Failures), r.Written+len(r.Failures), strings.Join(dests, ", "))
}

// WriteAll writes every result concurrently, creating destination
// directories as needed. A failed write never cancels its siblings; the
// Report carries the outcome of every write.
func WriteAll(results []splitter.Result) Report {
	var (
		g  errgroup.Group
		mu sync.Mutex
		r  Report
	)

	for _, res := range results {
		res := res
		g.Go(func() error {
			err := writeOne(res)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.Failures = append(r.Failures, Failure{Dest: res.Dest, Err: err})
			} else {
				r.Written++
			}
			return nil
		})
	}

	_ = g.Wait()

	// Deterministic order for reporting.
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].Dest < r.Failures[j].Dest })
	return r
}

func writeOne(res splitter.Result) error {
	data, err := res.Doc.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s output of %s: %w", res.Lang, res.Source, err)
	}
	if err := os.MkdirAll(filepath.Dir(res.Dest), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", res.Dest, err)
	}
	if err := os.WriteFile(res.Dest, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", res.Dest, err)
	}
	return nil
}
