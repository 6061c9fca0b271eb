package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/langsplit/langsplit/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.InputDir = filepath.Join(root, "in")
	cfg.OutputDir = filepath.Join(root, "out")
	if err := os.MkdirAll(cfg.InputDir, 0755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return cfg
}

func writeInput(t *testing.T, cfg config.Config, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(cfg.InputDir, name), []byte(content), 0644); err != nil {
		t.Fatalf("setup %s: %v", name, err)
	}
}

func mustRun(t *testing.T, cfg config.Config) (Report, *Runner) {
	t.Helper()
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return rep, r
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	writeInput(t, cfg, "home.json", `{"title": {"vi": "Trang chủ", "en": "Home"}}`)
	writeInput(t, cfg, "menu.json", `{"nav": {"open": {"vi": "Mở", "en": "Open"}}}`)
	writeInput(t, cfg, "notes.txt", `not a document`)

	rep, r := mustRun(t, cfg)

	if r.State() != StateDone {
		t.Fatalf("state = %s, want done", r.State())
	}
	if rep.Files != 2 || rep.Processed != 2 {
		t.Fatalf("files=%d processed=%d, want 2/2", rep.Files, rep.Processed)
	}
	if rep.Outputs != 4 {
		t.Fatalf("outputs = %d, want 4", rep.Outputs)
	}

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "en", "menu.json"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	want := "{\n  \"nav\": {\n    \"open\": \"Open\"\n  }\n}\n"
	if string(data) != want {
		t.Fatalf("en menu output = %q, want %q", data, want)
	}
}

func TestRun_SmallFilesNeverHitThePool(t *testing.T) {
	cfg := testConfig(t)
	for i := 0; i < 5; i++ {
		writeInput(t, cfg, fmt.Sprintf("f%d.json", i), `{"k": {"vi": "a", "en": "b"}}`)
	}

	rep, _ := mustRun(t, cfg)
	if rep.Dispatched != 0 {
		t.Fatalf("Dispatched = %d, want 0 for sub-threshold files", rep.Dispatched)
	}
	if rep.Outputs != 10 {
		t.Fatalf("outputs = %d, want 10", rep.Outputs)
	}
}

func TestRun_LargeFilesRouteToPool(t *testing.T) {
	cfg := testConfig(t)
	cfg.SizeThreshold = 64 // force the pool path

	var b strings.Builder
	b.WriteByte('{')
	for i := 0; i < 50; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `"key%02d": {"vi": "v%d", "en": "e%d"}`, i, i, i)
	}
	b.WriteByte('}')
	writeInput(t, cfg, "big.json", b.String())
	writeInput(t, cfg, "tiny.json", `{}`)

	rep, _ := mustRun(t, cfg)
	if rep.Dispatched != 1 {
		t.Fatalf("Dispatched = %d, want 1", rep.Dispatched)
	}
	if rep.Processed != 2 || rep.Outputs != 4 {
		t.Fatalf("processed=%d outputs=%d, want 2/4", rep.Processed, rep.Outputs)
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "vi", "big.json")); err != nil {
		t.Fatalf("pooled output missing: %v", err)
	}
}

func TestRun_PoolBacklogDrainsWithoutStalling(t *testing.T) {
	// Far more pool-routed files than the pool's bounded task and
	// result channels can hold at once: submissions past the limit
	// must wait for a free worker and then complete, not wedge the
	// dispatch loop.
	cfg := testConfig(t)
	cfg.SizeThreshold = 1
	cfg.MaxWorkers = 2

	const n = 12
	for i := 0; i < n; i++ {
		writeInput(t, cfg, fmt.Sprintf("f%02d.json", i),
			fmt.Sprintf(`{"k%d": {"vi": "v%d", "en": "e%d"}}`, i, i, i))
	}

	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	type outcome struct {
		rep Report
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rep, err := r.Run(context.Background())
		done <- outcome{rep, err}
	}()

	var got outcome
	select {
	case got = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("run stalled with a pool backlog")
	}

	if got.err != nil {
		t.Fatalf("Run error: %v", got.err)
	}
	if r.State() != StateDone {
		t.Fatalf("state = %s, want done", r.State())
	}
	if got.rep.Dispatched != n {
		t.Fatalf("Dispatched = %d, want %d", got.rep.Dispatched, n)
	}
	if got.rep.Processed != n || got.rep.Outputs != 2*n {
		t.Fatalf("processed=%d outputs=%d, want %d/%d", got.rep.Processed, got.rep.Outputs, n, 2*n)
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("f%02d.json", i)
		for _, lang := range []string{"vi", "en"} {
			if _, err := os.Stat(filepath.Join(cfg.OutputDir, lang, name)); err != nil {
				t.Fatalf("missing output %s/%s: %v", lang, name, err)
			}
		}
	}
}

func TestRun_MalformedFileIsIsolated(t *testing.T) {
	cfg := testConfig(t)
	writeInput(t, cfg, "good1.json", `{"a": {"vi": "1", "en": "2"}}`)
	writeInput(t, cfg, "broken.json", `{"a": {"vi":`)
	writeInput(t, cfg, "good2.json", `{"b": {"vi": "3", "en": "4"}}`)

	rep, r := mustRun(t, cfg)

	if r.State() != StateDone {
		t.Fatalf("state = %s, want done", r.State())
	}
	if len(rep.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(rep.Failures))
	}
	if !strings.Contains(rep.Failures[0].Path, "broken.json") {
		t.Fatalf("failure path = %s", rep.Failures[0].Path)
	}
	if rep.Processed != 2 || rep.Outputs != 4 {
		t.Fatalf("processed=%d outputs=%d, want 2/4", rep.Processed, rep.Outputs)
	}
}

func TestRun_MissingInputDirIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.InputDir = filepath.Join(cfg.InputDir, "does-not-exist")

	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	_, err = r.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for missing input directory")
	}
	var cerr *config.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error type = %T, want *config.Error", err)
	}
	if r.State() != StateFailed {
		t.Fatalf("state = %s, want failed", r.State())
	}
}

func TestRun_EmptyInputDirIsWarningNotFailure(t *testing.T) {
	cfg := testConfig(t)

	warned := false
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	r.OnWarn = func(format string, args ...any) { warned = true }

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !warned {
		t.Fatal("expected warning for empty input directory")
	}
	if r.State() != StateDone || rep.Outputs != 0 {
		t.Fatalf("state=%s outputs=%d", r.State(), rep.Outputs)
	}
}

func TestRun_DisabledRunnerSkips(t *testing.T) {
	cfg := testConfig(t)
	cfg.Enabled = false
	writeInput(t, cfg, "home.json", `{"a": {"vi": "X"}}`)

	rep, r := mustRun(t, cfg)
	if !rep.Skipped {
		t.Fatal("expected skipped report")
	}
	if r.State() != StateIdle {
		t.Fatalf("state = %s, want idle", r.State())
	}
	if _, err := os.Stat(cfg.OutputDir); !os.IsNotExist(err) {
		t.Fatal("disabled run must not create outputs")
	}
}

func TestRun_WithoutWorkersOrStreaming(t *testing.T) {
	cfg := testConfig(t)
	cfg.UseWorkers = false
	cfg.UseStreaming = false
	writeInput(t, cfg, "home.json", `{"a": {"vi": "X", "en": "Y"}}`)

	rep, _ := mustRun(t, cfg)
	if rep.Outputs != 2 || rep.Dispatched != 0 {
		t.Fatalf("outputs=%d dispatched=%d", rep.Outputs, rep.Dispatched)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Languages = nil
	if _, err := New(cfg); err == nil {
		t.Fatal("expected validation error")
	}
}
