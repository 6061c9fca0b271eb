// langsplit — splits multi-language JSON translation documents into one
// document per language.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/langsplit/langsplit/config"
	"github.com/langsplit/langsplit/i18n"
	"github.com/langsplit/langsplit/langmeta"
	"github.com/langsplit/langsplit/pipeline"
	"github.com/langsplit/langsplit/splitter"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "langsplit",
		Short: "Split multi-language JSON translations into per-language files",
		Long: `langsplit — per-language translation map splitter.

Reads JSON documents where each leaf maps language codes to translated
strings, and writes one document per (file × language) pair under
<output>/<lang>/<file>, preserving the input's structure and key order.

Configuration is read from .langsplit.yaml in the project root when
present; flags override the file.

Commands:
  status      Show input inventory and per-language coverage
  run         Split all input documents
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newStatusCmd(),
		newRunCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("langsplit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// status (read-only: input inventory + language coverage)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show input inventory and per-language coverage",
		Long: `Show the discovered input documents, their sizes, leaf counts, and
which configured languages each document actually contains. Does not
modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootDir)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runStatus(cfg)
		},
	}
}

func runStatus(cfg config.Config) error {
	set := splitter.NewLanguageSet(cfg.Languages)

	fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Input:      %s\n", cfg.InputDir)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", cfg.OutputDir)

	var labels []string
	for _, code := range set.Codes() {
		labels = append(labels, langmeta.Label(code))
	}
	fmt.Fprintf(os.Stderr, "  Languages:  %s\n", strings.Join(labels, ", "))
	fmt.Fprintln(os.Stderr)

	entries, err := os.ReadDir(cfg.InputDir)
	if err != nil {
		return &config.Error{Field: "input_dir", Reason: fmt.Sprintf("cannot read %s: %v", cfg.InputDir, err)}
	}

	fmt.Fprintf(os.Stderr, "%-24s %-10s %-8s %s\n", "File", "Size", "Leaves", "Languages")
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	found := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		found++

		path := filepath.Join(cfg.InputDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%-24s %s\n", entry.Name(), "unreadable")
			continue
		}
		doc, err := splitter.Parse(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%-24s %-10s %s\n", entry.Name(), humanSize(int64(len(data))), "parse error")
			continue
		}

		langs := splitter.Languages(doc, set)
		fmt.Fprintf(os.Stderr, "%-24s %-10s %-8d %s\n",
			entry.Name(), humanSize(int64(len(data))),
			splitter.CountLeaves(doc, set), strings.Join(langs, ", "))
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	if found == 0 {
		logWarning("%s", i18n.T("No JSON documents found."))
	} else {
		fmt.Fprintf(os.Stderr, "Total: %d %s\n", found, i18n.N("file", "files", found))
	}
	fmt.Fprintln(os.Stderr)

	return nil
}

// ---------------------------------------------------------------------------
// run (the split pipeline)
// ---------------------------------------------------------------------------

func newRunCmd() *cobra.Command {
	var (
		inputDir      string
		outputDir     string
		langs         string
		maxWorkers    int
		chunkSize     int
		sizeThreshold int64
		streaming     bool
		workers       bool
		enabled       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Split all input documents into per-language files",
		Long: `Split every JSON document in the input directory into one output
document per configured language, written to <output>/<lang>/<file>.

Large files are processed on a bounded worker pool; small files are
handled inline in chunks so the process stays responsive. A malformed
input fails on its own, the remaining files still complete.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootDir)
			if err != nil {
				return err
			}

			if inputDir != "" {
				cfg.InputDir = inputDir
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if langs != "" {
				cfg.Languages = splitLangs(langs)
			}
			if maxWorkers > 0 {
				cfg.MaxWorkers = maxWorkers
			}
			if chunkSize > 0 {
				cfg.ChunkSize = chunkSize
			}
			if sizeThreshold > 0 {
				cfg.SizeThreshold = sizeThreshold
			}
			if cmd.Flags().Changed("streaming") {
				cfg.UseStreaming = streaming
			}
			if cmd.Flags().Changed("workers") {
				cfg.UseWorkers = workers
			}
			cfg.Enabled = enabled

			return runSplit(cfg)
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Input directory with source JSON documents")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory root")
	cmd.Flags().StringVar(&langs, "lang", "", "Languages to extract (comma-separated)")
	cmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Worker pool size (0 = CPU count − 1, min 2)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Top-level entries per chunk")
	cmd.Flags().Int64Var(&sizeThreshold, "size-threshold", 0, "File size (bytes) routed to the worker pool")
	cmd.Flags().BoolVar(&streaming, "streaming", true, "Process documents in chunks with yield points")
	cmd.Flags().BoolVar(&workers, "workers", true, "Use the worker pool for large files")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "Set to false to make the run a no-op (for build-hook integration)")
	_ = cmd.Flags().MarkHidden("enabled")

	return cmd
}

func runSplit(cfg config.Config) error {
	runner, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	runner.OnLog = logInfo
	runner.OnWarn = logWarning

	// SIGINT stops intake; in-flight files run to completion or failure.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logInfo("%s", i18n.T("Splitting translations..."))

	rep, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if rep.Skipped {
		logInfo("%s", i18n.T("Splitting skipped (disabled)."))
		return nil
	}

	if failed := len(rep.Failures) + len(rep.WriteFailures); failed > 0 {
		logWarning("%d %s", failed, i18n.N("failure", "failures", failed))
	}
	logSuccess("%s %d %s, %d %s, %s",
		i18n.T("Done!"),
		rep.Processed, i18n.N("file", "files", rep.Processed),
		rep.Outputs, i18n.N("output", "outputs", rep.Outputs),
		rep.Elapsed.Round(time.Millisecond))

	return nil
}

// splitLangs parses a comma-separated language list, trimming blanks.
func splitLangs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// humanSize formats a byte count for the status table.
func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
