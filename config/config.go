// Package config — langsplit configuration.
//
// Settings come from three layers, later layers winning: built-in
// defaults, a .langsplit.yaml file discovered in the project root, and
// command-line flags applied by the caller. The file is optional; a
// project with the default layout needs no configuration at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file discovered in the project root.
const FileName = ".langsplit.yaml"

// Defaults for the processing knobs.
const (
	DefaultInputDir      = "translations"
	DefaultOutputDir     = "locales"
	DefaultChunkSize     = 1000
	DefaultSizeThreshold = 100 * 1024
)

// DefaultLanguages are the baseline language codes used when the config
// names none.
var DefaultLanguages = []string{"vi", "en"}

// Config holds the full configuration surface of a run.
type Config struct {
	// Languages is the ordered list of language codes to extract.
	Languages []string `yaml:"languages,omitempty"`
	// InputDir is the directory holding the source JSON documents.
	InputDir string `yaml:"input_dir,omitempty"`
	// OutputDir is the root of the per-language output tree.
	OutputDir string `yaml:"output_dir,omitempty"`
	// MaxWorkers bounds the worker pool (0 = CPU count − 1, floor 2).
	MaxWorkers int `yaml:"max_workers,omitempty"`
	// ChunkSize bounds top-level entries per synchronous stretch.
	ChunkSize int `yaml:"chunk_size,omitempty"`
	// SizeThreshold is the file size (bytes) at which processing moves
	// from the inline path to the worker pool.
	SizeThreshold int64 `yaml:"size_threshold,omitempty"`
	// UseStreaming enables chunked extraction with yield points.
	UseStreaming bool `yaml:"use_streaming"`
	// UseWorkers enables the worker pool for large files.
	UseWorkers bool `yaml:"use_workers"`

	// Enabled is decided by the invoking integration (CLI, build hook)
	// and passed in explicitly; the pipeline never inspects ambient
	// process state. A disabled run produces no output.
	Enabled bool `yaml:"-"`
}

// Error is a configuration error. Configuration errors are fatal and
// abort before any processing starts.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Languages:     append([]string(nil), DefaultLanguages...),
		InputDir:      DefaultInputDir,
		OutputDir:     DefaultOutputDir,
		ChunkSize:     DefaultChunkSize,
		SizeThreshold: DefaultSizeThreshold,
		UseStreaming:  true,
		UseWorkers:    true,
		Enabled:       true,
	}
}

// Load returns the configuration for a project root: defaults overlaid
// with .langsplit.yaml when the file exists. Relative directories are
// resolved against root.
func Load(root string) (Config, error) {
	cfg := Default()

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.resolvePaths(root)
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.resolvePaths(root)
	return cfg, nil
}

func (c *Config) resolvePaths(root string) {
	if root == "" || root == "." {
		return
	}
	if !filepath.IsAbs(c.InputDir) {
		c.InputDir = filepath.Join(root, c.InputDir)
	}
	if !filepath.IsAbs(c.OutputDir) {
		c.OutputDir = filepath.Join(root, c.OutputDir)
	}
}

// Validate checks the configuration, returning an *Error describing the
// first problem found.
func (c *Config) Validate() error {
	if len(c.Languages) == 0 {
		return &Error{Field: "languages", Reason: "at least one language code is required"}
	}
	if c.InputDir == "" {
		return &Error{Field: "input_dir", Reason: "input directory is required"}
	}
	if c.OutputDir == "" {
		return &Error{Field: "output_dir", Reason: "output directory is required"}
	}
	if c.MaxWorkers < 0 {
		return &Error{Field: "max_workers", Reason: "must not be negative"}
	}
	if c.ChunkSize < 0 {
		return &Error{Field: "chunk_size", Reason: "must not be negative"}
	}
	if c.SizeThreshold < 0 {
		return &Error{Field: "size_threshold", Reason: "must not be negative"}
	}

	seen := make(map[string]string, len(c.Languages))
	for _, code := range c.Languages {
		if code == "" {
			return &Error{Field: "languages", Reason: "empty language code"}
		}
		key := canonicalTag(code)
		if prev, dup := seen[key]; dup {
			return &Error{
				Field:  "languages",
				Reason: fmt.Sprintf("%q and %q name the same language", prev, code),
			}
		}
		seen[key] = code
	}

	return nil
}

// canonicalTag folds case and separator variants ("en_US", "en-us") into
// one BCP 47 form for duplicate detection. Codes the tag parser does not
// recognize are compared verbatim: the splitter treats language codes as
// opaque strings, so an unusual code is not an error.
func canonicalTag(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return code
	}
	return tag.String()
}
