package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rpgo/trust-solvency/internal/domain"
)

// Formatter defines a pluggable output formatter that returns a byte slice.
// Implementations should be pure (no side effects besides deterministic formatting).
type Formatter interface {
	Format(result *domain.SimulationResult) ([]byte, error)
	// Name returns a short identifier for logging / debugging.
	Name() string
}

// FormatterFunc adapter to allow ordinary functions to act as a Formatter.
type FormatterFunc struct {
	ID string
	F  func(*domain.SimulationResult) ([]byte, error)
}

func (ff FormatterFunc) Format(r *domain.SimulationResult) ([]byte, error) { return ff.F(r) }
func (ff FormatterFunc) Name() string                                      { return ff.ID }

// WriteFormatted runs a formatter and writes the output to dir as <name>_<timestamp>.<ext>.
// The timestamp is the run's creation time so reruns of a fixed-clock run overwrite.
func WriteFormatted(f Formatter, result *domain.SimulationResult, dir, ext string) (string, error) {
	data, err := f.Format(result)
	if err != nil {
		return "", err
	}
	base := fileSlug(result.Name)
	if _, ok := f.(PopulationCSVExporter); ok {
		base += "_population"
	}
	filename := fmt.Sprintf("%s_%s.%s", base, result.CreatedAt.UTC().Format("20060102_150405"), ext)
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		filename = filepath.Join(dir, filename)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", err
	}
	return filename, nil
}

// fileSlug reduces a scenario name to something safe in a file name.
func fileSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '/':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "trust_projection"
	}
	return b.String()
}

// builtInFormatters stores available formatters.
var builtInFormatters = []Formatter{
	FundCSVExporter{},
	PopulationCSVExporter{},
	JSONFormatter{},
	MarkdownFormatter{},
	ConsoleFormatter{},
	HTMLFormatter{},
}

// extensions maps canonical formatter names to file extensions.
var extensions = map[string]string{
	"csv":            "csv",
	"population-csv": "csv",
	"json":           "json",
	"markdown":       "md",
	"console":        "txt",
	"html":           "html",
}

// GetFormatterByName fetches a registered formatter.
func GetFormatterByName(name string) Formatter {
	n := NormalizeFormatName(name)
	for _, f := range builtInFormatters {
		if f.Name() == n {
			return f
		}
	}
	return nil
}

// Extension returns the file extension for a format name or alias.
func Extension(name string) string {
	if ext, ok := extensions[NormalizeFormatName(name)]; ok {
		return ext
	}
	return "txt"
}

// aliasMap provides user-friendly synonyms for format names.
var aliasMap = map[string]string{
	"fund-csv":    "csv",
	"fund":        "csv",
	"population":  "population-csv",
	"ages-csv":    "population-csv",
	"json-pretty": "json",
	"md":          "markdown",
	"report":      "markdown",
	"text":        "console",
	"terminal":    "console",
	"html-report": "html",
}

// NormalizeFormatName lowers and resolves aliases.
func NormalizeFormatName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if mapped, ok := aliasMap[n]; ok {
		return mapped
	}
	return n
}

// AvailableFormatterNames returns the canonical formatter names.
func AvailableFormatterNames() []string {
	names := make([]string, 0, len(builtInFormatters))
	for _, f := range builtInFormatters {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	return names
}

// AvailableFormatAliases returns the supported alias keys.
func AvailableFormatAliases() []string {
	keys := make([]string, 0, len(aliasMap))
	for k := range aliasMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
