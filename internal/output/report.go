package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpgo/trust-solvency/internal/domain"
)

// ErrUnsupportedFormat is returned for format names that resolve to no formatter.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// GenerateReport writes the result in the named format to dir and returns the written paths.
// "all" writes the fund CSV, the population CSV when a table is present, and the markdown report.
func GenerateReport(result *domain.SimulationResult, format, dir string) ([]string, error) {
	if NormalizeFormatName(format) == "all" {
		names := []string{"csv", "markdown"}
		if result.Population != nil {
			names = append(names, "population-csv")
		}
		var paths []string
		for _, n := range names {
			p, err := WriteFormatted(GetFormatterByName(n), result, dir, Extension(n))
			if err != nil {
				return paths, fmt.Errorf("%s: %w", n, err)
			}
			paths = append(paths, p)
		}
		return paths, nil
	}
	f := GetFormatterByName(format)
	if f == nil {
		return nil, fmt.Errorf("%w: %q. Try one of: %s (aliases: %s)", ErrUnsupportedFormat, format, strings.Join(AvailableFormatterNames(), ", "), strings.Join(AvailableFormatAliases(), ", "))
	}
	p, err := WriteFormatted(f, result, dir, Extension(format))
	if err != nil {
		return nil, err
	}
	return []string{p}, nil
}
