package output

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/rpgo/trust-solvency/internal/domain"
)

// ConsoleFormatter renders the markdown report for a terminal.
type ConsoleFormatter struct {
	// Style is a glamour standard style name; empty means "notty" so output is stable when piped.
	Style string
	// WordWrap defaults to 120 columns.
	WordWrap int
}

func (c ConsoleFormatter) Name() string { return "console" }

func (c ConsoleFormatter) Format(result *domain.SimulationResult) ([]byte, error) {
	md, err := MarkdownFormatter{}.Format(result)
	if err != nil {
		return nil, err
	}
	style := c.Style
	if style == "" {
		style = "notty"
	}
	wrap := c.WordWrap
	if wrap <= 0 {
		wrap = 120
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	out, err := r.RenderBytes(md)
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	return out, nil
}
