package output

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// HTMLFormatter converts the markdown report into a standalone HTML page.
type HTMLFormatter struct{}

func (h HTMLFormatter) Name() string { return "html" }

//go:embed templates/report.html.tmpl
var htmlTemplateSource string

var htmlTemplate = template.Must(template.New("report").Parse(htmlTemplateSource))

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

func (h HTMLFormatter) Format(result *domain.SimulationResult) ([]byte, error) {
	md, err := MarkdownFormatter{}.Format(result)
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	if err := markdown.Convert(md, &body); err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}
	data := struct {
		Name string
		Body template.HTML
	}{result.Name, template.HTML(body.String())}
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
