package report

import (
	"bytes"
	"fmt"
	"html/template"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif; line-height: 1.6; color: #24292e; max-width: 900px; margin: 0 auto; padding: 20px; }
        svg { max-width: 100%; height: auto; }
        .year-section { margin-bottom: 40px; }
        .stats-section { margin-top: 50px; border-top: 1px solid #e1e4e8; padding-top: 20px; }
        .source-breakdown { margin-top: 20px; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
{{- range .Years}}
    <div class="year-section">
        <h3>{{.Year}}</h3>
        {{.SVG}}
        <p>{{.Caption}}</p>
    </div>
{{- end}}
    <div class="stats-section">
        <h2>Statistics</h2>
        <ul>
            <li><strong>Days covered:</strong> {{.Summary.Days}}</li>
            <li><strong>Total entries:</strong> {{.Summary.Entries}}</li>
            <li><strong>Total words:</strong> {{.Summary.Words}}</li>
            <li><strong>Total reading time:</strong> {{.Summary.ReadingTime}}</li>
        </ul>
        <div class="source-breakdown">
            <h3>Breakdown by Source</h3>
            <ul>
{{- range .Sources}}
                <li><strong>{{.Name}}:</strong> {{.Entries}} entries, {{.Words}} words, {{.ReadingTime}} reading time</li>
{{- end}}
            </ul>
        </div>
        <div class="longest-articles">
            <h3>Longest {{.LongestPerSource}} articles by source</h3>
            <ul>
{{- range .Longest}}
                <li>{{.Source}} #{{.Rank}}: <a href="{{.Link}}">{{.Title}}</a> ({{.Words}} words, {{.ReadingTime}} reading time)</li>
{{- end}}
            </ul>
        </div>
    </div>
</body>
</html>`))

type indexYear struct {
	Year    int
	SVG     template.HTML
	Caption string
}

type indexView struct {
	Overview
	Years            []indexYear
	LongestPerSource int
}

// HTML renders the standalone index page.
func HTML(o Overview) ([]byte, error) {
	view := indexView{Overview: o, LongestPerSource: LongestPerSource}
	for _, y := range o.Years {
		// Heatmaps are produced by heatmap.Renderer, which escapes all text.
		view.Years = append(view.Years, indexYear{Year: y.Year, SVG: template.HTML(y.SVG), Caption: y.Caption}) // #nosec G203
	}
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	return buf.Bytes(), nil
}
