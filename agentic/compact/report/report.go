// Package report renders a compaction result as a standalone HTML page for
// reviewing what a summary kept.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/victorarias/agentic-compact/agentic/compact"
	"github.com/victorarias/agentic-compact/agentic/message"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var policy = bluemonday.UGCPolicy()

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{- if .Stats}}
<table class="stats">
<tr><th>Original tokens</th><td>{{.Stats.OriginalTokens}}</td></tr>
<tr><th>Compacted tokens</th><td>{{.Stats.CompactedTokens}}</td></tr>
<tr><th>Compaction ratio</th><td>{{printf "%.3f" .Stats.CompactionRatio}}</td></tr>
<tr><th>Messages compacted</th><td>{{.Stats.CompactedMessageCount}}</td></tr>
<tr><th>Messages retained</th><td>{{.Stats.RetainedMessageCount}}</td></tr>
<tr><th>Files restored</th><td>{{.Stats.RestoredFileCount}}</td></tr>
<tr><th>Restored tokens</th><td>{{.Stats.RestoredTokenCount}}</td></tr>
</table>
{{- end}}
{{- if .BodyPath}}
<p class="body-path">Original messages: <code>{{.BodyPath}}</code></p>
{{- end}}
<section class="summary">
{{.Summary}}
</section>
{{- if .Files}}
<h2>Restored files</h2>
<ul class="files">
{{- range .Files}}
<li><code>{{.}}</code></li>
{{- end}}
</ul>
{{- end}}
</body>
</html>
`))

type pageData struct {
	Title    string
	Stats    *compact.Stats
	BodyPath string
	Summary  template.HTML
	Files    []string
}

// Summary returns the summary text from a compacted transcript, or "" when
// result was not compacted.
func Summary(result compact.Result) string {
	if !result.Compacted {
		return ""
	}
	prefix := compact.CompressedPrefix + "\n\n"
	for _, msg := range result.Messages {
		if msg.Role == message.RoleUser && !msg.HasSegments() && strings.HasPrefix(msg.Text, prefix) {
			return strings.TrimPrefix(msg.Text, prefix)
		}
	}
	return ""
}

// RestoredFiles lists the paths restored into a compacted transcript.
func RestoredFiles(result compact.Result) []string {
	var out []string
	prefix := compact.RestoredPrefix + " "
	for _, msg := range result.Messages {
		if msg.Role != message.RoleUser || msg.HasSegments() || !strings.HasPrefix(msg.Text, prefix) {
			continue
		}
		header, _, _ := strings.Cut(strings.TrimPrefix(msg.Text, prefix), "\n")
		out = append(out, strings.TrimSuffix(header, ":"))
	}
	return out
}

// RenderMarkdown converts Markdown to sanitized HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("report: render markdown: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

// RenderHTML writes an HTML page describing result.
func RenderHTML(w io.Writer, title string, result compact.Result) error {
	if title == "" {
		title = "Compaction report"
	}
	summary, err := RenderMarkdown(Summary(result))
	if err != nil {
		return err
	}
	data := pageData{
		Title:    title,
		Stats:    result.Stats,
		BodyPath: result.OriginalBodyPath,
		Summary:  template.HTML(summary),
		Files:    RestoredFiles(result),
	}
	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("report: render page: %w", err)
	}
	return nil
}
