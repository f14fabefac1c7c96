package journal

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

var runOrgFuncs = template.FuncMap{
	"short": shortID,
	"ts": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
	"day": func(t time.Time) string {
		return t.UTC().Format("2006-01-02")
	},
	"price": func(x float64) string {
		return fmt.Sprintf("%.2f", x)
	},
	"cells": func(fields []Field) string {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = f.Name + "=" + f.Value
		}
		return strings.Join(parts, " ")
	},
}

const RunOrgTemplate = `** Scan: {{.Run.Scan}} ({{short .Run.RunID}})
:PROPERTIES:
:RUN_ID: {{.Run.RunID}}
:SCAN: {{.Run.Scan}}
:MODE: {{.Run.Mode}}
:LOGIC: {{.Run.Logic}}
:STARTED: {{ts .Run.StartedAt}}
:FINISHED: {{ts .Run.FinishedAt}}
:MATCHES: {{.Run.Matches}}
:OUTPUT: {{.Run.OutputPath}}
:END:
{{- if .Matches}}

| Ticker | Timeframe | Date | Close | Diagnostics |
|--------+-----------+------+-------+-------------|
{{- range .Matches}}
| {{.Ticker}} | {{.Timeframe}} | {{day .Date}} | {{price .Close}} | {{cells .Fields}} |
{{- end}}
{{- end}}
`

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// FormatRunOrg renders a run and its matches as an Org-mode block with the
// run facts in a PROPERTIES drawer and the matches as a table.
func FormatRunOrg(run RunRecord, matches []MatchRecord) string {
	var buf bytes.Buffer
	err := runOrg.Execute(&buf, struct {
		Run     RunRecord
		Matches []MatchRecord
	}{run, matches})
	if err != nil {
		return fmt.Sprintf("** Scan: %s (%s)\n# render: %v\n", run.Scan, shortID(run.RunID), err)
	}
	return buf.String()
}

// FormatRunsOrg renders multiple runs without their matches, separated by
// blank lines.
func FormatRunsOrg(runs []RunRecord) string {
	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatRunOrg(r, nil))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
