package report

import (
	"bytes"
	"strings"
	"text/template"
)

// The deck is a line-oriented outline: SLIDE headers followed by TITLE,
// SUBTITLE, BULLETS, CONTENT, TABLE and FOOTER blocks.
var slidesTemplate = template.Must(template.New("slides").Funcs(template.FuncMap{
	"date":         FormatDate,
	"slideNo":      func(i int) int { return fixedSlides + 1 + i },
	"closingSlide": func(a Analysis) int { return fixedSlides + 1 + len(a.Findings) },
	"line":         line,
	"quoted":       quoted,
}).Parse(`THEME_NAME:"Office Theme"
SLIDE:1
TITLE:"{{quoted .Title}}"
SUBTITLE:"{{quoted .Subtitle}}"

SLIDE:2
TITLE:"Executive Summary"
BULLETS:
{{- range .Summary}}
• {{line .}}
{{- end}}

SLIDE:3
TITLE:"Key Metrics"
CONTENT:
{{- range .Metrics}}
{{line .Label}}: {{line .Value}} ({{line .Note}})
{{- end}}

SLIDE:4
TITLE:"Top Candidates"
TABLE:
Rank | Molecule | Indication | Market Size
{{- range .Candidates}}
{{line .Rank}} | {{line .Name}} | {{line .Indication}} | {{line .Market}}
{{- end}}

SLIDE:5
TITLE:"Next Steps"
BULLETS:
{{- range .NextSteps}}
• {{line .}}
{{- end}}
{{- range $i, $f := .Findings}}

SLIDE:{{slideNo $i}}
TITLE:"{{quoted $f.Agent}}"
BULLETS:
{{- range $f.Findings}}
• {{line .}}
{{- end}}
{{- end}}

SLIDE:{{closingSlide .}}
TITLE:"Report Generated"
SUBTITLE:"{{date .Date}}"
FOOTER:"AgenicAI - Pharma Innovation Assistant"
`))

// fixedSlides is the number of slides before the per-agent findings.
const fixedSlides = 5

func renderSlides(buf *bytes.Buffer, a Analysis) error {
	return slidesTemplate.Execute(buf, a)
}

// line collapses any line breaks in s so a value cannot start a new
// outline directive.
func line(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// quoted is line with double quotes swapped for single ones, for values
// inside a quoted field.
func quoted(s string) string {
	return strings.ReplaceAll(line(s), `"`, "'")
}
