package report

import (
	"bytes"
	"html/template"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"date": FormatDate,
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>AgenicAI Analysis Report</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 40px; line-height: 1.6; color: #333; }
    h1 { color: #003a88; border-bottom: 3px solid #003a88; padding-bottom: 10px; }
    h2 { color: #003a88; margin-top: 30px; }
    h3 { color: #0055b3; }
    .metric { background: #f0f4fa; padding: 15px; margin: 10px 0; border-left: 4px solid #003a88; }
    table { width: 100%; border-collapse: collapse; margin: 20px 0; }
    th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
    th { background-color: #003a88; color: white; }
    tr:nth-child(even) { background-color: #f9f9f9; }
    .summary-list { list-style: none; padding-left: 0; }
    .summary-list li { padding: 8px 0; padding-left: 25px; position: relative; }
    .summary-list li:before { content: "✓"; position: absolute; left: 0; color: #003a88; font-weight: bold; }
  </style>
</head>
<body>
  <h1>{{.Title}} Report</h1>
  <h2>Executive Summary</h2>
  <ul class="summary-list">
{{- range .Summary}}
    <li>{{.}}</li>
{{- end}}
  </ul>

  <h2>Key Metrics</h2>
{{- range .Metrics}}
  <div class="metric">
    <h3>{{.Label}}</h3>
    <p><strong>{{.Value}}</strong> ({{.Note}})</p>
  </div>
{{- end}}

  <h2>Top Candidates</h2>
  <table>
    <tr>
      <th>Rank</th><th>Molecule Name</th><th>Indication</th><th>Market Opportunity</th>
    </tr>
{{- range .Candidates}}
    <tr><td>{{.Rank}}</td><td>{{.Name}}</td><td>{{.Indication}}</td><td>{{.Market}}</td></tr>
{{- end}}
  </table>
{{- if .Findings}}

  <h2>Agent Findings</h2>
{{- range .Findings}}
  <h3>{{.Agent}}</h3>
  <ul>
{{- range .Findings}}
    <li>{{.}}</li>
{{- end}}
  </ul>
{{- end}}
{{- end}}

  <h2>Next Steps</h2>
  <ul>
{{- range .NextSteps}}
    <li>{{.}}</li>
{{- end}}
  </ul>

  <h2>Analysis Date</h2>
  <p>{{date .Date}}</p>
</body>
</html>
`))

func renderHTML(buf *bytes.Buffer, a Analysis) error {
	return htmlTemplate.Execute(buf, a)
}
