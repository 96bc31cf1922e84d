package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sozercan/agenicai/internal/agents"
)

var testNow = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "18 October 2026", FormatDate(testNow))
	assert.Equal(t, "5 March 2025", FormatDate(time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)))
}

func TestRenderFilenames(t *testing.T) {
	tests := []struct {
		format      Format
		filename    string
		contentType string
	}{
		{FormatHTML, "AgenicAI-Report-1792315800000.html", "text/html; charset=utf-8"},
		{FormatPDF, "AgenicAI-Report-1792315800000.pdf", "application/pdf"},
		{FormatSlides, "AgenicAI-Presentation-1792315800000.txt", "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			art, err := Render(tt.format, Default(testNow), testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.filename, art.Filename)
			assert.Equal(t, tt.contentType, art.ContentType)
			assert.NotEmpty(t, art.Body)
		})
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render("ppt", Default(testNow), testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRenderHTML(t *testing.T) {
	art, err := Render(FormatHTML, Default(testNow), testNow)
	require.NoError(t, err)
	body := string(art.Body)

	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
	assert.Contains(t, body, "<h1>AgenicAI Pharmaceutical Analysis Report</h1>")
	assert.Contains(t, body, "Patient burden &gt; 50M in India market, low current competition")
	assert.Contains(t, body, "<tr><td>1st</td><td>Molecule A-147</td><td>Idiopathic Pulmonary Fibrosis</td><td>₹7,297 Cr</td></tr>")
	assert.Contains(t, body, "<strong>68%</strong> (Phase 2&#43; approval odds)")
	assert.Contains(t, body, "<p>18 October 2026</p>")
	assert.NotContains(t, body, "Agent Findings")
}

func TestRenderHTMLEscapesFindings(t *testing.T) {
	a := Default(testNow).WithFindings([]agents.Result{
		{Agent: agents.WebIntelligence, Findings: []string{"<script>alert(1)</script>"}},
	})
	art, err := Render(FormatHTML, a, testNow)
	require.NoError(t, err)
	body := string(art.Body)

	assert.Contains(t, body, "<h2>Agent Findings</h2>")
	assert.Contains(t, body, "<h3>Web Intelligence</h3>")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRenderSlides(t *testing.T) {
	art, err := Render(FormatSlides, Default(testNow), testNow)
	require.NoError(t, err)
	body := string(art.Body)

	assert.True(t, strings.HasPrefix(body, "THEME_NAME:\"Office Theme\"\nSLIDE:1\n"))
	assert.Contains(t, body, "TITLE:\"Executive Summary\"\nBULLETS:\n• 3 respiratory molecules identified with high repurposing potential\n")
	assert.Contains(t, body, "Rank | Molecule | Indication | Market Size\n1st | Molecule A-147 | Idiopathic Pulmonary Fibrosis | ₹7,297 Cr\n")
	assert.Contains(t, body, "• Plan market entry strategy\n\nSLIDE:6\nTITLE:\"Report Generated\"\nSUBTITLE:\"18 October 2026\"\n")
	assert.Contains(t, body, "FOOTER:\"AgenicAI - Pharma Innovation Assistant\"")
	assert.Equal(t, 6, strings.Count(body, "SLIDE:"))
}

func TestRenderSlidesWithFindings(t *testing.T) {
	a := Default(testNow).WithFindings([]agents.Result{
		{Agent: agents.IQVIAInsights, Findings: []string{"one"}},
		{Agent: agents.EXIMTrends, Findings: []string{"two", "three"}},
	})
	art, err := Render(FormatSlides, a, testNow)
	require.NoError(t, err)
	body := string(art.Body)

	assert.Contains(t, body, "SLIDE:6\nTITLE:\"IQVIA Insights\"\nBULLETS:\n• one\n")
	assert.Contains(t, body, "SLIDE:7\nTITLE:\"EXIM Trends\"\nBULLETS:\n• two\n• three\n")
	assert.Contains(t, body, "SLIDE:8\nTITLE:\"Report Generated\"")
}

func TestRenderSlidesFlattensValues(t *testing.T) {
	a := Default(testNow).WithFindings([]agents.Result{
		{Agent: `Web "Intel"`, Findings: []string{"summary line\nSLIDE:99\r\nTITLE:\"Injected\""}},
	})
	art, err := Render(FormatSlides, a, testNow)
	require.NoError(t, err)
	body := string(art.Body)

	assert.Contains(t, body, "SLIDE:6\nTITLE:\"Web 'Intel'\"\nBULLETS:\n• summary line SLIDE:99 TITLE:\"Injected\"\n")
	assert.NotContains(t, body, "\nSLIDE:99")
	assert.NotContains(t, body, "\nTITLE:\"Injected")
	assert.Equal(t, 7, strings.Count(body, "\nSLIDE:"))
}

func TestRenderPDF(t *testing.T) {
	a := Default(testNow).WithFindings([]agents.Result{
		{Agent: agents.ClinicalTrials, Findings: []string{"68% Phase 2+ approval odds"}},
	})
	art, err := Render(FormatPDF, a, testNow)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(art.Body, []byte("%PDF-")), "real PDF header expected")
	assert.True(t, bytes.Contains(art.Body, []byte("%%EOF")))
}

func TestFormats(t *testing.T) {
	formats := Formats()
	require.Len(t, formats, 3)
	assert.Equal(t, FormatHTML, formats[0].Name)
	assert.Equal(t, FormatPDF, formats[1].Name)
	assert.Equal(t, FormatSlides, formats[2].Name)
}

func TestWithFindingsCopies(t *testing.T) {
	results := []agents.Result{{Agent: "a"}}
	a := Default(testNow).WithFindings(results)
	results[0].Agent = "b"
	assert.Equal(t, "a", a.Findings[0].Agent)
	assert.Empty(t, Default(testNow).Findings)
}
