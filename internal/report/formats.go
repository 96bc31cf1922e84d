// Package report renders analysis results into downloadable artifacts.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatHTML   Format = "html"
	FormatPDF    Format = "pdf"
	FormatSlides Format = "slides"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	Name        Format `json:"name"`
	MIMEType    string `json:"mimeType"`
	Extension   string `json:"extension"`
	Prefix      string `json:"-"`
	Description string `json:"description"`

	render func(*bytes.Buffer, Analysis) error
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatHTML: {
		Name:        FormatHTML,
		MIMEType:    "text/html; charset=utf-8",
		Extension:   ".html",
		Prefix:      "AgenicAI-Report-",
		Description: "Printable HTML analysis report",
		render:      renderHTML,
	},
	FormatPDF: {
		Name:        FormatPDF,
		MIMEType:    "application/pdf",
		Extension:   ".pdf",
		Prefix:      "AgenicAI-Report-",
		Description: "PDF analysis report",
		render:      renderPDF,
	},
	FormatSlides: {
		Name:        FormatSlides,
		MIMEType:    "text/plain; charset=utf-8",
		Extension:   ".txt",
		Prefix:      "AgenicAI-Presentation-",
		Description: "Plain-text slide deck outline",
		render:      renderSlides,
	},
}

func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// Formats lists the registered formats sorted by name.
func Formats() []FormatInfo {
	out := make([]FormatInfo, 0, len(FormatRegistry))
	for _, info := range FormatRegistry {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Artifact is a rendered, downloadable file.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Render produces the artifact for format. The filename carries the unix
// millisecond timestamp of now.
func Render(format Format, a Analysis, now time.Time) (*Artifact, error) {
	info, ok := GetFormatInfo(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	var buf bytes.Buffer
	if err := info.render(&buf, a); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}

	return &Artifact{
		Filename:    fmt.Sprintf("%s%d%s", info.Prefix, now.UnixMilli(), info.Extension),
		ContentType: info.MIMEType,
		Body:        buf.Bytes(),
	}, nil
}
