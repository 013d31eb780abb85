package schedule

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ganot/cronograma-mcp/internal/duration"
)

const (
	maxFilenameStem = 200
	fallbackStem    = "cronograma"
	microIndent     = "    "
)

// RowKind tells the renderer how to present a row.
type RowKind string

const (
	RowProject RowKind = "project"
	RowMacro   RowKind = "macro"
	RowMicro   RowKind = "micro"
)

// Row is one rendered line below the header.
type Row struct {
	Kind        RowKind
	Name        string
	Duration    string
	Hours       float64
	Responsible string
}

// Document is everything a renderer needs; it is built only from validated input.
type Document struct {
	RequestID     string
	FormatVersion string
	SheetName     string
	Filename      string
	GeneratedAt   time.Time
	Request       *Request
	Summary       Aggregate
}

// Rows lists rows in render order: project (if included), then each macro
// followed by its micros in payload order. len(Rows()) == RowCount(Request).
func (d Document) Rows() []Row {
	req := d.Request
	rows := make([]Row, 0, RowCount(req))
	if req.IncludesProjectRow() {
		rows = append(rows, Row{
			Kind:        RowProject,
			Name:        req.Project.Name,
			Duration:    d.Summary.DurationDisplay,
			Hours:       d.Summary.TotalHours,
			Responsible: req.Project.Owner,
		})
	}
	for i, macro := range req.Macros {
		total := d.Summary.Macros[i]
		rows = append(rows, Row{
			Kind:        RowMacro,
			Name:        macro.Name,
			Duration:    total.DurationDisplay,
			Hours:       total.Hours,
			Responsible: macro.Responsible,
		})
		for _, micro := range macro.Micros {
			rows = append(rows, Row{
				Kind:        RowMicro,
				Name:        microIndent + micro.Name,
				Duration:    duration.Encode(micro.Hours.Value()),
				Hours:       Round4(micro.Hours.Value()),
				Responsible: micro.Responsible,
			})
		}
	}
	return rows
}

// SanitizeFilename removes control and path-hostile characters, collapses
// whitespace and caps the length. An empty result becomes "cronograma".
func SanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, name)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	runes := []rune(cleaned)
	if len(runes) > maxFilenameStem {
		cleaned = strings.TrimSpace(string(runes[:maxFilenameStem]))
	}
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		return fallbackStem
	}
	return cleaned
}

// ArtifactFilename is the user-facing file name for a project generated on day at.
func ArtifactFilename(projectName string, at time.Time) string {
	return fmt.Sprintf("Cronograma - %s - %s.xlsx", SanitizeFilename(projectName), at.Format("2006-01-02"))
}
