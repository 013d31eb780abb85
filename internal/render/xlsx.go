// Package render turns validated schedule documents into XLSX workbooks.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
)

const (
	defaultCreator    = "cronograma-mcp"
	instructionsSheet = schedule.InstructionsSheetName
)

var headers = []string{"Nome da Tarefa", "Duração", "Responsável"}

// XLSX renders the schedule sheet plus an instructions sheet.
type XLSX struct {
	creator string
}

// NewXLSX creates a renderer that stamps creator into document properties.
func NewXLSX(creator string) *XLSX {
	if strings.TrimSpace(creator) == "" {
		creator = defaultCreator
	}
	return &XLSX{creator: creator}
}

type styles struct {
	header  int
	project int
	macro   int
	micro   int
	text    int
}

// Render writes doc.Rows() under a three-column header in order and returns
// the workbook bytes.
func (x *XLSX) Render(doc schedule.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := doc.SheetName
	if sheet == "" {
		sheet = schedule.DefaultSheetName
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	if err := writeSchedule(f, sheet, doc.Rows(), st); err != nil {
		return nil, err
	}
	// excelize matches sheet names case-insensitively.
	if !strings.EqualFold(sheet, instructionsSheet) {
		if err := writeInstructions(f, doc, st); err != nil {
			return nil, err
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       "Cronograma - " + cleanText(doc.Request.Project.Name),
		Subject:     "Cronograma do projeto",
		Creator:     x.creator,
		Identifier:  doc.RequestID,
		Version:     doc.FormatVersion,
		Created:     doc.GeneratedAt.UTC().Format(time.RFC3339),
		Description: fmt.Sprintf("Formato %s, requisição %s", doc.FormatVersion, doc.RequestID),
	}); err != nil {
		return nil, fmt.Errorf("set document properties: %w", err)
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSchedule(f *excelize.File, sheet string, rows []schedule.Row, st styles) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", st.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range rows {
		r := i + 2
		values := []string{cleanText(row.Name), row.Duration, cleanText(row.Responsible)}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", r, err)
			}
		}

		style := st.micro
		switch row.Kind {
		case schedule.RowProject:
			style = st.project
		case schedule.RowMacro:
			style = st.macro
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", r), fmt.Sprintf("C%d", r), style); err != nil {
			return fmt.Errorf("style row %d: %w", r, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 70); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 15); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "C", "C", 22); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeInstructions(f *excelize.File, doc schedule.Document, st styles) error {
	if _, err := f.NewSheet(instructionsSheet); err != nil {
		return fmt.Errorf("create instructions sheet: %w", err)
	}

	rows := [][]string{
		{"Campo", "Como usar"},
		{"Objetivo", "Padronizar a confecção do cronograma do projeto em formato simples, repetível e auditável."},
		{"Modelo", "Nome da Tarefa | Duração | Responsável (macro atividades e suas micro atividades)."},
		{"Duração", "Horas decorridas no formato H:MM:SS (ex.: 10:00:00). Totais de macro e projeto somam as micros."},
		{"Responsável", "Informe o papel (ex.: Arquiteto de Solução)."},
		{"Versão do Formato", doc.FormatVersion},
		{"Requisição", doc.RequestID},
		{"Checklist", "1) Macro definida  2) Micros listadas  3) Durações  4) Responsáveis  5) Revisão final"},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellStr(instructionsSheet, cell, v); err != nil {
				return fmt.Errorf("write instructions: %w", err)
			}
		}
	}

	if err := f.SetCellStyle(instructionsSheet, "A1", "B1", st.header); err != nil {
		return err
	}
	if err := f.SetCellStyle(instructionsSheet, "A2", fmt.Sprintf("B%d", len(rows)), st.text); err != nil {
		return err
	}
	if err := f.SetColWidth(instructionsSheet, "A", "A", 28); err != nil {
		return err
	}
	return f.SetColWidth(instructionsSheet, "B", "B", 90)
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "808080", Style: 1},
		{Type: "right", Color: "808080", Style: 1},
		{Type: "top", Color: "808080", Style: 1},
		{Type: "bottom", Color: "808080", Style: 1},
	}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}

	var st styles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 11},
			Fill:      fill("#D3D3D3"),
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    border,
		}},
		{&st.project, &excelize.Style{
			Font:   &excelize.Font{Bold: true, Size: 11},
			Fill:   fill("#A9A9A9"),
			Border: border,
		}},
		{&st.macro, &excelize.Style{
			Font:   &excelize.Font{Bold: true, Size: 10},
			Fill:   fill("#E8E8E8"),
			Border: border,
		}},
		{&st.micro, &excelize.Style{Border: border}},
		{&st.text, &excelize.Style{
			Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
			Border:    border,
		}},
	}

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return styles{}, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}

// cleanText drops control characters that are not valid in sheet XML.
func cleanText(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
