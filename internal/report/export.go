package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"NYCU-SDC/survey-backend/internal/response"
	"NYCU-SDC/survey-backend/internal/survey"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	responsesSheet = "Responses"
	summarySheet   = "Summary"
)

// utf8BOM lets spreadsheet programs detect the CSV encoding.
const utf8BOM = "\uFEFF"

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Table flattens responses into one row per response and one column per
// question of the current survey version.
func Table(definition *survey.Definition, records []response.Record) ([]string, [][]string) {
	header := []string{"Response ID", "Submitted At", "User Type"}
	for _, q := range definition.Questions {
		header = append(header, "Q: "+q.Text)
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			r.ID.String(),
			r.SubmittedAt.UTC().Format(time.RFC3339),
			survey.RespondentClassToUppercase(r.UserType),
		}
		for _, q := range definition.Questions {
			cell := ""
			if v, ok := r.Answer(q.ID); ok {
				cell = AnswerText(q, v.Answer)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	return header, rows
}

func WriteCSV(w io.Writer, definition *survey.Definition, records []response.Record) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	header, rows := Table(definition, records)

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

// WriteXLSX writes a workbook with the raw responses and a per-question
// summary sheet.
func WriteXLSX(w io.Writer, definition *survey.Definition, records []response.Record) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", responsesSheet); err != nil {
		return err
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	header, rows := Table(definition, records)
	if err := writeSheet(f, responsesSheet, boldStyle, header, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := writeSheet(f, summarySheet, boldStyle, []string{"Question", "Answer", "Count", "Percentage"}, summaryRows(Analyze(definition, records))); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []string, rows [][]string) error {
	all := append([][]string{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return f.SetRowStyle(sheet, 1, 1, headerStyle)
}

func summaryRows(analytics Analytics) [][]string {
	var rows [][]string
	for _, q := range analytics.Questions {
		for _, c := range q.Counts {
			rows = append(rows, []string{q.Text, c.Label, fmt.Sprint(c.Count), fmt.Sprintf("%d%%", c.Percentage)})
		}
		if q.Average != nil {
			rows = append(rows, []string{q.Text, "Average", fmt.Sprintf("%.2f", *q.Average), ""})
		}
		if len(q.TextAnswers) > 0 {
			rows = append(rows, []string{q.Text, "Text answers", fmt.Sprint(len(q.TextAnswers)), ""})
		}
	}
	return rows
}
