package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

var answerHeaders = []interface{}{
	"#", "Question ID", "Category", "Your Answer", "Correct Answer", "Correct", "Question", "Options",
}

func workbook(payload Payload) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort workbook close.
			_ = cerr
		}
	}()

	f.SetSheetName("Sheet1", summarySheet)
	rows := [][]interface{}{
		{"Timestamp", payload.Timestamp},
		{"Attempt", payload.AttemptID},
		{},
		{"Section", "Score", "Total"},
		{"Reading and Writing", payload.ReadingWriting.Score, payload.ReadingWriting.TotalQuestions},
		{"Math", payload.Math.Score, payload.Math.TotalQuestions},
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return nil, err
	}

	for _, sec := range []struct {
		name    string
		section Section
	}{
		{"Reading and Writing", payload.ReadingWriting},
		{"Math", payload.Math},
	} {
		if err := answerSheet(f, sec.name, sec.section); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func answerSheet(f *excelize.File, name string, section Section) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", name, err)
	}
	rows := make([][]interface{}, 0, len(section.DetailedAnswers)+1)
	rows = append(rows, answerHeaders)
	for i, a := range section.DetailedAnswers {
		correct := "no"
		if a.IsCorrect {
			correct = "yes"
		}
		rows = append(rows, []interface{}{
			i + 1, a.QuestionID, a.Category, a.UserAnswer, a.CorrectAnswer, correct, a.QuestionText, strings.Join(a.Options, "\n"),
		})
	}
	if err := writeRows(f, name, rows); err != nil {
		return err
	}
	return f.SetColWidth(name, "G", "H", 60)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
