package services

import (
	"encoding/json"
	"fmt"
	"time"

	"pdf-qa-platform/models"

	"github.com/xuri/excelize/v2"
)

// Export formats for conversation history
const (
	ExportJSON  = "json"
	ExportExcel = "xlsx"
)

const historySheet = "Conversation"

// HistoryExport is the JSON export shape
type HistoryExport struct {
	SessionID  string        `json:"session_id"`
	ExportedAt time.Time     `json:"exported_at"`
	Turns      []models.Turn `json:"turns"`
}

// ExportHistory renders a session's turns as JSON or an Excel workbook and
// returns the bytes with their content type.
func ExportHistory(sessionID string, turns []models.Turn, format string, now time.Time) ([]byte, string, error) {
	switch format {
	case "", ExportJSON:
		if turns == nil {
			turns = []models.Turn{}
		}
		data, err := json.MarshalIndent(HistoryExport{SessionID: sessionID, ExportedAt: now, Turns: turns}, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return data, "application/json", nil
	case ExportExcel:
		data, err := exportExcel(sessionID, turns, now)
		if err != nil {
			return nil, "", err
		}
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	default:
		return nil, "", &models.ValidationError{Field: "format", Message: "Unsupported export format " + format}
	}
}

func exportExcel(sessionID string, turns []models.Turn, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(historySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []string{"#", "Role", "Text"}
	for i, h := range headers {
		f.SetCellValue(historySheet, fmt.Sprintf("%c1", 'A'+i), h)
	}
	for i, t := range turns {
		row := i + 2
		f.SetCellValue(historySheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(historySheet, fmt.Sprintf("B%d", row), t.Role)
		f.SetCellValue(historySheet, fmt.Sprintf("C%d", row), t.Text)
	}
	f.SetColWidth(historySheet, "A", "B", 10)
	f.SetColWidth(historySheet, "C", "C", 100)

	summary := "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Session ID", sessionID},
		{"Export Date", now.Format("2006-01-02 15:04:05")},
		{"Total Turns", len(turns)},
	}
	for i, r := range rows {
		for j, v := range r {
			f.SetCellValue(summary, fmt.Sprintf("%c%d", 'A'+j, i+1), v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
