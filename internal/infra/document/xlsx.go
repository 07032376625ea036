package document

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
	"github.com/yanqian/thermostraw/internal/domain/prediction"
)

const historySheet = "History"

var historyHeader = []any{
	"Created at", "Batch", "> 2 mm (%)", "1 – 2 mm (%)", "500 µm – 1 mm (%)", "250 – 500 µm (%)", "< 250 µm (%)",
	"Lambda (W/(m·K))", "Uncertainty", "Threshold", "Badge", "Backend status", "Auto",
}

// HistoryXLSX writes the prediction history to a single-sheet workbook.
func (r *Renderer) HistoryXLSX(records []dashboard.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(historySheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		fr := rec.Fractions
		row := []any{
			rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			rec.BatchNumber,
			fr.Taux2mm, fr.Taux1mm, fr.Taux500um, fr.Taux250um, fr.Taux0,
			rec.Lambda,
			rec.Interval,
			rec.Threshold,
			prediction.BadgeLabel(rec.Badge),
			rec.Status,
			rec.Auto,
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(historySheet, "A", "A", 20); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

var _ dashboard.Documents = (*Renderer)(nil)
