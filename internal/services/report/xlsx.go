package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Отчет"

// WriteXLSX пишет ту же таблицу, что и CSV; часы и суммы пишутся числами.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return err
	}

	rowNum := 1
	setRow := func(values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		rowNum++
		return f.SetSheetRow(sheetName, cell, &values)
	}

	if err := setRow([]any{r.Title}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", bold); err != nil {
		return err
	}
	for _, info := range r.Info {
		if err := setRow([]any{info}); err != nil {
			return err
		}
	}
	rowNum++

	columns := r.Columns()
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	headerRow := rowNum
	if err := setRow(header); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), bold); err != nil {
		return err
	}

	firstData := rowNum
	for _, row := range r.Rows {
		var values []any
		for _, c := range r.textCells(row) {
			values = append(values, c)
		}
		values = append(values, row.Hours, row.Amount)
		if err := setRow(values); err != nil {
			return err
		}
	}

	hoursCol, _ := excelize.ColumnNumberToName(r.hoursColumn() + 1)
	amountCol, _ := excelize.ColumnNumberToName(r.hoursColumn() + 2)
	if len(r.Rows) > 0 {
		if err := f.SetCellStyle(sheetName, fmt.Sprintf("%s%d", hoursCol, firstData),
			fmt.Sprintf("%s%d", amountCol, rowNum-1), moneyStyle); err != nil {
			return err
		}
	}
	rowNum++

	totalsRow := rowNum
	if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", totalsRow), "Итого часов"); err != nil {
		return err
	}
	if err := f.SetCellFloat(sheetName, fmt.Sprintf("%s%d", hoursCol, totalsRow), r.TotalHours, 2, 64); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", totalsRow+1), "Итого сумма"); err != nil {
		return err
	}
	if err := f.SetCellFloat(sheetName, fmt.Sprintf("%s%d", amountCol, totalsRow+1), r.TotalAmount, 2, 64); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", totalsRow), fmt.Sprintf("%s%d", amountCol, totalsRow+1), bold); err != nil {
		return err
	}

	if err := f.SetColWidth(sheetName, "A", lastCol, 16); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
