package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// WriteCSV: заголовок отчёта, пустая строка, таблица, пустая строка, итоги.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)

	lines := [][]string{{r.Title}}
	for _, info := range r.Info {
		lines = append(lines, []string{info})
	}
	lines = append(lines, []string{""}, r.Columns())

	for _, row := range r.Rows {
		lines = append(lines, append(r.textCells(row), money(row.Hours), money(row.Amount)))
	}

	width := len(r.Columns())
	hoursCol := r.hoursColumn()
	totalHours := make([]string, width)
	totalHours[0] = "Итого часов"
	totalHours[hoursCol] = money(r.TotalHours)
	totalAmount := make([]string, width)
	totalAmount[0] = "Итого сумма"
	totalAmount[hoursCol+1] = money(r.TotalAmount)
	lines = append(lines, []string{""}, totalHours, totalAmount)

	if err := cw.WriteAll(lines); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
