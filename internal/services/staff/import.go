package staff

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/evn/dstracker/internal/models"
)

// ReadXLSXRows читает лист "Sheet1", а если его нет, то первый лист книги.
func ReadXLSXRows(r io.Reader) ([][]string, error) {
	xlsx, err := excelize.OpenReader(r)
	if err != nil {
		return nil, models.Validation("неверный формат Excel")
	}
	defer xlsx.Close()

	rows, err := xlsx.GetRows("Sheet1")
	if err != nil {
		sheets := xlsx.GetSheetList()
		if len(sheets) == 0 {
			return nil, models.Validation("пустой Excel")
		}
		rows, err = xlsx.GetRows(sheets[0])
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

type ImportError struct {
	Row   int    `json:"row"`
	Email string `json:"email"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created []NewEmployee `json:"created"`
	Errors  []ImportError `json:"errors"`
}

// parseRate понимает и "250.5", и "250,5". Пустая ячейка значит, что ставка не указана.
func parseRate(s string) (*float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !models.ValidHourlyRate(v) {
		return nil, models.Validation("неверная ставка %q", s)
	}
	return &v, nil
}

// ImportEmployees создаёт сотрудников из таблицы: первая строка это заголовок,
// дальше колонки email, имя, ставка. Ошибки строк не прерывают импорт.
func (s *EmployeeService) ImportEmployees(ctx context.Context, rows [][]string) (*ImportResult, error) {
	if len(rows) < 2 {
		return nil, models.Validation("файл должен содержать заголовок и хотя бы одну строку")
	}

	res := &ImportResult{Created: []NewEmployee{}, Errors: []ImportError{}}
	for i, row := range rows[1:] {
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		line := i + 2
		email := cell(0)
		if email == "" && cell(1) == "" {
			continue
		}

		rate, err := parseRate(cell(2))
		if err != nil {
			res.Errors = append(res.Errors, ImportError{Row: line, Email: email, Error: err.Error()})
			continue
		}

		created, err := s.CreateEmployee(ctx, models.EmployeeInput{Email: email, Name: cell(1), HourlyRate: rate})
		switch {
		case err == nil:
			res.Created = append(res.Created, *created)
		case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrConflict):
			res.Errors = append(res.Errors, ImportError{Row: line, Email: email, Error: err.Error()})
		default:
			return res, err
		}
	}
	return res, nil
}
