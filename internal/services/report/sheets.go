package report

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/evn/dstracker/internal/models"
)

var spreadsheetIDRe = regexp.MustCompile(`\/d\/([a-zA-Z0-9-_]+)`)

// SpreadsheetID достаёт ID из ссылки вида https://docs.google.com/spreadsheets/d/<id>/edit.
func SpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDRe.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", models.Validation("invalid Google Sheets URL")
	}
	return matches[1], nil
}

type sheetsAPI interface {
	AddSheet(ctx context.Context, spreadsheetID, title string) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
}

type googleSheets struct {
	srv *sheets.Service
}

func (g googleSheets) AddSheet(ctx context.Context, id, title string) error {
	_, err := g.srv.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	return err
}

func (g googleSheets) Clear(ctx context.Context, id, rng string) error {
	_, err := g.srv.Spreadsheets.Values.Clear(id, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g googleSheets) Update(ctx context.Context, id, rng string, values [][]any) error {
	_, err := g.srv.Spreadsheets.Values.Update(id, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (g googleSheets) Get(ctx context.Context, id, rng string) ([][]any, error) {
	resp, err := g.srv.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// SheetsPublisher выгружает отчёт на отдельный лист таблицы Google.
type SheetsPublisher struct {
	api sheetsAPI
}

// NewSheetsPublisher: без файла ключей публикация выключена (nil, nil).
func NewSheetsPublisher(ctx context.Context, credentialsFile string) (*SheetsPublisher, error) {
	if credentialsFile == "" {
		return nil, nil
	}
	srv, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Google API: %w", err)
	}
	return &SheetsPublisher{api: googleSheets{srv: srv}}, nil
}

// Values: таблица отчёта для Sheets API.
func Values(r *Report) [][]any {
	var values [][]any
	values = append(values, []any{r.Title})
	for _, info := range r.Info {
		values = append(values, []any{info})
	}
	values = append(values, []any{})

	header := make([]any, 0, len(r.Columns()))
	for _, c := range r.Columns() {
		header = append(header, c)
	}
	values = append(values, header)

	for _, row := range r.Rows {
		line := make([]any, 0, len(header))
		for _, c := range r.textCells(row) {
			line = append(line, c)
		}
		values = append(values, append(line, row.Hours, row.Amount))
	}

	hoursCol := r.hoursColumn()
	totalHours := blankRow(hoursCol + 1)
	totalHours[0], totalHours[hoursCol] = "Итого часов", r.TotalHours
	totalAmount := blankRow(hoursCol + 2)
	totalAmount[0], totalAmount[hoursCol+1] = "Итого сумма", r.TotalAmount

	return append(values, []any{}, totalHours, totalAmount)
}

func blankRow(n int) []any {
	row := make([]any, n)
	for i := range row {
		row[i] = ""
	}
	return row
}

// Publish возвращает название листа, на который записан отчёт.
func (p *SheetsPublisher) Publish(ctx context.Context, sheetURL string, r *Report) (string, error) {
	if p == nil {
		return "", models.External("google sheets", fmt.Errorf("publishing is not configured"))
	}

	id, err := SpreadsheetID(sheetURL)
	if err != nil {
		return "", err
	}

	title := strings.TrimSuffix(r.FileName("csv"), ".csv")
	rng := fmt.Sprintf("'%s'!A1", title)

	// лист уже есть после прошлой выгрузки, перезаписываем
	if err := p.api.AddSheet(ctx, id, title); err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return "", models.External("google sheets", err)
		}
		if err := p.api.Clear(ctx, id, fmt.Sprintf("'%s'", title)); err != nil {
			return "", models.External("google sheets", err)
		}
	}

	if err := p.api.Update(ctx, id, rng, Values(r)); err != nil {
		return "", models.External("google sheets", err)
	}
	return title, nil
}

// ReadRows читает первые три колонки первого листа (импорт сотрудников).
func (p *SheetsPublisher) ReadRows(ctx context.Context, sheetURL string) ([][]string, error) {
	if p == nil {
		return nil, models.External("google sheets", fmt.Errorf("publishing is not configured"))
	}

	id, err := SpreadsheetID(sheetURL)
	if err != nil {
		return nil, err
	}

	values, err := p.api.Get(ctx, id, "A1:C1000")
	if err != nil {
		return nil, models.External("google sheets", err)
	}
	if len(values) == 0 {
		return nil, models.Validation("таблица пуста")
	}

	rows := make([][]string, 0, len(values))
	for _, row := range values {
		strRow := make([]string, 0, len(row))
		for _, cell := range row {
			strRow = append(strRow, fmt.Sprintf("%v", cell))
		}
		rows = append(rows, strRow)
	}
	return rows, nil
}
