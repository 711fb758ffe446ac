package report

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/evn/dstracker/internal/models"
)

var msk = time.FixedZone("MSK", 3*60*60)

func ended(start time.Time, d time.Duration, userID string, locID int64, rate float64) models.WorkSession {
	end := start.Add(d)
	return models.WorkSession{UserID: userID, LocationID: locID, StartTime: start, EndTime: &end, HourlyRate: rate}
}

func fixtureInput(kind Kind) Input {
	period := MonthPeriod(2024, time.March, msk)
	start := time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC)
	active := models.WorkSession{UserID: "u1", LocationID: 1, StartTime: start.Add(48 * time.Hour), HourlyRate: 20}

	return Input{
		Kind:     kind,
		Employee: &models.User{ID: "u1", Name: "Иван", Email: "ivan@example.com", HourlyRate: 20},
		Location: &models.WorkLocation{ID: 1, Name: "Склад", Address: "ул. Ленина, 1"},
		Sessions: []models.WorkSession{
			active,
			ended(start, 90*time.Minute, "u1", 1, 20),
		},
		Users:     map[string]models.User{"u1": {ID: "u1", Name: "Иван"}},
		Locations: map[int64]models.WorkLocation{1: {ID: 1, Name: "Склад"}},
		Period:    period,
		Now:       active.StartTime.Add(2 * time.Hour),
	}
}

func TestMonthPeriod(t *testing.T) {
	p := MonthPeriod(2024, time.February, msk)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, msk), p.Start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, msk), p.End)
	assert.Equal(t, "01.02.2024 00:00 - 29.02.2024 23:59", p.Label())
}

func TestParseMonth(t *testing.T) {
	p, err := ParseMonth("2023-12", time.Now(), msk)
	require.NoError(t, err)
	assert.Equal(t, time.December, p.Start.Month())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, msk), p.End)

	now := time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC) // в Москве уже июнь
	p, err = ParseMonth("", now, msk)
	require.NoError(t, err)
	assert.Equal(t, time.June, p.Start.Month())

	_, err = ParseMonth("03.2024", now, msk)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Employee")
	require.NoError(t, err)
	assert.Equal(t, KindEmployee, k)

	_, err = ParseKind("weekly")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestBuildEmployeeReport(t *testing.T) {
	r, err := Build(fixtureInput(KindEmployee))
	require.NoError(t, err)

	require.Len(t, r.Rows, 2)
	assert.Equal(t, Row{Date: "07.03.2024", Start: "09:00", End: "Активна", Employee: "Иван", Location: "Склад", Hours: 2, Amount: 40, Active: true}, r.Rows[0])
	assert.Equal(t, Row{Date: "05.03.2024", Start: "09:00", End: "10:30", Employee: "Иван", Location: "Склад", Hours: 1.5, Amount: 30}, r.Rows[1])
	assert.Equal(t, 3.5, r.TotalHours)
	assert.Equal(t, 70.0, r.TotalAmount)
	assert.Equal(t, "Иван", r.Subject)
}

func TestTotalsAreSumOfTruncatedRows(t *testing.T) {
	in := fixtureInput(KindGeneral)
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	in.Sessions = nil
	for i := 0; i < 3; i++ {
		in.Sessions = append(in.Sessions, ended(start.Add(time.Duration(i)*time.Hour), 20*time.Minute, "u1", 1, 100))
	}

	r, err := Build(in)
	require.NoError(t, err)
	for _, row := range r.Rows {
		assert.Equal(t, 0.33, row.Hours)
		assert.Equal(t, 33.0, row.Amount)
	}
	// сырая сумма дала бы 1.00 ч и 100.00
	assert.Equal(t, 0.99, r.TotalHours)
	assert.Equal(t, 99.0, r.TotalAmount)
}

func TestBuildUnknownNames(t *testing.T) {
	in := fixtureInput(KindGeneral)
	in.Users = nil
	in.Locations = nil

	r, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "Неизвестный сотрудник", r.Rows[0].Employee)
	assert.Equal(t, "Неизвестная локация", r.Rows[0].Location)
}

func TestBuildRequiresSubject(t *testing.T) {
	in := fixtureInput(KindEmployee)
	in.Employee = nil
	_, err := Build(in)
	assert.ErrorIs(t, err, models.ErrValidation)

	in = fixtureInput(KindLocation)
	in.Location = nil
	_, err = Build(in)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestWriteCSVEmployee(t *testing.T) {
	r, err := Build(fixtureInput(KindEmployee))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))

	want := strings.Join([]string{
		"Отчет по сотруднику: Иван",
		"Email: ivan@example.com",
		"Ставка: 20.00 ₽/час",
		"Период: 01.03.2024 00:00 - 31.03.2024 23:59",
		"",
		"Дата,Начало,Окончание,Локация,Часов,Сумма",
		"07.03.2024,09:00,Активна,Склад,2.00,40.00",
		"05.03.2024,09:00,10:30,Склад,1.50,30.00",
		"",
		"Итого часов,,,,3.50,",
		"Итого сумма,,,,,70.00",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVGeneralColumns(t *testing.T) {
	r, err := Build(fixtureInput(KindGeneral))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))
	lines := strings.Split(buf.String(), "\n")

	assert.Equal(t, "Общий отчет по всем сотрудникам и объектам", lines[0])
	assert.Contains(t, lines, "Дата,Сотрудник,Локация,Начало,Окончание,Часов,Сумма")
	assert.Contains(t, lines, "05.03.2024,Иван,Склад,09:00,10:30,1.50,30.00")
	assert.Contains(t, lines, "Итого часов,,,,,3.50,")
	assert.Contains(t, lines, "Итого сумма,,,,,,70.00")
}

func TestWriteCSVQuotesCommas(t *testing.T) {
	in := fixtureInput(KindLocation)
	in.Users = map[string]models.User{"u1": {Name: "Иванов, Иван"}}
	r, err := Build(in)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))
	assert.Contains(t, buf.String(), `05.03.2024,"Иванов, Иван",09:00,10:30,1.50,30.00`)
}

func TestWriteXLSX(t *testing.T) {
	r, err := Build(fixtureInput(KindLocation))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, r))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Equal(t, "Отчет по объекту: Склад", rows[0][0])

	var header []string
	for _, row := range rows {
		if len(row) > 0 && row[0] == "Дата" {
			header = row
		}
	}
	assert.Equal(t, []string{"Дата", "Сотрудник", "Начало", "Окончание", "Часов", "Сумма"}, header)

	last := rows[len(rows)-1]
	assert.Equal(t, "Итого сумма", last[0])
	total, err := strconv.ParseFloat(last[5], 64)
	require.NoError(t, err)
	assert.Equal(t, 70.0, total)
}

func TestFileName(t *testing.T) {
	p := MonthPeriod(2024, time.March, msk)
	assert.Equal(t, "report_employee_Иван_Петров_2024_03.csv", FileName(KindEmployee, "Иван Петров", p, "csv"))
	assert.Equal(t, "report_location_Цех_1_2024_03.xlsx", FileName(KindLocation, "Цех/1", p, ".xlsx"))
	assert.Equal(t, "report_general_2024_03.csv", FileName(KindGeneral, "", p, "csv"))
}

func TestSpreadsheetID(t *testing.T) {
	id, err := SpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9", id)

	_, err = SpreadsheetID("https://example.com")
	assert.ErrorIs(t, err, models.ErrValidation)
}

type fakeSheets struct {
	rows     [][]any
	existing map[string]bool
	cleared  []string
	updated  map[string][][]any
	failWith error
}

func (f *fakeSheets) AddSheet(_ context.Context, _, title string) error {
	if f.existing[title] {
		return errors.New("googleapi: Error 400: A sheet with the name \"" + title + "\" already exists")
	}
	f.existing[title] = true
	return nil
}

func (f *fakeSheets) Clear(_ context.Context, _, rng string) error {
	f.cleared = append(f.cleared, rng)
	return nil
}

func (f *fakeSheets) Update(_ context.Context, _, rng string, values [][]any) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.updated[rng] = values
	return nil
}

func (f *fakeSheets) Get(_ context.Context, id, _ string) ([][]any, error) {
	if id != "sheet123" {
		return nil, errors.New("googleapi: Error 404: Requested entity was not found")
	}
	return f.rows, nil
}

func TestSheetsReadRows(t *testing.T) {
	api := &fakeSheets{rows: [][]any{{"email", "имя", "ставка"}, {"anna@x.ru", "Анна", 250.5}}}
	p := &SheetsPublisher{api: api}

	rows, err := p.ReadRows(context.Background(), "https://docs.google.com/spreadsheets/d/sheet123/edit")
	require.NoError(t, err)
	assert.Equal(t, []string{"anna@x.ru", "Анна", "250.5"}, rows[1])

	_, err = p.ReadRows(context.Background(), "https://docs.google.com/spreadsheets/d/other/edit")
	assert.ErrorIs(t, err, models.ErrExternalService)

	api.rows = nil
	_, err = p.ReadRows(context.Background(), "https://docs.google.com/spreadsheets/d/sheet123/edit")
	assert.ErrorIs(t, err, models.ErrValidation)

	var disabled *SheetsPublisher
	_, err = disabled.ReadRows(context.Background(), "https://docs.google.com/spreadsheets/d/sheet123/edit")
	assert.ErrorIs(t, err, models.ErrExternalService)
}

func TestSheetsPublisher(t *testing.T) {
	r, err := Build(fixtureInput(KindGeneral))
	require.NoError(t, err)

	api := &fakeSheets{existing: map[string]bool{}, updated: map[string][][]any{}}
	p := &SheetsPublisher{api: api}
	url := "https://docs.google.com/spreadsheets/d/sheet123/edit"

	title, err := p.Publish(context.Background(), url, r)
	require.NoError(t, err)
	assert.Equal(t, "report_general_2024_03", title)

	values := api.updated["'report_general_2024_03'!A1"]
	require.NotEmpty(t, values)
	assert.Equal(t, []any{"Итого сумма", "", "", "", "", "", 70.0}, values[len(values)-1])

	// повторная выгрузка перезаписывает лист
	_, err = p.Publish(context.Background(), url, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"'report_general_2024_03'"}, api.cleared)

	api.failWith = errors.New("quota")
	_, err = p.Publish(context.Background(), url, r)
	assert.ErrorIs(t, err, models.ErrExternalService)
}

func TestNilSheetsPublisher(t *testing.T) {
	var p *SheetsPublisher
	_, err := p.Publish(context.Background(), "https://docs.google.com/spreadsheets/d/x/", &Report{})
	assert.ErrorIs(t, err, models.ErrExternalService)
}
