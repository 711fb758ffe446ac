package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/services/shift"
)

type Kind string

const (
	KindEmployee Kind = "employee"
	KindLocation Kind = "location"
	KindGeneral  Kind = "general"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindEmployee, KindLocation, KindGeneral:
		return k, nil
	}
	return "", models.Validation("unknown report kind %q", s)
}

const (
	dateLayout     = "02.01.2006"
	timeLayout     = "15:04"
	dateTimeLayout = "02.01.2006 15:04"

	activeMarker    = "Активна"
	unknownEmployee = "Неизвестный сотрудник"
	unknownLocation = "Неизвестная локация"
)

// Period: календарный месяц в часовом поясе отчёта, [Start, End).
// End это начало следующего месяца; в подписи показывается последняя секунда месяца.
type Period struct {
	Start time.Time
	End   time.Time
}

func MonthPeriod(year int, month time.Month, loc *time.Location) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// ParseMonth принимает "YYYY-MM"; пустая строка означает текущий месяц.
func ParseMonth(s string, now time.Time, loc *time.Location) (Period, error) {
	if s == "" {
		n := now.In(loc)
		return MonthPeriod(n.Year(), n.Month(), loc), nil
	}
	t, err := time.ParseInLocation("2006-01", s, loc)
	if err != nil {
		return Period{}, models.Validation("month must look like 2024-03, got %q", s)
	}
	return MonthPeriod(t.Year(), t.Month(), loc), nil
}

func (p Period) Label() string {
	return p.Start.Format(dateTimeLayout) + " - " + p.End.Add(-time.Second).Format(dateTimeLayout)
}

func (p Period) Filter() models.SessionFilter {
	return models.SessionFilter{From: p.Start, To: p.End}
}

type Row struct {
	Date     string
	Start    string
	End      string
	Employee string
	Location string
	Hours    float64
	Amount   float64
	Active   bool
}

type Report struct {
	Kind        Kind
	Subject     string
	Title       string
	Info        []string
	Period      Period
	Rows        []Row
	TotalHours  float64
	TotalAmount float64
}

// Input: всё, что нужно для построения отчёта. Sessions уже отфильтрованы по периоду.
type Input struct {
	Kind      Kind
	Employee  *models.User
	Location  *models.WorkLocation
	Sessions  []models.WorkSession
	Users     map[string]models.User
	Locations map[int64]models.WorkLocation
	Period    Period
	Now       time.Time
}

func Build(in Input) (*Report, error) {
	loc := in.Period.Start.Location()
	r := &Report{Kind: in.Kind, Period: in.Period}

	switch in.Kind {
	case KindEmployee:
		if in.Employee == nil {
			return nil, models.Validation("employee report needs an employee")
		}
		r.Subject = in.Employee.Name
		r.Title = "Отчет по сотруднику: " + in.Employee.Name
		r.Info = []string{
			"Email: " + in.Employee.Email,
			fmt.Sprintf("Ставка: %.2f ₽/час", in.Employee.HourlyRate),
		}
	case KindLocation:
		if in.Location == nil {
			return nil, models.Validation("location report needs a location")
		}
		r.Subject = in.Location.Name
		r.Title = "Отчет по объекту: " + in.Location.Name
		r.Info = []string{"Адрес: " + in.Location.Address}
	case KindGeneral:
		r.Title = "Общий отчет по всем сотрудникам и объектам"
	default:
		return nil, models.Validation("unknown report kind %q", in.Kind)
	}
	r.Info = append(r.Info, "Период: "+in.Period.Label())

	var hoursCents, amountCents int64
	for _, s := range in.Sessions {
		row := Row{
			Date:     s.StartTime.In(loc).Format(dateLayout),
			Start:    s.StartTime.In(loc).Format(timeLayout),
			End:      activeMarker,
			Employee: unknownEmployee,
			Location: unknownLocation,
			Hours:    shift.DurationAt(s, in.Now),
			Amount:   shift.EarningsAt(s, in.Now),
			Active:   s.IsActive(),
		}
		if s.EndTime != nil {
			row.End = s.EndTime.In(loc).Format(timeLayout)
		}
		if u, ok := in.Users[s.UserID]; ok {
			row.Employee = u.Name
		}
		if l, ok := in.Locations[s.LocationID]; ok {
			row.Location = l.Name
		}

		hoursCents += shift.Cents(row.Hours)
		amountCents += shift.Cents(row.Amount)
		r.Rows = append(r.Rows, row)
	}

	r.TotalHours = float64(hoursCents) / 100
	r.TotalAmount = float64(amountCents) / 100
	return r, nil
}

// Columns: заголовки таблицы; набор колонок зависит от вида отчёта.
func (r *Report) Columns() []string {
	switch r.Kind {
	case KindEmployee:
		return []string{"Дата", "Начало", "Окончание", "Локация", "Часов", "Сумма"}
	case KindLocation:
		return []string{"Дата", "Сотрудник", "Начало", "Окончание", "Часов", "Сумма"}
	default:
		return []string{"Дата", "Сотрудник", "Локация", "Начало", "Окончание", "Часов", "Сумма"}
	}
}

// textCells: текстовые колонки строки, без часов и суммы.
func (r *Report) textCells(row Row) []string {
	switch r.Kind {
	case KindEmployee:
		return []string{row.Date, row.Start, row.End, row.Location}
	case KindLocation:
		return []string{row.Date, row.Employee, row.Start, row.End}
	default:
		return []string{row.Date, row.Employee, row.Location, row.Start, row.End}
	}
}

// hoursColumn: индекс колонки «Часов»; «Сумма» идёт следом.
func (r *Report) hoursColumn() int {
	return len(r.Columns()) - 2
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// FileName: report_<kind>[_<subject>]_YYYY_MM.<ext>
func FileName(kind Kind, subject string, period Period, ext string) string {
	parts := []string{"report", string(kind)}
	if s := strings.Trim(unsafeFileChars.ReplaceAllString(subject, "_"), "_"); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, period.Start.Format("2006_01"))
	return strings.Join(parts, "_") + "." + strings.TrimPrefix(ext, ".")
}

func (r *Report) FileName(ext string) string {
	return FileName(r.Kind, r.Subject, r.Period, ext)
}
