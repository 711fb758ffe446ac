package report

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/evn/dstracker/internal/models"
)

type SessionSource interface {
	ListForPeriod(ctx context.Context, f models.SessionFilter) ([]models.WorkSession, error)
}

type UserSource interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
}

type LocationSource interface {
	GetByID(ctx context.Context, id int64) (*models.WorkLocation, error)
	ListActive(ctx context.Context) ([]models.WorkLocation, error)
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", models.Validation("unknown report format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

type Service struct {
	sessions  SessionSource
	users     UserSource
	locations LocationSource
	tz        *time.Location
	dir       string
	now       func() time.Time
}

// NewService: dir задаёт каталог архива отчётов, пустой отключает сохранение.
func NewService(sessions SessionSource, users UserSource, locations LocationSource, tz *time.Location, dir string) *Service {
	if tz == nil {
		tz = time.UTC
	}
	return &Service{
		sessions:  sessions,
		users:     users,
		locations: locations,
		tz:        tz,
		dir:       dir,
		now:       time.Now,
	}
}

// Generate строит отчёт за месяц. subject это ID сотрудника или локации.
func (s *Service) Generate(ctx context.Context, kind Kind, subject, month string) (*Report, error) {
	now := s.now()
	period, err := ParseMonth(month, now, s.tz)
	if err != nil {
		return nil, err
	}

	in := Input{Kind: kind, Period: period, Now: now}
	filter := period.Filter()

	switch kind {
	case KindEmployee:
		if subject == "" {
			return nil, models.Validation("subject (employee id) is required")
		}
		if in.Employee, err = s.users.GetByID(ctx, subject); err != nil {
			return nil, err
		}
		filter.UserID = subject
	case KindLocation:
		id, perr := strconv.ParseInt(subject, 10, 64)
		if perr != nil {
			return nil, models.Validation("subject must be a location id")
		}
		if in.Location, err = s.locations.GetByID(ctx, id); err != nil {
			return nil, err
		}
		filter.LocationID = id
	case KindGeneral:
	default:
		return nil, models.Validation("unknown report kind %q", kind)
	}

	if in.Sessions, err = s.sessions.ListForPeriod(ctx, filter); err != nil {
		return nil, err
	}
	if in.Users, err = s.userNames(ctx, in.Sessions); err != nil {
		return nil, err
	}
	if in.Locations, err = s.locationNames(ctx, in.Sessions); err != nil {
		return nil, err
	}

	return Build(in)
}

// userNames добирает по ID и уволенных: их смены остаются в отчётах.
func (s *Service) userNames(ctx context.Context, sessions []models.WorkSession) (map[string]models.User, error) {
	active, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.User, len(active))
	for _, u := range active {
		out[u.ID] = u
	}
	for _, sess := range sessions {
		if _, ok := out[sess.UserID]; ok {
			continue
		}
		u, err := s.users.GetByID(ctx, sess.UserID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[u.ID] = *u
	}
	return out, nil
}

func (s *Service) locationNames(ctx context.Context, sessions []models.WorkSession) (map[int64]models.WorkLocation, error) {
	active, err := s.locations.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]models.WorkLocation, len(active))
	for _, l := range active {
		out[l.ID] = l
	}
	for _, sess := range sessions {
		if _, ok := out[sess.LocationID]; ok {
			continue
		}
		l, err := s.locations.GetByID(ctx, sess.LocationID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[l.ID] = *l
	}
	return out, nil
}

// Render сериализует отчёт и кладёт копию в архив.
func (s *Service) Render(r *Report, format Format) (name string, data []byte, err error) {
	var buf bytes.Buffer
	switch format {
	case FormatXLSX:
		err = WriteXLSX(&buf, r)
	default:
		format = FormatCSV
		err = WriteCSV(&buf, r)
	}
	if err != nil {
		return "", nil, err
	}

	name = r.FileName(string(format))
	if s.dir != "" {
		if werr := os.WriteFile(filepath.Join(s.dir, name), buf.Bytes(), 0o644); werr != nil {
			log.Printf("⚠️ report archive %s: %v", name, werr)
		}
	}
	return name, buf.Bytes(), nil
}
