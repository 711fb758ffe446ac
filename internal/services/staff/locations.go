package staff

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/services/geo"
	"github.com/evn/dstracker/internal/services/qr"
)

// сколько раз пробуем новый токен при совпадении
const qrAttempts = 3

type LocationStore interface {
	GetByID(ctx context.Context, id int64) (*models.WorkLocation, error)
	ListActive(ctx context.Context) ([]models.WorkLocation, error)
	QRCodeExists(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, l *models.WorkLocation) error
	Update(ctx context.Context, l *models.WorkLocation) error
	Deactivate(ctx context.Context, id int64) error
}

type LocationService struct {
	locations LocationStore
	newToken  func() string
}

func NewLocationService(locations LocationStore) *LocationService {
	return &LocationService{locations: locations, newToken: uuid.NewString}
}

func normalizeLocation(in models.LocationInput) (name, address string, lat, lon float64, err error) {
	name = strings.TrimSpace(in.Name)
	address = strings.TrimSpace(in.Address)
	if name == "" || address == "" || in.Latitude == nil || in.Longitude == nil {
		return "", "", 0, 0, models.Validation("name, address, latitude and longitude are required")
	}
	if err := geo.ValidateCoordinates(*in.Latitude, *in.Longitude); err != nil {
		return "", "", 0, 0, err
	}
	return name, address, *in.Latitude, *in.Longitude, nil
}

func (s *LocationService) CreateLocation(ctx context.Context, in models.LocationInput) (*models.WorkLocation, error) {
	name, address, lat, lon, err := normalizeLocation(in)
	if err != nil {
		return nil, err
	}

	var code string
	for i := 0; i < qrAttempts && code == ""; i++ {
		candidate := s.newToken()
		exists, err := s.locations.QRCodeExists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !exists {
			code = candidate
		}
	}
	if code == "" {
		return nil, models.ErrQRCodeTaken
	}

	loc := &models.WorkLocation{
		Name:      name,
		Address:   address,
		Latitude:  lat,
		Longitude: lon,
		QRCode:    code,
		Active:    true,
	}
	if err := s.locations.Insert(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// UpdateLocation сохраняет QR-код: напечатанные коды продолжают работать.
func (s *LocationService) UpdateLocation(ctx context.Context, id int64, in models.LocationInput) (*models.WorkLocation, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !loc.Active {
		return nil, models.ErrLocationNotFound
	}

	name, address, lat, lon, err := normalizeLocation(in)
	if err != nil {
		return nil, err
	}

	loc.Name = name
	loc.Address = address
	loc.Latitude = lat
	loc.Longitude = lon
	if err := s.locations.Update(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

func (s *LocationService) DeactivateLocation(ctx context.Context, id int64) error {
	return s.locations.Deactivate(ctx, id)
}

func (s *LocationService) ListLocations(ctx context.Context) ([]models.WorkLocation, error) {
	return s.locations.ListActive(ctx)
}

func (s *LocationService) GetLocation(ctx context.Context, id int64) (*models.WorkLocation, error) {
	return s.locations.GetByID(ctx, id)
}

// LocationQR: PNG для печати.
func (s *LocationService) LocationQR(ctx context.Context, id int64, size int) ([]byte, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !loc.Active {
		return nil, models.ErrLocationNotFound
	}
	return qr.Encode(loc.QRCode, size)
}
