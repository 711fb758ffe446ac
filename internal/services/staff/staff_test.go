package staff

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/services/auth"
	"github.com/evn/dstracker/internal/services/qr"
)

type memUsers struct {
	rows map[string]*models.User
}

func newMemUsers() *memUsers { return &memUsers{rows: map[string]*models.User{}} }

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.rows[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ListActive(context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range m.rows {
		if u.Active {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) EmailExists(_ context.Context, email string) (bool, error) {
	for _, u := range m.rows {
		if u.Active && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) Insert(_ context.Context, u *models.User) error {
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	if _, ok := m.rows[u.ID]; !ok {
		return models.ErrUserNotFound
	}
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memUsers) SetPassword(_ context.Context, id, hash string) error {
	u, ok := m.rows[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) Deactivate(_ context.Context, id string) error {
	u, ok := m.rows[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.Active = false
	return nil
}

func rate(v float64) *float64 { return &v }

func TestCreateEmployee(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	svc := NewEmployeeService(users)

	created, err := svc.CreateEmployee(ctx, models.EmployeeInput{
		Email: " ivan@example.com ", Name: "Иван", HourlyRate: rate(250),
	})
	require.NoError(t, err)
	assert.Len(t, created.User.ID, 36)
	assert.Equal(t, "ivan@example.com", created.User.Email)
	assert.True(t, created.User.Active)
	assert.True(t, auth.CheckPasswordHash(created.TempPassword, users.rows[created.User.ID].PasswordHash))

	_, err = svc.CreateEmployee(ctx, models.EmployeeInput{Email: "IVAN@example.com", Name: "Дубль"})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
	assert.Len(t, users.rows, 1)
}

func TestCreateEmployeeValidation(t *testing.T) {
	svc := NewEmployeeService(newMemUsers())
	ctx := context.Background()

	cases := []models.EmployeeInput{
		{Email: "", Name: "x"},
		{Email: "a@b.c", Name: "  "},
		{Email: "not-an-email", Name: "x"},
		{Email: "a@b.c", Name: "x", HourlyRate: rate(-1)},
		{Email: "a@b.c", Name: "x", HourlyRate: rate(math.NaN())},
		{Email: "a@b.c", Name: "x", HourlyRate: rate(math.Inf(1))},
	}
	for _, in := range cases {
		_, err := svc.CreateEmployee(ctx, in)
		assert.ErrorIs(t, err, models.ErrValidation, "%+v", in)
	}
}

func TestMissingRateDefaultsToZero(t *testing.T) {
	svc := NewEmployeeService(newMemUsers())
	created, err := svc.CreateEmployee(context.Background(), models.EmployeeInput{Email: "a@b.c", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, created.User.HourlyRate)
}

func TestEmailReusableAfterDeactivation(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	svc := NewEmployeeService(users)

	first, err := svc.CreateEmployee(ctx, models.EmployeeInput{Email: "a@b.c", Name: "A"})
	require.NoError(t, err)
	require.NoError(t, svc.DeactivateEmployee(ctx, first.User.ID))

	// строка осталась, поменялся только флаг
	old, err := svc.GetEmployee(ctx, first.User.ID)
	require.NoError(t, err)
	assert.False(t, old.Active)
	assert.Equal(t, "A", old.Name)

	_, err = svc.CreateEmployee(ctx, models.EmployeeInput{Email: "a@b.c", Name: "A2"})
	assert.NoError(t, err)

	list, err := svc.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateEmployee(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	svc := NewEmployeeService(users)

	a, err := svc.CreateEmployee(ctx, models.EmployeeInput{Email: "a@b.c", Name: "A", HourlyRate: rate(10)})
	require.NoError(t, err)
	_, err = svc.CreateEmployee(ctx, models.EmployeeInput{Email: "b@b.c", Name: "B"})
	require.NoError(t, err)

	updated, err := svc.UpdateEmployee(ctx, a.User.ID, models.EmployeeInput{Email: "a@b.c", Name: "A!", IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, "A!", updated.Name)
	assert.Equal(t, 10.0, updated.HourlyRate)
	assert.True(t, updated.IsAdmin)

	_, err = svc.UpdateEmployee(ctx, a.User.ID, models.EmployeeInput{Email: "B@b.c", Name: "A"})
	assert.ErrorIs(t, err, models.ErrEmailTaken)

	_, err = svc.UpdateEmployee(ctx, "missing", models.EmployeeInput{Email: "x@b.c", Name: "X"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	svc := NewEmployeeService(users)

	a, err := svc.CreateEmployee(ctx, models.EmployeeInput{Email: "a@b.c", Name: "A"})
	require.NoError(t, err)

	pw, err := svc.ResetPassword(ctx, a.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.TempPassword, pw)
	assert.True(t, auth.CheckPasswordHash(pw, users.rows[a.User.ID].PasswordHash))
}

type memLocations struct {
	nextID int64
	rows   map[int64]*models.WorkLocation
}

func newMemLocations() *memLocations { return &memLocations{rows: map[int64]*models.WorkLocation{}} }

func (m *memLocations) GetByID(_ context.Context, id int64) (*models.WorkLocation, error) {
	l, ok := m.rows[id]
	if !ok {
		return nil, models.ErrLocationNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memLocations) ListActive(context.Context) ([]models.WorkLocation, error) {
	var out []models.WorkLocation
	for _, l := range m.rows {
		if l.Active {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memLocations) QRCodeExists(_ context.Context, code string) (bool, error) {
	for _, l := range m.rows {
		if l.Active && l.QRCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLocations) Insert(_ context.Context, l *models.WorkLocation) error {
	m.nextID++
	l.ID = m.nextID
	cp := *l
	m.rows[l.ID] = &cp
	return nil
}

func (m *memLocations) Update(_ context.Context, l *models.WorkLocation) error {
	cp := *l
	m.rows[l.ID] = &cp
	return nil
}

func (m *memLocations) Deactivate(_ context.Context, id int64) error {
	l, ok := m.rows[id]
	if !ok {
		return models.ErrLocationNotFound
	}
	l.Active = false
	return nil
}

func coord(v float64) *float64 { return &v }

func TestCreateLocation(t *testing.T) {
	ctx := context.Background()
	store := newMemLocations()
	svc := NewLocationService(store)

	loc, err := svc.CreateLocation(ctx, models.LocationInput{
		Name: "Цех", Address: "ул. Заводская, 1", Latitude: coord(55.75), Longitude: coord(37.61),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), loc.ID)
	assert.Len(t, loc.QRCode, 36)

	_, err = svc.CreateLocation(ctx, models.LocationInput{Name: "X", Address: "Y", Latitude: coord(91), Longitude: coord(0)})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.CreateLocation(ctx, models.LocationInput{Name: "X", Address: "Y", Latitude: coord(1)})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateLocationRetriesTakenToken(t *testing.T) {
	ctx := context.Background()
	store := newMemLocations()
	store.rows[1] = &models.WorkLocation{ID: 1, QRCode: "taken", Active: true}
	store.nextID = 1

	tokens := []string{"taken", "fresh"}
	svc := NewLocationService(store)
	svc.newToken = func() string {
		tok := tokens[0]
		tokens = tokens[1:]
		return tok
	}

	loc, err := svc.CreateLocation(ctx, models.LocationInput{Name: "A", Address: "B", Latitude: coord(0), Longitude: coord(0)})
	require.NoError(t, err)
	assert.Equal(t, "fresh", loc.QRCode)

	svc.newToken = func() string { return "taken" }
	_, err = svc.CreateLocation(ctx, models.LocationInput{Name: "A", Address: "B", Latitude: coord(0), Longitude: coord(0)})
	assert.ErrorIs(t, err, models.ErrQRCodeTaken)
}

func TestUpdateLocationKeepsQRCode(t *testing.T) {
	ctx := context.Background()
	svc := NewLocationService(newMemLocations())

	loc, err := svc.CreateLocation(ctx, models.LocationInput{Name: "A", Address: "B", Latitude: coord(1), Longitude: coord(2)})
	require.NoError(t, err)

	updated, err := svc.UpdateLocation(ctx, loc.ID, models.LocationInput{Name: "A2", Address: "B2", Latitude: coord(3), Longitude: coord(4)})
	require.NoError(t, err)
	assert.Equal(t, loc.QRCode, updated.QRCode)
	assert.Equal(t, 3.0, updated.Latitude)
}

func TestDeactivateLocationAndQR(t *testing.T) {
	ctx := context.Background()
	svc := NewLocationService(newMemLocations())

	loc, err := svc.CreateLocation(ctx, models.LocationInput{Name: "A", Address: "B", Latitude: coord(1), Longitude: coord(2)})
	require.NoError(t, err)

	png, err := svc.LocationQR(ctx, loc.ID, 256)
	require.NoError(t, err)
	text, err := qr.DecodeReader(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, loc.QRCode, text)

	require.NoError(t, svc.DeactivateLocation(ctx, loc.ID))

	got, err := svc.GetLocation(ctx, loc.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, "A", got.Name)

	_, err = svc.LocationQR(ctx, loc.ID, 256)
	assert.ErrorIs(t, err, models.ErrLocationNotFound)

	list, err := svc.ListLocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
