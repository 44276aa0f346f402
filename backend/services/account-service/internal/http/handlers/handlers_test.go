package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"greenhouse/backend/services/account-service/internal/models"
	"greenhouse/backend/services/account-service/internal/password"
	"greenhouse/backend/services/account-service/internal/repository"
	"greenhouse/backend/services/account-service/internal/service"
)

type users struct{ rows map[string]*models.User }

func (u *users) Create(_ context.Context, user *models.User) error {
	if _, ok := u.rows[user.Username]; ok {
		return repository.ErrUsernameTaken
	}
	user.ID = int64(len(u.rows) + 1)
	u.rows[user.Username] = user
	return nil
}

func (u *users) GetByUsername(_ context.Context, name string) (*models.User, error) {
	if user, ok := u.rows[name]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

type devices struct {
	rows map[int64]*models.DeviceView
	err  error
}

func (d *devices) Get(_ context.Context, userID int64) (*models.DeviceView, error) {
	return d.rows[userID], d.err
}

func (d *devices) Upsert(_ context.Context, dev *models.UserDevice) error {
	if d.err != nil {
		return d.err
	}
	d.rows[dev.UserID] = &models.DeviceView{DeviceName: dev.DeviceName, DeviceUID: dev.DeviceUID, PlantID: dev.PlantID}
	return nil
}

func (d *devices) Delete(_ context.Context, userID int64) error {
	delete(d.rows, userID)
	return d.err
}

type plants struct{}

func (plants) List(context.Context) ([]models.PlantSummary, error) {
	return []models.PlantSummary{{ID: 2, Name: "Basil"}, {ID: 1, Name: "Tomato"}}, nil
}

func (plants) Get(_ context.Context, id int64) (*models.Plant, error) {
	if id == 1 {
		return &models.Plant{ID: 1, Name: "Tomato"}, nil
	}
	return nil, repository.ErrPlantNotFound
}

func do(h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLoginHandlers(t *testing.T) {
	accounts := service.NewAccountService(&users{rows: map[string]*models.User{}}, password.PlainHasher{}, zap.NewNop())
	register := NewRegisterHandler(accounts, zap.NewNop())
	login := NewLoginHandler(accounts, zap.NewNop())

	rec := do(register, http.MethodPost, "/api/register", `{"username":"alice","password":"tomato42"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"user":{"id":1,"username":"alice"}}`, rec.Body.String())

	rec = do(register, http.MethodPost, "/api/register", `{"username":"alice","password":"other"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(register, http.MethodPost, "/api/register", `{"username":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(register, http.MethodPost, "/api/register", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(login, http.MethodPost, "/api/login", `{"username":"alice","password":"tomato42"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"user":{"id":1,"username":"alice"}}`, rec.Body.String())

	rec = do(login, http.MethodPost, "/api/login", `{"username":"alice","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeviceHandler(t *testing.T) {
	store := &devices{rows: map[int64]*models.DeviceView{}}
	h := NewDeviceHandler(service.NewRegistryService(store, plants{}, zap.NewNop()), zap.NewNop())

	rec := do(h, http.MethodGet, "/api/user/device", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/api/user/device", "", UserIDHeader, "4")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = do(h, http.MethodPost, "/api/user/device", `{"deviceName":"Balcony","deviceUid":"gh-1","plantId":1}`, UserIDHeader, "4")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/user/device", "", UserIDHeader, "4")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"device_name":"Balcony","device_uid":"gh-1","plant_id":1,"plant_name":null}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/api/user/device", `{"deviceName":"Balcony"}`, UserIDHeader, "4")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodDelete, "/api/user/device", "", UserIDHeader, "4")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.rows)

	rec = do(h, http.MethodPut, "/api/user/device", "", UserIDHeader, "4")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDeviceHandlerUnknownPlant(t *testing.T) {
	store := &devices{rows: map[int64]*models.DeviceView{}, err: repository.ErrUnknownReference}
	h := NewDeviceHandler(service.NewRegistryService(store, plants{}, zap.NewNop()), zap.NewNop())

	rec := do(h, http.MethodPost, "/api/user/device", `{"deviceUid":"gh-1","plantId":99}`, UserIDHeader, "4")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlantHandlers(t *testing.T) {
	registry := service.NewRegistryService(&devices{}, plants{}, zap.NewNop())
	mux := http.NewServeMux()
	mux.Handle("/api/plants", NewPlantsHandler(registry, zap.NewNop()))
	mux.Handle("/api/plants/{id}", NewPlantHandler(registry, zap.NewNop()))

	rec := do(mux, http.MethodGet, "/api/plants", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":2,"name":"Basil"},{"id":1,"name":"Tomato"}]`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/api/plants/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Tomato"`)

	for _, id := range []string{"7", "abc"} {
		rec = do(mux, http.MethodGet, "/api/plants/"+id, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
		assert.JSONEq(t, `{"error":"Plant not found"}`, rec.Body.String())
	}
}

func TestHealthHandler(t *testing.T) {
	rec := do(NewHealthHandler(nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(NewHealthHandler(func(context.Context) error { return errors.New("db down") }), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
