package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/jwt"
	rbac "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/rbac"
	"gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/middleware"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testEnv struct {
	router *gin.Engine
	jwt    *jwt.Service
	auth   *middleware.AuthMiddleware
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)
	jwtService := jwt.NewService(api_models.TokenConfig{SecretKey: "secret", AccessTokenDuration: time.Hour, Issuer: "flood-api"})
	return &testEnv{
		router: gin.New(),
		jwt:    jwtService,
		auth:   middleware.NewAuthMiddleware(jwtService, rbac.NewService(), nil, middleware.DefaultConfig()),
	}
}

func (e *testEnv) token(t *testing.T, userID, role string) string {
	t.Helper()
	pair, err := e.jwt.GenerateToken(userID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return pair.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectMessage(t *testing.T, body map[string]interface{}, want string) {
	t.Helper()
	if body["message"] != want {
		t.Fatalf("expected message %q, got %v", want, body["message"])
	}
}

type memoryDevices struct {
	mu      sync.Mutex
	devices []fldmodels.Device
	err     error
}

func (m *memoryDevices) Create(_ context.Context, d *fldmodels.Device) (*fldmodels.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.devices {
		if existing.ThingSpeakChannelID == d.ThingSpeakChannelID {
			return nil, interfaces.ErrDuplicate
		}
	}
	d.ID = primitive.NewObjectID()
	m.devices = append(m.devices, *d)
	return d, nil
}

func (m *memoryDevices) GetByID(_ context.Context, id string) (*fldmodels.Device, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, interfaces.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.ID == oid {
			c := d
			return &c, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *memoryDevices) List(context.Context) ([]fldmodels.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]fldmodels.Device(nil), m.devices...), nil
}

func (m *memoryDevices) GetPrimary(context.Context) (*fldmodels.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.devices) == 0 {
		return nil, interfaces.ErrNotFound
	}
	c := m.devices[0]
	return &c, nil
}

func (m *memoryDevices) Update(_ context.Context, d *fldmodels.Device) (*fldmodels.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.devices {
		if m.devices[i].ID == d.ID {
			m.devices[i] = *d
			c := *d
			return &c, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *memoryDevices) Delete(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return interfaces.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.devices {
		if m.devices[i].ID == oid {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (m *memoryDevices) EnsureIndexes(context.Context) error { return nil }

func floatPtr(f float64) *float64 { return &f }
