package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	jwt "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/jwt"
	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]auth_models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[primitive.ObjectID]auth_models.User{}}
}

func (m *memoryUsers) Create(_ context.Context, u *auth_models.User) (*auth_models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return nil, interfaces.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	m.users[u.ID] = *u
	return u, nil
}

func (m *memoryUsers) find(match func(auth_models.User) bool) (*auth_models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			c := u
			return &c, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*auth_models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, interfaces.ErrInvalidID
	}
	return m.find(func(u auth_models.User) bool { return u.ID == oid })
}

func (m *memoryUsers) GetByUsername(_ context.Context, name string) (*auth_models.User, error) {
	return m.find(func(u auth_models.User) bool { return u.Username == name })
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*auth_models.User, error) {
	return m.find(func(u auth_models.User) bool { return u.Email == email })
}

func (m *memoryUsers) GetAll(context.Context) ([]*auth_models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*auth_models.User, 0, len(m.users))
	for _, u := range m.users {
		c := u
		out = append(out, &c)
	}
	return out, nil
}

func (m *memoryUsers) GetByRole(_ context.Context, role string) ([]*auth_models.User, error) {
	all, _ := m.GetAll(context.Background())
	out := []*auth_models.User{}
	for _, u := range all {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryUsers) Update(_ context.Context, u *auth_models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return interfaces.ErrNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return interfaces.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[oid]; !ok {
		return interfaces.ErrNotFound
	}
	delete(m.users, oid)
	return nil
}

func (m *memoryUsers) EnsureIndexes(context.Context) error { return nil }

type sentMail struct {
	to, subject, html, text string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (r *recordingMailer) Send(_ context.Context, to, subject, html, text string) error {
	r.sent = append(r.sent, sentMail{to, subject, html, text})
	return r.err
}

// code extracts the OTP from the plain-text body
func (r *recordingMailer) code() string {
	if len(r.sent) == 0 {
		return ""
	}
	return strings.TrimPrefix(r.sent[len(r.sent)-1].text, "Your OTP code is: ")
}

var errBoom = errors.New("boom")

func newTestAuthService(users *memoryUsers, mailer Mailer) *AuthService {
	jwtService := jwt.NewService(api_models.TokenConfig{SecretKey: "secret", AccessTokenDuration: time.Hour, Issuer: "flood-api"})
	s := NewAuthService(users, jwtService, mailer, 6, time.Hour)
	s.hashCost = bcrypt.MinCost
	return s
}
