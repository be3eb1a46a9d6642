package auth

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/notify"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/tokens"
	"github.com/stretchr/testify/require"
)

var errOffline = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

func newMemoryAPI(autoConfirm bool) *backend.MemoryAPI {
	return backend.NewMemoryAPI(tokens.NewSigner("auth-test-secret-32-bytes-xxxxxxxx", "memory"), time.Hour, autoConfirm)
}

// flakyAPI fails selected calls of a MemoryAPI and counts what reaches it.
type flakyAPI struct {
	*backend.MemoryAPI

	mu         sync.Mutex
	grantErr   error
	signUpErr  error
	logoutErr  error
	profileErr error
	calls      map[string]int
}

func newFlakyAPI(autoConfirm bool) *flakyAPI {
	return &flakyAPI{MemoryAPI: newMemoryAPI(autoConfirm), calls: map[string]int{}}
}

func (f *flakyAPI) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *flakyAPI) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *flakyAPI) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *flakyAPI) PasswordGrant(ctx context.Context, email, password string) (*backend.Session, error) {
	f.hit("grant")
	if f.grantErr != nil {
		return nil, f.grantErr
	}
	return f.MemoryAPI.PasswordGrant(ctx, email, password)
}

func (f *flakyAPI) SignUp(ctx context.Context, req backend.SignUpRequest) (*backend.SignUpResult, error) {
	f.hit("signup")
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return f.MemoryAPI.SignUp(ctx, req)
}

func (f *flakyAPI) Logout(ctx context.Context, token string) error {
	f.hit("logout")
	if f.logoutErr != nil {
		return f.logoutErr
	}
	return f.MemoryAPI.Logout(ctx, token)
}

func (f *flakyAPI) SelectProfile(ctx context.Context, token, column, value string) (*models.Profile, error) {
	f.hit("profile")
	f.mu.Lock()
	err := f.profileErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.MemoryAPI.SelectProfile(ctx, token, column, value)
}

func (f *flakyAPI) setProfileErr(err error) {
	f.mu.Lock()
	f.profileErr = err
	f.mu.Unlock()
}

type harness struct {
	api     *flakyAPI
	client  *backend.Client
	manager *Manager
	service *Service
	facade  *Facade
	notes   *notify.Queue
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, newFlakyAPI(true), false)
}

func newHarnessWith(t *testing.T, api *flakyAPI, duplicateCheck bool) *harness {
	t.Helper()
	client := backend.NewClient(api, backend.Options{})
	m := NewManager(client, client, time.Second)
	svc := NewService(client, client, duplicateCheck)
	q := notify.NewQueue(0)
	h := &harness{api: api, client: client, manager: m, service: svc, facade: NewFacade(svc, m, q), notes: q}
	m.Start(context.Background())
	t.Cleanup(m.Close)
	waitReady(t, m)
	return h
}

func waitReady(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case <-m.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("manager never became ready")
	}
}

func adaRegistration() Registration {
	return Registration{
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		Password:   "secret1",
		Role:       RoleTeacher,
		StaffID:    "TCH1",
		Department: "Computer Science",
	}
}

func bobRegistration() Registration {
	return Registration{
		Name:         "Bob Student",
		Email:        "bob@example.com",
		Password:     "secret2",
		Role:         RoleStudent,
		MatricNumber: "CSC/2021/014",
		Level:        "200L",
	}
}

// seed registers a user directly against the API, bypassing the client.
func seed(t *testing.T, api *backend.MemoryAPI, reg Registration) *models.User {
	t.Helper()
	res, err := api.SignUp(context.Background(), backend.SignUpRequest{Email: reg.Email, Password: reg.Password, Data: reg.Metadata()})
	require.NoError(t, err)
	api.Confirm(reg.Email)
	return res.User
}
