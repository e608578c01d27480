package user

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type stubRepo struct {
	mu   sync.Mutex
	byID map[string]*User
}

func newStubRepo() *stubRepo { return &stubRepo{byID: map[string]*User{}} }

func (r *stubRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.byID {
		if ex.Email == u.Email {
			return ErrAlreadyExist
		}
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *stubRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *stubRepo) List(_ context.Context, limit, offset int) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []User{}
	for _, u := range r.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (r *stubRepo) SetFlags(_ context.Context, id string, isAdmin, isActive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.IsAdmin, u.IsActive = isAdmin, isActive
	return nil
}

func ptr(b bool) *bool { return &b }

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(newStubRepo())
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterRequest{Email: "  Asha@Example.COM ", Password: "s3cret-pass", Name: "Asha"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "asha@example.com" || u.IsAdmin || !u.IsActive {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == "s3cret-pass" {
		t.Fatalf("password stored in clear")
	}

	if _, err := svc.Register(ctx, RegisterRequest{Email: "asha@example.com", Password: "other-pass"}); !errors.Is(err, ErrAlreadyExist) {
		t.Fatalf("duplicate email err=%v", err)
	}

	if _, err := svc.Authenticate(ctx, "ASHA@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "asha@example.com", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password err=%v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown email err=%v", err)
	}
}

func TestAuthenticate_Inactive(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)
	ctx := context.Background()

	u, _ := svc.Register(ctx, RegisterRequest{Email: "ravi@example.com", Password: "s3cret-pass"})
	_ = repo.SetFlags(ctx, u.ID, false, false)

	if _, err := svc.Authenticate(ctx, "ravi@example.com", "s3cret-pass"); !errors.Is(err, ErrInactive) {
		t.Fatalf("err=%v, want ErrInactive", err)
	}
}

func TestUpdateFlags(t *testing.T) {
	svc := NewService(newStubRepo())
	ctx := context.Background()

	adm, _, err := svc.EnsureAdmin(ctx, "admin@example.com", "admin-pass", "Admin")
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	cust, _ := svc.Register(ctx, RegisterRequest{Email: "c@example.com", Password: "cust-pass"})

	got, err := svc.UpdateFlags(ctx, adm.ID, cust.ID, FlagsRequest{IsAdmin: ptr(true)})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if !got.IsAdmin || !got.IsActive {
		t.Fatalf("promote result: %+v", got)
	}

	if _, err := svc.UpdateFlags(ctx, adm.ID, adm.ID, FlagsRequest{IsAdmin: ptr(false)}); !errors.Is(err, ErrSelfDemotion) {
		t.Fatalf("self demotion err=%v", err)
	}
	if _, err := svc.UpdateFlags(ctx, adm.ID, adm.ID, FlagsRequest{IsActive: ptr(false)}); !errors.Is(err, ErrSelfDemotion) {
		t.Fatalf("self deactivation err=%v", err)
	}
	if _, err := svc.UpdateFlags(ctx, adm.ID, "missing", FlagsRequest{IsActive: ptr(false)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user err=%v", err)
	}
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	svc := NewService(newStubRepo())
	ctx := context.Background()

	first, created, err := svc.EnsureAdmin(ctx, "admin@example.com", "admin-pass", "Admin")
	if err != nil || !created || !first.IsAdmin {
		t.Fatalf("first run: created=%v err=%v user=%+v", created, err, first)
	}
	second, created, err := svc.EnsureAdmin(ctx, "Admin@Example.com", "ignored", "Admin")
	if err != nil || created {
		t.Fatalf("second run: created=%v err=%v", created, err)
	}
	if second.ID != first.ID {
		t.Fatalf("second run made a new account")
	}
	if _, err := svc.Authenticate(ctx, "admin@example.com", "admin-pass"); err != nil {
		t.Fatalf("original password no longer works: %v", err)
	}
}
