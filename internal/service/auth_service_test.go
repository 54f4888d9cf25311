package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kanrihq/kanri-backend/internal/apperr"
	"github.com/kanrihq/kanri-backend/internal/model"
	"github.com/kanrihq/kanri-backend/internal/repository"
	"github.com/kanrihq/kanri-backend/internal/token"
	"github.com/kanrihq/kanri-backend/internal/utils"
)

// fakeMemberStore is an in-memory MemberStore. Create enforces uniqueness
// under a lock the way the database's transaction does, so concurrent
// registrations race realistically.
type fakeMemberStore struct {
	mu              sync.Mutex
	byUsername      map[string]model.Member
	nextID          uint64
	passwordUpdates int
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{byUsername: map[string]model.Member{}}
}

func (f *fakeMemberStore) FindByUsername(_ context.Context, username string) (model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byUsername[username]
	if !ok || !m.IsActive {
		return model.Member{}, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeMemberStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byUsername[username]
	return ok && m.IsActive, nil
}

func (f *fakeMemberStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.byUsername {
		if m.IsActive && m.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMemberStore) Create(_ context.Context, m model.Member) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byUsername[m.Username]; ok && existing.IsActive {
		return 0, repository.ErrDuplicateUsername
	}
	for _, other := range f.byUsername {
		if other.IsActive && other.Email == m.Email {
			return 0, repository.ErrDuplicateEmail
		}
	}
	f.nextID++
	m.ID = f.nextID
	f.byUsername[m.Username] = m
	return m.ID, nil
}

func (f *fakeMemberStore) UpdatePassword(_ context.Context, username, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byUsername[username]
	if !ok || !m.IsActive {
		return repository.ErrNotFound
	}
	m.PasswordHash = passwordHash
	f.byUsername[username] = m
	f.passwordUpdates++
	return nil
}

type fakeRoleStore struct {
	roles map[string]model.Role
}

func newFakeRoleStore(names ...string) *fakeRoleStore {
	rs := &fakeRoleStore{roles: map[string]model.Role{}}
	for i, n := range names {
		rs.roles[n] = model.Role{ID: uint8(i + 1), Name: n}
	}
	return rs
}

func (f *fakeRoleStore) FindByName(_ context.Context, name string) (model.Role, error) {
	r, ok := f.roles[name]
	if !ok {
		return model.Role{}, repository.ErrNotFound
	}
	return r, nil
}

func newTestService(members *fakeMemberStore, roles *fakeRoleStore) (*AuthService, *token.Codec) {
	codec := token.NewCodec("0123456789abcdef0123456789abcdef")
	return NewAuthService(members, roles, codec, 15*time.Minute, 7*24*time.Hour, bcrypt.MinCost), codec
}

func seedMember(t *testing.T, store *fakeMemberStore, username, email, password, role string) {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	_, err = store.Create(context.Background(), model.Member{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RoleName:     role,
		IsActive:     true,
	})
	require.NoError(t, err)
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()
	store := newFakeMemberStore()
	seedMember(t, store, "alice", "alice@x.com", "pass123", model.RoleCustomer)
	svc, codec := newTestService(store, newFakeRoleStore(model.RoleCustomer))

	pair, err := svc.Login(context.Background(), "alice", "pass123")
	require.NoError(t, err)

	require.Equal(t, "alice", codec.Subject(pair.AccessToken))
	require.True(t, codec.IsValid(pair.AccessToken, "alice"))
	role, ok := codec.Claim(pair.AccessToken, "role")
	require.True(t, ok)
	require.Equal(t, model.RoleCustomer, role)

	// Refresh token carries the subject but no role claim.
	require.Equal(t, "alice", codec.Subject(pair.RefreshToken))
	_, ok = codec.Claim(pair.RefreshToken, "role")
	require.False(t, ok)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()
	store := newFakeMemberStore()
	seedMember(t, store, "alice", "alice@x.com", "pass123", model.RoleCustomer)
	svc, _ := newTestService(store, newFakeRoleStore(model.RoleCustomer))

	_, errWrongPass := svc.Login(context.Background(), "alice", "nope")
	_, errNoUser := svc.Login(context.Background(), "nobody", "pass123")

	require.ErrorIs(t, errWrongPass, apperr.ErrInvalidCredentials)
	require.ErrorIs(t, errNoUser, apperr.ErrInvalidCredentials)
	require.Equal(t, errWrongPass.Error(), errNoUser.Error())
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	store := newFakeMemberStore()
	seedMember(t, store, "alice", "alice@x.com", "pass123", model.RoleCustomer)
	svc, codec := newTestService(store, newFakeRoleStore(model.RoleCustomer))

	pair, err := svc.Login(context.Background(), "alice", "pass123")
	require.NoError(t, err)

	t.Run("valid refresh token mints access token", func(t *testing.T) {
		access, err := svc.Refresh(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, "alice", codec.Subject(access))
		require.True(t, codec.IsValid(access, "alice"))
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := svc.Refresh(context.Background(), "")
		require.ErrorIs(t, err, apperr.ErrMissingToken)
		_, err = svc.Refresh(context.Background(), "   ")
		require.ErrorIs(t, err, apperr.ErrMissingToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Refresh(context.Background(), "garbage.token.value")
		require.ErrorIs(t, err, apperr.ErrTokenInvalid)
	})

	t.Run("token for unknown member", func(t *testing.T) {
		ghost, err := codec.Issue("ghost", nil, time.Hour)
		require.NoError(t, err)
		_, err = svc.Refresh(context.Background(), ghost)
		require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := codec.Issue("alice", nil, -time.Minute)
		require.NoError(t, err)
		_, err = svc.Refresh(context.Background(), expired)
		require.ErrorIs(t, err, apperr.ErrTokenInvalid)
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()

	input := func(username, email string) RegisterInput {
		return RegisterInput{
			Username: username,
			Email:    email,
			Password: "pass123",
			FullName: "Some One",
		}
	}

	t.Run("defaults to customer role", func(t *testing.T) {
		t.Parallel()
		store := newFakeMemberStore()
		svc, _ := newTestService(store, newFakeRoleStore(model.RoleCustomer, model.RoleSupport))

		m, err := svc.Register(context.Background(), input("alice", "alice@x.com"), "")
		require.NoError(t, err)
		require.Equal(t, model.RoleCustomer, m.RoleName)
		require.NotZero(t, m.ID)
		require.True(t, m.IsActive)
		require.NotEqual(t, "pass123", m.PasswordHash)
	})

	t.Run("support mode selects support role", func(t *testing.T) {
		t.Parallel()
		store := newFakeMemberStore()
		svc, _ := newTestService(store, newFakeRoleStore(model.RoleCustomer, model.RoleSupport))

		m, err := svc.Register(context.Background(), input("bob", "bob@x.com"), "support")
		require.NoError(t, err)
		require.Equal(t, model.RoleSupport, m.RoleName)
	})

	t.Run("duplicate username", func(t *testing.T) {
		t.Parallel()
		store := newFakeMemberStore()
		svc, _ := newTestService(store, newFakeRoleStore(model.RoleCustomer))

		_, err := svc.Register(context.Background(), input("alice", "alice@x.com"), "")
		require.NoError(t, err)
		_, err = svc.Register(context.Background(), input("alice", "other@x.com"), "")
		require.ErrorIs(t, err, apperr.ErrUsernameExists)
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		store := newFakeMemberStore()
		svc, _ := newTestService(store, newFakeRoleStore(model.RoleCustomer))

		_, err := svc.Register(context.Background(), input("alice", "alice@x.com"), "")
		require.NoError(t, err)
		_, err = svc.Register(context.Background(), input("alice2", "alice@x.com"), "")
		require.ErrorIs(t, err, apperr.ErrEmailExists)
	})

	t.Run("role row absent", func(t *testing.T) {
		t.Parallel()
		store := newFakeMemberStore()
		svc, _ := newTestService(store, newFakeRoleStore()) // no roles seeded

		_, err := svc.Register(context.Background(), input("alice", "alice@x.com"), "")
		require.ErrorIs(t, err, apperr.ErrRoleNotFound)
	})
}

func TestRegister_ConcurrentSameUsername(t *testing.T) {
	t.Parallel()
	store := newFakeMemberStore()
	svc, _ := newTestService(store, newFakeRoleStore(model.RoleCustomer))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), RegisterInput{
				Username: "alice",
				Email:    "alice+" + string(rune('a'+i)) + "@x.com",
				Password: "pass123",
			}, "")
		}(i)
	}
	wg.Wait()

	var okCount, dupCount int
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, apperr.ErrUsernameExists):
			dupCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, okCount)
	require.Equal(t, 1, dupCount)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*AuthService, *fakeMemberStore) {
		store := newFakeMemberStore()
		seedMember(t, store, "alice", "alice@x.com", "oldpass", model.RoleCustomer)
		svc, _ := newTestService(store, newFakeRoleStore(model.RoleCustomer))
		return svc, store
	}

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		svc, store := setup(t)

		require.NoError(t, svc.ChangePassword(context.Background(), "alice", "oldpass", "newpass"))
		require.Equal(t, 1, store.passwordUpdates)

		m, err := store.FindByUsername(context.Background(), "alice")
		require.NoError(t, err)
		require.True(t, utils.VerifyPassword(m.PasswordHash, "newpass"))
	})

	t.Run("unknown member", func(t *testing.T) {
		t.Parallel()
		svc, _ := setup(t)
		err := svc.ChangePassword(context.Background(), "nobody", "oldpass", "newpass")
		require.ErrorIs(t, err, apperr.ErrMemberNotFound)
	})

	t.Run("old password mismatch", func(t *testing.T) {
		t.Parallel()
		svc, store := setup(t)
		err := svc.ChangePassword(context.Background(), "alice", "wrong", "newpass")
		require.ErrorIs(t, err, apperr.ErrOldPasswordMismatch)
		require.Zero(t, store.passwordUpdates)
	})

	t.Run("new password same as old", func(t *testing.T) {
		t.Parallel()
		svc, store := setup(t)
		err := svc.ChangePassword(context.Background(), "alice", "oldpass", "oldpass")
		require.ErrorIs(t, err, apperr.ErrNewPasswordSameAsOld)
		require.Zero(t, store.passwordUpdates, "no store write on precondition failure")
	})
}
