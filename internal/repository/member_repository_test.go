package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/kanrihq/kanri-backend/internal/model"
)

const (
	usernameLockQuery = "SELECT id FROM members WHERE username=? AND is_active=1 LIMIT 1 FOR UPDATE"
	emailLockQuery    = "SELECT id FROM members WHERE email=? AND is_active=1 LIMIT 1 FOR UPDATE"
)

func newMockRepo(t *testing.T) (*MemberRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMemberRepo(db), mock
}

func TestMapDuplicate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{
			name: "email index violation",
			in:   errors.New("Error 1062 (23000): Duplicate entry 'alice@x.com' for key 'members.uq_members_email'"),
			want: ErrDuplicateEmail,
		},
		{
			name: "username index violation",
			in:   errors.New("Error 1062 (23000): Duplicate entry 'alice' for key 'members.uq_members_username'"),
			want: ErrDuplicateUsername,
		},
		{
			name: "1062 without index name falls back to username",
			in:   errors.New("Error 1062: Duplicate entry"),
			want: ErrDuplicateUsername,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, mapDuplicate(tt.in), tt.want)
		})
	}

	t.Run("non-duplicate errors pass through unchanged", func(t *testing.T) {
		t.Parallel()
		in := errors.New("Error 1205: Lock wait timeout exceeded")
		require.Same(t, in, mapDuplicate(in))
	})
}

// Create must probe username and email with locking reads inside the
// transaction; the FOR UPDATE gap locks are what serialize two concurrent
// registrations for the same value, so the queries are asserted verbatim.
func TestMemberRepo_Create(t *testing.T) {
	t.Parallel()

	member := model.Member{
		Username: "alice",
		Email:    "alice@x.com",
		RoleID:   2,
	}

	t.Run("inserts after both locking probes come back empty", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(usernameLockQuery)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(regexp.QuoteMeta(emailLockQuery)).
			WithArgs("alice@x.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO members")).
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectCommit()

		id, err := repo.Create(context.Background(), member)
		require.NoError(t, err)
		require.Equal(t, uint64(7), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("username already held by an active member", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(usernameLockQuery)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectRollback()

		_, err := repo.Create(context.Background(), member)
		require.ErrorIs(t, err, ErrDuplicateUsername)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email already held by an active member", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(usernameLockQuery)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(regexp.QuoteMeta(emailLockQuery)).
			WithArgs("alice@x.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectRollback()

		_, err := repo.Create(context.Background(), member)
		require.ErrorIs(t, err, ErrDuplicateEmail)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate key on insert surfaces as the matching sentinel", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(usernameLockQuery)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(regexp.QuoteMeta(emailLockQuery)).
			WithArgs("alice@x.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO members")).
			WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'alice@x.com' for key 'members.uq_members_email'"))
		mock.ExpectRollback()

		_, err := repo.Create(context.Background(), member)
		require.ErrorIs(t, err, ErrDuplicateEmail)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
