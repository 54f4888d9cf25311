// Package service contains the session manager: the orchestration layer for
// login, token refresh, registration and password changes. It talks to the
// member store through narrow interfaces so the flows are testable without
// a database.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kanrihq/kanri-backend/internal/apperr"
	"github.com/kanrihq/kanri-backend/internal/model"
	"github.com/kanrihq/kanri-backend/internal/repository"
	"github.com/kanrihq/kanri-backend/internal/token"
	"github.com/kanrihq/kanri-backend/internal/utils"
)

// MemberStore is the persistence boundary the session manager depends on.
// *repository.MemberRepo satisfies it.
type MemberStore interface {
	FindByUsername(ctx context.Context, username string) (model.Member, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, m model.Member) (uint64, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

// RoleStore resolves role names to stored roles.
type RoleStore interface {
	FindByName(ctx context.Context, name string) (model.Role, error)
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput carries the profile fields accepted at registration. The
// password arrives raw and is hashed before anything is persisted.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    string
	Address  string
	Gender   string
	ImageURL string
}

// AuthService implements the authentication flows on top of the member
// store and the token codec.
type AuthService struct {
	members    MemberStore
	roles      RoleStore
	codec      *token.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
}

func NewAuthService(members MemberStore, roles RoleStore, codec *token.Codec, accessTTL, refreshTTL time.Duration, bcryptCost int) *AuthService {
	return &AuthService{
		members:    members,
		roles:      roles,
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		bcryptCost: bcryptCost,
	}
}

// Login verifies the credentials and issues an access/refresh token pair.
// Unknown username and wrong password collapse into the same
// InvalidCredentials error so the response cannot be used to enumerate
// accounts. The access token carries the member's role as a claim; the
// refresh token carries no extra claims.
func (s *AuthService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	m, err := s.members.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("find member: %w", err)
	}
	if !utils.VerifyPassword(m.PasswordHash, password) {
		return TokenPair{}, apperr.ErrInvalidCredentials
	}

	access, err := s.codec.Issue(m.Username, map[string]any{"role": m.RoleName}, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.Issue(m.Username, nil, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself is not rotated; it stays usable until its own expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", apperr.ErrMissingToken
	}

	subject := s.codec.Subject(refreshToken)
	if subject == "" {
		// Tampered, malformed or expired: the token never verified, so
		// there is no subject to look up.
		return "", apperr.ErrTokenInvalid
	}
	m, err := s.members.FindByUsername(ctx, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperr.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("find member: %w", err)
	}
	if !s.codec.IsValid(refreshToken, m.Username) {
		return "", apperr.ErrTokenInvalid
	}

	access, err := s.codec.Issue(m.Username, map[string]any{"role": m.RoleName}, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// Register creates a new member. Username and email must both be free; the
// target role is SUPPORT only when mode says so, otherwise CUSTOMER.
// Registration fails when the resolved role row is absent from the store.
// Duplicate-key errors from the transactional insert are translated back
// into the uniqueness errors so a lost check-then-write race surfaces the
// same way as a failed precheck.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, mode string) (model.Member, error) {
	taken, err := s.members.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return model.Member{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return model.Member{}, apperr.ErrUsernameExists
	}
	taken, err = s.members.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return model.Member{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return model.Member{}, apperr.ErrEmailExists
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.Member{}, fmt.Errorf("hash password: %w", err)
	}

	roleName := model.RoleCustomer
	if strings.EqualFold(mode, model.RoleSupport) {
		roleName = model.RoleSupport
	}
	role, err := s.roles.FindByName(ctx, roleName)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Member{}, apperr.ErrRoleNotFound
	}
	if err != nil {
		return model.Member{}, fmt.Errorf("find role: %w", err)
	}

	m := model.Member{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Address:      in.Address,
		Gender:       in.Gender,
		ImageURL:     in.ImageURL,
		RoleID:       role.ID,
		RoleName:     role.Name,
		IsActive:     true,
	}
	id, err := s.members.Create(ctx, m)
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		return model.Member{}, apperr.ErrUsernameExists
	case errors.Is(err, repository.ErrDuplicateEmail):
		return model.Member{}, apperr.ErrEmailExists
	case err != nil:
		return model.Member{}, fmt.Errorf("create member: %w", err)
	}
	m.ID = id
	return m, nil
}

// ChangePassword verifies the old password and persists the hash of the
// new one. The "same as old" check compares against the stored hash, never
// plaintext.
func (s *AuthService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	m, err := s.members.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrMemberNotFound
	}
	if err != nil {
		return fmt.Errorf("find member: %w", err)
	}
	if !utils.VerifyPassword(m.PasswordHash, oldPassword) {
		return apperr.ErrOldPasswordMismatch
	}
	if utils.VerifyPassword(m.PasswordHash, newPassword) {
		return apperr.ErrNewPasswordSameAsOld
	}

	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.members.UpdatePassword(ctx, username, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
