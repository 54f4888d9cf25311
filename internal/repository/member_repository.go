package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kanrihq/kanri-backend/internal/model"
)

// MemberRepo provides member persistence on the `members` table. Lookups
// only consider active rows; deletion is a soft delete.
type MemberRepo struct{ DB *sql.DB }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{DB: db} }

const memberColumns = `m.id, m.username, m.email, m.password_hash, m.full_name,
	m.phone, m.address, m.gender, m.image_url, m.role_id, r.name,
	m.is_active, m.created_at, m.updated_at, m.deleted_at`

func scanMember(row *sql.Row) (model.Member, error) {
	var (
		m         model.Member
		deletedAt sql.NullTime
	)
	err := row.Scan(&m.ID, &m.Username, &m.Email, &m.PasswordHash, &m.FullName,
		&m.Phone, &m.Address, &m.Gender, &m.ImageURL, &m.RoleID, &m.RoleName,
		&m.IsActive, &m.CreatedAt, &m.UpdatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return model.Member{}, ErrNotFound
	}
	if err != nil {
		return model.Member{}, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	return m, nil
}

// FindByUsername fetches an active member with its role name.
func (r *MemberRepo) FindByUsername(ctx context.Context, username string) (model.Member, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members m
		 JOIN roles r ON r.id = m.role_id
		 WHERE m.username=? AND m.is_active=1 LIMIT 1`, username)
	return scanMember(row)
}

// FindByID fetches an active member by id.
func (r *MemberRepo) FindByID(ctx context.Context, id uint64) (model.Member, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members m
		 JOIN roles r ON r.id = m.role_id
		 WHERE m.id=? AND m.is_active=1 LIMIT 1`, id)
	return scanMember(row)
}

// ExistsByUsername reports whether an active member holds the username.
func (r *MemberRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM members WHERE username=? AND is_active=1)",
		username).Scan(&exists)
	return exists, err
}

// ExistsByEmail reports whether an active member holds the email.
func (r *MemberRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM members WHERE email=? AND is_active=1)",
		email).Scan(&exists)
	return exists, err
}

// Create inserts a member inside a transaction. The uniqueness prechecks
// are locking reads: FOR UPDATE takes index gap locks on the probed
// username/email values, so of two concurrent registrations one blocks on
// the other and re-reads the committed row. A plain snapshot read would let
// both see "free" and both insert. Uniqueness only considers active rows,
// so a soft-deleted member's username and email stay reusable. Should a
// duplicate slip through anyway, a 1062 from the insert is mapped back to
// the matching sentinel.
func (r *MemberRepo) Create(ctx context.Context, m model.Member) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var existing uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM members WHERE username=? AND is_active=1 LIMIT 1 FOR UPDATE",
		m.Username).Scan(&existing)
	if err == nil {
		return 0, ErrDuplicateUsername
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM members WHERE email=? AND is_active=1 LIMIT 1 FOR UPDATE",
		m.Email).Scan(&existing)
	if err == nil {
		return 0, ErrDuplicateEmail
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO members
		 (username, email, password_hash, full_name, phone, address, gender, image_url, role_id, is_active)
		 VALUES (?,?,?,?,?,?,?,?,?,1)`,
		m.Username, m.Email, m.PasswordHash, m.FullName, m.Phone, m.Address,
		m.Gender, m.ImageURL, m.RoleID)
	if err != nil {
		return 0, mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, mapDuplicate(err)
	}
	return uint64(id), nil
}

// mapDuplicate translates a MySQL duplicate-key error (1062) into the
// sentinel matching the violated index.
func mapDuplicate(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	if strings.Contains(msg, "uq_members_email") {
		return ErrDuplicateEmail
	}
	return ErrDuplicateUsername
}

// UpdatePassword replaces the stored hash for an active member.
func (r *MemberRepo) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE members SET password_hash=?, updated_at=NOW() WHERE username=? AND is_active=1",
		passwordHash, username)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete deactivates a member and stamps deleted_at. The row stays in
// place so history and foreign keys survive.
func (r *MemberRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE members SET is_active=0, deleted_at=NOW(), updated_at=NOW() WHERE id=? AND is_active=1",
		id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Page carries one page of members plus the pagination metadata the API
// exposes. Page numbering starts at zero.
type Page struct {
	Content       []model.Member
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
	First         bool
	Last          bool
	HasNext       bool
	HasPrevious   bool
}

// PagedSearch returns active members matching keyword against username,
// email or full name, ordered by id. An empty keyword matches everyone.
func (r *MemberRepo) PagedSearch(ctx context.Context, keyword string, page, size int) (Page, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = 10
	}

	where := "WHERE m.is_active=1"
	args := []any{}
	if kw := strings.TrimSpace(keyword); kw != "" {
		where += " AND (m.username LIKE ? OR m.email LIKE ? OR m.full_name LIKE ?)"
		like := "%" + kw + "%"
		args = append(args, like, like, like)
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM members m "+where, args...).Scan(&total); err != nil {
		return Page{}, err
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members m
		 JOIN roles r ON r.id = m.role_id `+where+`
		 ORDER BY m.id LIMIT ? OFFSET ?`,
		append(args, size, page*size)...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	content := []model.Member{}
	for rows.Next() {
		var (
			m         model.Member
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &m.PasswordHash, &m.FullName,
			&m.Phone, &m.Address, &m.Gender, &m.ImageURL, &m.RoleID, &m.RoleName,
			&m.IsActive, &m.CreatedAt, &m.UpdatedAt, &deletedAt); err != nil {
			return Page{}, fmt.Errorf("scan member row: %w", err)
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			m.DeletedAt = &t
		}
		content = append(content, m)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return Page{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
		HasNext:       page < totalPages-1,
		HasPrevious:   page > 0,
	}, nil
}
