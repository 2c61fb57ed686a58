package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/adminkit/domain/patch"
	"github.com/artpar/adminkit/domain/user"
	"github.com/artpar/adminkit/ports"
)

// writable maps patch keys to the columns they update.
var writable = map[string]string{
	"name":  "name",
	"email": "email",
	"role":  "role",
}

// UserStore implements ports.UserStore using SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// List returns one page of users and the total matching count.
func (s *UserStore) List(ctx context.Context, q user.ListQuery) ([]user.User, int, error) {
	var where []string
	var args []any

	if q.Search != "" {
		where = append(where, "(name LIKE ? OR email LIKE ?)")
		like := "%" + q.Search + "%"
		args = append(args, like, like)
	}
	if q.Role != "" {
		where = append(where, "role = ?")
		args = append(args, q.Role)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	column, direction := q.SortColumn()
	query := fmt.Sprintf(
		"SELECT id, name, email, role, created_at FROM users%s ORDER BY %s %s, id %s",
		clause, column, direction, direction,
	)
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id int64) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, created_at
		FROM users
		WHERE id = ?
	`, id)
	return scanUser(row)
}

// Create stores a new user.
func (s *UserStore) Create(ctx context.Context, u user.User) (user.User, error) {
	u = u.WithDefaults()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email, role)
		VALUES (?, ?, ?)
	`, u.Name, u.Email, u.Role)
	if err != nil {
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return user.User{}, err
	}
	return s.Get(ctx, id)
}

// Replace overwrites name, email and role.
func (s *UserStore) Replace(ctx context.Context, u user.User) (user.User, error) {
	u = u.WithDefaults()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, email = ?, role = ?
		WHERE id = ?
	`, u.Name, u.Email, u.Role, u.ID)
	if err != nil {
		return user.User{}, fmt.Errorf("replace user: %w", err)
	}
	if err := requireRow(result); err != nil {
		return user.User{}, err
	}
	return s.Get(ctx, u.ID)
}

// Update writes only the columns present in p. Columns the patch does not
// mention keep their stored values.
func (s *UserStore) Update(ctx context.Context, id int64, p patch.Patch) (user.User, error) {
	var sets []string
	var args []any

	for _, key := range p.Keys() {
		column, ok := writable[key]
		if !ok {
			continue
		}
		v, _ := p.Get(key)
		if v == nil && column == "role" {
			v = user.RoleUser
		}
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}

	if len(sets) == 0 {
		return s.Get(ctx, id)
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	if err := requireRow(result); err != nil {
		return user.User{}, err
	}
	return s.Get(ctx, id)
}

// Delete removes a user.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(result)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Ensure interface compliance.
var _ ports.UserStore = (*UserStore)(nil)
