package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userSelect = `SELECT u.id, u.name, u.email, u.role, COALESCE(c.username, ''), u.created_at
	FROM users u LEFT JOIN credentials c ON c.user_id = u.id`

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u    model.User
		role string
		err  error
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.Username, &u.CreatedAt); err != nil {
		return nil, err
	}
	if u.Role, err = model.ParseRole(role); err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return &u, nil
}

// UserRepository handles persistence for users and their credentials.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts the user and credential rows in one transaction.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User, cred model.Credentials) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id, name, email, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
			u.ID, u.Name, u.Email, string(u.Role), u.CreatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err, "") {
				return model.ErrDuplicateAccount
			}
			return fmt.Errorf("insert user: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO credentials (user_id, username, password_hash) VALUES ($1, $2, $3)`,
			u.ID, cred.Username, cred.PasswordHash,
		)
		if err != nil {
			if database.IsUniqueViolation(err, "") {
				return model.ErrDuplicateAccount
			}
			return fmt.Errorf("insert credentials: %w", err)
		}
		u.Username = cred.Username
		return nil
	})
}

// GetUser returns a single user or ErrNotFound.
func (r *UserRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetCredentials looks up a login record by username.
func (r *UserRepository) GetCredentials(ctx context.Context, username string) (*model.Credentials, error) {
	var c model.Credentials
	err := r.db.QueryRow(ctx,
		`SELECT user_id, username, password_hash FROM credentials WHERE username = $1`,
		username,
	).Scan(&c.UserID, &c.Username, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return &c, nil
}

// ListUsers returns users matching f, newest first unless asked otherwise.
func (r *UserRepository) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	w := newWhere()
	if f.Role != "" {
		w.add(`u.role = $%d`, string(f.Role))
	}
	if f.Search != "" {
		w.add(`(u.name ILIKE $%[1]d OR u.email ILIKE $%[1]d OR c.username ILIKE $%[1]d)`, likePattern(f.Search))
	}
	query := userSelect + w.String() + ` ORDER BY u.created_at ` + direction(f.Order, model.OrderDesc) + `, u.id`

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ChangeRole sets a user's role, refusing to demote the last admin.
func (r *UserRepository) ChangeRole(ctx context.Context, id string, role model.Role) (*model.User, error) {
	var updated *model.User
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		target, err := lockForAdminChange(ctx, tx, id, &role)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, string(role)); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		target.Role = role
		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes a user, refusing to delete the last admin. Credentials,
// organized events and registrations cascade.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := lockForAdminChange(ctx, tx, id, nil); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// lockForAdminChange locks every admin row and the target row, then checks
// that the change leaves at least one admin. Concurrent demotions of two
// different admins serialise on the admin row locks.
func lockForAdminChange(ctx context.Context, tx pgx.Tx, id string, next *model.Role) (*model.User, error) {
	var admins int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM (SELECT id FROM users WHERE role = $1 FOR UPDATE) a`,
		string(model.RoleAdmin),
	).Scan(&admins)
	if err != nil {
		return nil, fmt.Errorf("lock admins: %w", err)
	}

	target, err := scanUser(tx.QueryRow(ctx, userSelect+` WHERE u.id = $1 FOR UPDATE OF u`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}

	if err := model.CheckRoleChange(target, next, admins); err != nil {
		return nil, err
	}
	return target, nil
}
