package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/identity-service/internal/model"
)

// UserRepo persists users. Rows are never physically removed: SoftDelete
// sets deleted_at and every read filters on it, so session records keep a
// valid owner reference for their whole lifetime.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "uuid,username,password_hash,role,verified,reset_token,verification_token,api_key,oauth_provider,oauth_uid,oauth_name,created_at,updated_at"

// Create inserts a user row. The caller is responsible for the UUID, the
// password hash, and the API key; the repository only enforces the
// username uniqueness constraint.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (uuid,username,password_hash,role,verified,reset_token,verification_token,api_key,oauth_provider,oauth_uid,oauth_name) VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		u.UUID, u.Username, u.PasswordHash, u.Role, u.Verified,
		u.ResetToken, u.VerificationToken, u.APIKey,
		u.OAuthProvider, u.OAuthUID, u.OAuthName)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrUsernameTaken
		}
		return err
	}
	return nil
}

// GetByUUID fetches a live user by primary key.
func (r *UserRepo) GetByUUID(ctx context.Context, uuid string) (*model.User, error) {
	return r.getWhere(ctx, "uuid=?", uuid)
}

// GetByUsername fetches a live user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return r.getWhere(ctx, "username=?", username)
}

// GetByAPIKey fetches a live user by API key.
func (r *UserRepo) GetByAPIKey(ctx context.Context, key string) (*model.User, error) {
	return r.getWhere(ctx, "api_key=?", key)
}

// GetByOAuth fetches a live user by external identity.
func (r *UserRepo) GetByOAuth(ctx context.Context, provider, uid string) (*model.User, error) {
	return r.getWhere(ctx, "oauth_provider=? AND oauth_uid=?", provider, uid)
}

func (r *UserRepo) getWhere(ctx context.Context, where string, args ...any) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" AND deleted_at IS NULL LIMIT 1",
		args...).Scan(
		&u.UUID, &u.Username, &u.PasswordHash, &u.Role, &u.Verified,
		&u.ResetToken, &u.VerificationToken, &u.APIKey,
		&u.OAuthProvider, &u.OAuthUID, &u.OAuthName,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Update writes the mutable fields back. Role changes are gated in the
// handler layer (admin only); the repository applies whatever it is given.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET username=?,password_hash=?,role=?,verified=?,reset_token=?,verification_token=?,updated_at=NOW() WHERE uuid=? AND deleted_at IS NULL",
		u.Username, u.PasswordHash, u.Role, u.Verified,
		u.ResetToken, u.VerificationToken, u.UUID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrUsernameTaken
		}
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

// SoftDelete marks the user as deleted. The row remains so that owned
// records keep a resolvable owner.
func (r *UserRepo) SoftDelete(ctx context.Context, uuid string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET deleted_at=NOW() WHERE uuid=? AND deleted_at IS NULL", uuid)
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

// List returns all live users in creation order.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE deleted_at IS NULL ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.UUID, &u.Username, &u.PasswordHash, &u.Role, &u.Verified,
			&u.ResetToken, &u.VerificationToken, &u.APIKey,
			&u.OAuthProvider, &u.OAuthUID, &u.OAuthName,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}
