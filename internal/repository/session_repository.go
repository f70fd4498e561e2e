package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/identity-service/internal/model"
)

// SessionRepo persists sessions. The secret column never leaves this
// layer except inside a model.Session, which is never serialized to a
// client. Expiry is not stored: the token's exp claim is authoritative
// and is checked lazily by callers.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (uuid,user_uuid,token,secret) VALUES (?,?,?,?)",
		s.UUID, s.UserUUID, s.Token, s.Secret)
	return err
}

// GetByUUID fetches a session by primary key.
func (r *SessionRepo) GetByUUID(ctx context.Context, uuid string) (*model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT uuid,user_uuid,token,secret,created_at,updated_at FROM sessions WHERE uuid=? LIMIT 1",
		uuid).Scan(&s.UUID, &s.UserUUID, &s.Token, &s.Secret, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByUser returns all sessions owned by the user, oldest first. The
// session UUIDs are time-ordered, so uuid order is creation order.
func (r *SessionRepo) ListByUser(ctx context.Context, userUUID string) ([]*model.Session, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT uuid,user_uuid,token,secret,created_at,updated_at FROM sessions WHERE user_uuid=? ORDER BY uuid",
		userUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.UUID, &s.UserUUID, &s.Token, &s.Secret, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// Delete removes a session. Deleting a session that is already gone is
// not an error: logout and the cleanup consumer may race on the same id.
func (r *SessionRepo) Delete(ctx context.Context, uuid string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE uuid=?", uuid)
	return err
}

// DeleteForUser removes every session owned by the user. Called when an
// account is soft-deleted so its tokens stop resolving.
func (r *SessionRepo) DeleteForUser(ctx context.Context, userUUID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE user_uuid=?", userUUID)
	return err
}
