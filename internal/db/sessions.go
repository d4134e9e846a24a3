package db

import (
	"database/sql"
	"time"

	"crowny-exchange/internal/apperr"
)

// SessionTTL is how long an issued session token remains valid.
const SessionTTL = 24 * time.Hour

// CreateSession stores a new session token for userID, expiring after
// SessionTTL.
func (d *DB) CreateSession(token, userID string) error {
	now := time.Now()
	_, err := d.sql.Exec(`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now.Unix(), now.Add(SessionTTL).Unix())
	return err
}

// GetSessionUserID resolves a live session token to its owning user id,
// or KindAuthRequired if the token is missing or expired.
func (d *DB) GetSessionUserID(token string) (string, error) {
	var userID string
	var expiresAt int64
	err := d.sql.QueryRow(`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return "", apperr.New(apperr.KindAuthRequired, "session")
	}
	if err != nil {
		return "", err
	}
	if time.Now().Unix() > expiresAt {
		return "", apperr.New(apperr.KindAuthRequired, "session expired")
	}
	return userID, nil
}

// DeleteSession removes a session token (logout).
func (d *DB) DeleteSession(token string) error {
	_, err := d.sql.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// SweepExpiredSessions deletes every session past its expiry, returning the
// count removed. Called through auth.Service.SweepExpired at the start of
// every login.
func (d *DB) SweepExpiredSessions(now time.Time) (int64, error) {
	res, err := d.sql.Exec(`DELETE FROM sessions WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
