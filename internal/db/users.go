package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"crowny-exchange/internal/apperr"
)

// User is a registered principal.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts a new user row with a fresh id, failing with
// KindConflict if the email or username is already taken.
func (d *DB) CreateUser(email, username, passwordHash string) (User, error) {
	u := User{ID: uuid.NewString(), Email: email, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	_, err := d.sql.Exec(`INSERT INTO users (id, email, username, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.CreatedAt.Unix())
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindConflict, "email or username already registered", err)
	}
	return u, nil
}

// GetUserByEmail looks up a user by email, or KindNotFound.
func (d *DB) GetUserByEmail(email string) (User, error) {
	return d.queryUser(`SELECT id, email, username, password_hash, created_at FROM users WHERE email = ?`, email)
}

// GetUserByID looks up a user by id, or KindNotFound.
func (d *DB) GetUserByID(id string) (User, error) {
	return d.queryUser(`SELECT id, email, username, password_hash, created_at FROM users WHERE id = ?`, id)
}

// GetUserByEmailOrUsername looks up a user by either field, for login
// (spec §6 POST /api/auth/login accepts emailOrUsername).
func (d *DB) GetUserByEmailOrUsername(value string) (User, error) {
	return d.queryUser(`SELECT id, email, username, password_hash, created_at FROM users WHERE email = ? OR username = ?`, value, value)
}

func (d *DB) queryUser(query string, args ...interface{}) (User, error) {
	var u User
	var createdAt int64
	err := d.sql.QueryRow(query, args...).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return User{}, apperr.New(apperr.KindNotFound, "user")
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return u, nil
}
