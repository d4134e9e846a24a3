// Package auth issues and verifies principal sessions: registration and
// login produce a signed JWT that is also recorded in the store so it can
// be revoked on logout (spec §4.8 "session CRUD with expiry sweep", §6
// POST /api/auth/{register,login}).
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/db"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/logger"
)

const minPasswordLen = 6

const tag = "AUTH"

// claims is the JWT payload: subject is the user id.
type claims struct {
	jwt.RegisteredClaims
}

// Service issues and verifies principal sessions against a store.
type Service struct {
	store  *db.DB
	secret []byte
}

// NewService builds an auth Service signing JWTs with the given secret.
func NewService(store *db.DB, jwtSecret string) *Service {
	return &Service{store: store, secret: []byte(jwtSecret)}
}

// Principal is the caller-facing view of a registered user.
type Principal struct {
	ID       string
	Email    string
	Username string
}

// Register creates a user, credits the default wallet mint grants, and
// returns a fresh session token (spec §8 scenario 1).
func (s *Service) Register(email, username, password string) (Principal, string, error) {
	if len(password) < minPasswordLen {
		return Principal{}, "", apperr.New(apperr.KindBadInput, "password too short")
	}
	if email == "" || username == "" {
		return Principal{}, "", apperr.New(apperr.KindBadInput, "email and username required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Principal{}, "", apperr.Wrap(apperr.KindCryptographic, "password hash", err)
	}

	u, err := s.store.CreateUser(email, username, string(hash))
	if err != nil {
		return Principal{}, "", err
	}

	if err := s.mintDefaultWallet(u.ID); err != nil {
		return Principal{}, "", err
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return Principal{}, "", err
	}
	return Principal{ID: u.ID, Email: u.Email, Username: u.Username}, token, nil
}

func (s *Service) mintDefaultWallet(userID string) error {
	return s.store.Transaction(func(q db.Querier) error {
		for _, grant := range engine.DefaultMintGrants() {
			if err := db.AddBalance(q, userID, grant.Symbol, decimal.NewFromInt(grant.Amount)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Login verifies credentials and returns a fresh session token, sweeping
// expired sessions opportunistically along the way (spec §4.8 "expiry
// sweep: a query run opportunistically on login").
func (s *Service) Login(emailOrUsername, password string) (Principal, string, error) {
	if _, err := s.SweepExpired(time.Now()); err != nil {
		logger.Warn(tag, "sweep expired sessions: "+err.Error())
	}

	u, err := s.store.GetUserByEmailOrUsername(emailOrUsername)
	if err != nil {
		return Principal{}, "", apperr.New(apperr.KindInvalidCredentials, "")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Principal{}, "", apperr.New(apperr.KindInvalidCredentials, "")
	}
	token, err := s.issueToken(u.ID)
	if err != nil {
		return Principal{}, "", err
	}
	return Principal{ID: u.ID, Email: u.Email, Username: u.Username}, token, nil
}

func (s *Service) issueToken(userID string) (string, error) {
	now := time.Now()
	c := claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(db.SessionTTL)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.KindCryptographic, "token signing", err)
	}
	if err := s.store.CreateSession(token, userID); err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate verifies a bearer token's signature and expiry, then
// confirms the session has not been revoked (logout/sweep), returning the
// owning principal.
func (s *Service) Authenticate(token string) (Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, apperr.New(apperr.KindAuthRequired, "invalid token")
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return Principal{}, apperr.New(apperr.KindAuthRequired, "invalid token")
	}

	userID, err := s.store.GetSessionUserID(token)
	if err != nil {
		return Principal{}, err
	}

	u, err := s.store.GetUserByID(userID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{ID: u.ID, Email: u.Email, Username: u.Username}, nil
}

// Logout revokes a session token.
func (s *Service) Logout(token string) error {
	return s.store.DeleteSession(token)
}

// SweepExpired removes expired session rows (spec §4.8 "expiry sweep").
// Login runs it before checking credentials.
func (s *Service) SweepExpired(now time.Time) (int64, error) {
	return s.store.SweepExpiredSessions(now)
}
