package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dukerupert/gavel/internal/model"
)

// SessionTTL is how long a device keeps its role without choosing again.
const SessionTTL = 365 * 24 * time.Hour

type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.DeviceSession, error) {
	var s model.DeviceSession
	var expires int64
	if err := scanner.Scan(&s.ID, &s.Token, &s.Role, &expires, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.ExpiresAt = time.Unix(expires, 0).UTC()
	return &s, nil
}

const sessionCols = `id, token, role, expires_at, created_at`

// Create starts a session for role with a crypto-random token.
func (s *SessionStore) Create(role model.Role) (*model.DeviceSession, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	expiresAt := s.now().Add(SessionTTL).Unix()

	result, err := s.db.Exec(
		`INSERT INTO device_sessions (token, role, expires_at) VALUES (?, ?, ?)`,
		token, string(role), expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM device_sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetByToken returns the live session for token, or nil if expired or unknown.
func (s *SessionStore) GetByToken(token string) (*model.DeviceSession, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionCols+` FROM device_sessions WHERE token = ? AND expires_at > ?`,
		token, s.now().Unix(),
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Delete(token string) error {
	_, err := s.db.Exec(`DELETE FROM device_sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteByRole signs every device holding role out, except the session
// with keepToken.
func (s *SessionStore) DeleteByRole(role model.Role, keepToken string) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM device_sessions WHERE role = ? AND token != ?`,
		string(role), keepToken,
	)
	if err != nil {
		return 0, fmt.Errorf("delete sessions by role: %w", err)
	}
	return result.RowsAffected()
}

func (s *SessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM device_sessions WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
