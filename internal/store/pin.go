package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/gavel/internal/model"
)

// PINStore holds the optional bcrypt-hashed PIN that locks each partner role.
type PINStore struct {
	db *sql.DB
}

func NewPINStore(db *sql.DB) *PINStore {
	return &PINStore{db: db}
}

func (s *PINStore) SetPIN(p model.Partner, hashedPIN string) error {
	_, err := s.db.Exec(
		`INSERT INTO partner_pins (partner, pin_hash, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(partner) DO UPDATE SET pin_hash = excluded.pin_hash, updated_at = excluded.updated_at`,
		string(p), hashedPIN, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *PINStore) ClearPIN(p model.Partner) error {
	_, err := s.db.Exec(`DELETE FROM partner_pins WHERE partner = ?`, string(p))
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

// GetPINHash returns the stored hash, or "" when the role is unlocked.
func (s *PINStore) GetPINHash(p model.Partner) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT pin_hash FROM partner_pins WHERE partner = ?`, string(p)).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	return hash, nil
}
