package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/gavel/internal/model"
)

const (
	keyPartner1Name       = "partner1_name"
	keyPartner2Name       = "partner2_name"
	keyPartner1Punishment = "partner1_punishment"
	keyPartner2Punishment = "partner2_punishment"
	keyPenaltyThreshold   = "penalty_threshold"
)

// SettingsStore keeps UserSettings as rows of a key/value table.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func allSettings(ex execer) (map[string]string, error) {
	rows, err := ex.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func setSetting(ex execer, key, value string) error {
	_, err := ex.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetUserSettings reads the partner names, punishments and threshold.
// Missing keys fall back to the defaults.
func (s *SettingsStore) GetUserSettings() (model.UserSettings, error) {
	return readUserSettings(s.db)
}

func readUserSettings(ex execer) (model.UserSettings, error) {
	all, err := allSettings(ex)
	if err != nil {
		return model.UserSettings{}, err
	}

	us := DefaultSettings()
	if v, ok := all[keyPartner1Name]; ok {
		us.Partner1Name = v
	}
	if v, ok := all[keyPartner2Name]; ok {
		us.Partner2Name = v
	}
	if v, ok := all[keyPartner1Punishment]; ok {
		us.Partner1Punishment = v
	}
	if v, ok := all[keyPartner2Punishment]; ok {
		us.Partner2Punishment = v
	}
	if v, ok := all[keyPenaltyThreshold]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return model.UserSettings{}, fmt.Errorf("parse %s %q: %w", keyPenaltyThreshold, v, err)
		}
		us.PenaltyThreshold = n
	}
	return us, nil
}

// PutUserSettings writes all user settings in one transaction.
func (s *SettingsStore) PutUserSettings(us model.UserSettings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := writeUserSettings(tx, us); err != nil {
		return err
	}
	return tx.Commit()
}

func writeUserSettings(ex execer, us model.UserSettings) error {
	values := []struct{ key, value string }{
		{keyPartner1Name, us.Partner1Name},
		{keyPartner2Name, us.Partner2Name},
		{keyPartner1Punishment, us.Partner1Punishment},
		{keyPartner2Punishment, us.Partner2Punishment},
		{keyPenaltyThreshold, strconv.Itoa(us.PenaltyThreshold)},
	}
	for _, kv := range values {
		if err := setSetting(ex, kv.key, kv.value); err != nil {
			return err
		}
	}
	return nil
}
