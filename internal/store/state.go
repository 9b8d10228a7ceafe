package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/dukerupert/gavel/internal/model"
)

// DefaultSettings returns the settings a new household starts with.
func DefaultSettings() model.UserSettings {
	return model.UserSettings{
		Partner1Name:       "パパ",
		Partner2Name:       "ママ",
		Partner1Punishment: "一週間の皿洗い",
		Partner2Punishment: "高級焼肉を奢る",
		PenaltyThreshold:   10,
	}
}

// DefaultRules returns the rules a new household starts with.
func DefaultRules() []model.Rule {
	return []model.Rule{
		{ID: "1", Title: "脱ぎっぱなし禁止", Description: "脱いだ靴下を放置", Severity: model.SeverityMedium},
		{ID: "2", Title: "食器放置禁止", Description: "食後放置", Severity: model.SeverityHigh},
	}
}

// StateStore reads and writes the whole court document at once.
//
// Replace and Reset hold the document lock while they run. Callers that load
// the document, decide, then write part of it hold the same lock through
// Lock and Unlock so a concurrent import cannot be overwritten with stale data.
type StateStore struct {
	mu sync.Mutex
	db *sql.DB
}

func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

// Lock takes the document lock.
func (s *StateStore) Lock() { s.mu.Lock() }

// Unlock releases the document lock.
func (s *StateStore) Unlock() { s.mu.Unlock() }

// Load assembles the document. DeviceRole is left nil; it belongs to the device.
func (s *StateStore) Load() (*model.AppState, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rules, err := listRules(tx)
	if err != nil {
		return nil, err
	}
	violations, err := listViolations(tx)
	if err != nil {
		return nil, err
	}
	settings, err := readUserSettings(tx)
	if err != nil {
		return nil, err
	}

	if rules == nil {
		rules = []model.Rule{}
	}
	if violations == nil {
		violations = []model.Violation{}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &model.AppState{
		Rules:      rules,
		Violations: violations,
		Settings:   settings,
	}, nil
}

// Replace overwrites rules, violations and settings with the given document.
// Either everything is written or nothing is.
func (s *StateStore) Replace(state *model.AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceAll(tx, state.Rules, state.Violations, state.Settings); err != nil {
		return err
	}
	return tx.Commit()
}

// Reset restores the default rules and settings and clears every case.
func (s *StateStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceAll(tx, DefaultRules(), nil, DefaultSettings()); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceAll(tx *sql.Tx, rules []model.Rule, violations []model.Violation, settings model.UserSettings) error {
	if _, err := tx.Exec(`DELETE FROM violations`); err != nil {
		return fmt.Errorf("clear violations: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM rules`); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}
	for _, r := range rules {
		if err := insertRule(tx, r); err != nil {
			return fmt.Errorf("rule %s: %w", r.ID, err)
		}
	}
	for _, v := range violations {
		if err := insertViolation(tx, v); err != nil {
			return fmt.Errorf("violation %s: %w", v.ID, err)
		}
	}
	return writeUserSettings(tx, settings)
}
