package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/gavel/internal/model"
	"github.com/google/uuid"
)

type RuleStore struct {
	db *sql.DB
}

func NewRuleStore(db *sql.DB) *RuleStore {
	return &RuleStore{db: db}
}

func scanRule(scanner interface{ Scan(...any) error }) (*model.Rule, error) {
	var r model.Rule
	var severity string
	if err := scanner.Scan(&r.ID, &r.Title, &r.Description, &severity); err != nil {
		return nil, err
	}
	r.Severity = model.Severity(severity)
	return &r, nil
}

const ruleCols = `id, title, description, severity`

// Create appends a rule to the end of the list.
func (s *RuleStore) Create(title, description string, severity model.Severity) (*model.Rule, error) {
	r := model.Rule{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Severity:    severity,
	}
	if err := insertRule(s.db, r); err != nil {
		return nil, err
	}
	return s.GetByID(r.ID)
}

func insertRule(ex execer, r model.Rule) error {
	_, err := ex.Exec(
		`INSERT INTO rules (id, title, description, severity, sort_order)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(sort_order), -1) + 1 FROM rules))`,
		r.ID, r.Title, r.Description, string(r.Severity),
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (s *RuleStore) GetByID(id string) (*model.Rule, error) {
	row := s.db.QueryRow(`SELECT `+ruleCols+` FROM rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return r, nil
}

// List returns all rules in the order they were added.
func (s *RuleStore) List() ([]model.Rule, error) {
	return listRules(s.db)
}

func listRules(ex execer) ([]model.Rule, error) {
	rows, err := ex.Query(`SELECT ` + ruleCols + ` FROM rules ORDER BY sort_order ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

func (s *RuleStore) Update(id, title, description string, severity model.Severity) (*model.Rule, error) {
	_, err := s.db.Exec(
		`UPDATE rules SET title = ?, description = ?, severity = ? WHERE id = ?`,
		title, description, string(severity), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes a rule. Violations that reference it are kept.
func (s *RuleStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}
