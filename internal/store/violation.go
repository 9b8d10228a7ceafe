package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/gavel/internal/model"
	"github.com/google/uuid"
)

type ViolationStore struct {
	db *sql.DB
}

func NewViolationStore(db *sql.DB) *ViolationStore {
	return &ViolationStore{db: db}
}

func scanViolation(scanner interface{ Scan(...any) error }) (*model.Violation, error) {
	var v model.Violation
	var violator, status string
	var scoreApplied sql.NullInt64

	err := scanner.Scan(&v.ID, &v.RuleID, &violator, &v.Timestamp, &status,
		&v.Defense, &v.AccusalComment, &v.JudgmentComment, &scoreApplied)
	if err != nil {
		return nil, err
	}

	v.Violator = model.Partner(violator)
	v.Status = model.ViolationStatus(status)
	if scoreApplied.Valid {
		n := int(scoreApplied.Int64)
		v.ScoreApplied = &n
	}
	return &v, nil
}

const violationCols = `id, rule_id, violator, timestamp, status, defense, accusal_comment, judgment_comment, score_applied`

// Create files a new pending case against violator.
func (s *ViolationStore) Create(ruleID string, violator model.Partner, accusalComment string, at time.Time) (*model.Violation, error) {
	v := model.Violation{
		ID:             uuid.NewString(),
		RuleID:         ruleID,
		Violator:       violator,
		Timestamp:      at.UnixMilli(),
		Status:         model.StatusPending,
		AccusalComment: accusalComment,
	}
	if err := insertViolation(s.db, v); err != nil {
		return nil, err
	}
	return s.GetByID(v.ID)
}

func insertViolation(ex execer, v model.Violation) error {
	var score sql.NullInt64
	if v.ScoreApplied != nil {
		score = sql.NullInt64{Int64: int64(*v.ScoreApplied), Valid: true}
	}
	_, err := ex.Exec(
		`INSERT INTO violations (id, rule_id, violator, timestamp, status, defense, accusal_comment, judgment_comment, score_applied)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.RuleID, string(v.Violator), v.Timestamp, string(v.Status),
		v.Defense, v.AccusalComment, v.JudgmentComment, score,
	)
	if err != nil {
		return fmt.Errorf("insert violation: %w", err)
	}
	return nil
}

func (s *ViolationStore) GetByID(id string) (*model.Violation, error) {
	row := s.db.QueryRow(`SELECT `+violationCols+` FROM violations WHERE id = ?`, id)
	v, err := scanViolation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get violation: %w", err)
	}
	return v, nil
}

// List returns all violations in filing order.
func (s *ViolationStore) List() ([]model.Violation, error) {
	return listViolations(s.db)
}

func listViolations(ex execer) ([]model.Violation, error) {
	rows, err := ex.Query(`SELECT ` + violationCols + ` FROM violations ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()

	var violations []model.Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		violations = append(violations, *v)
	}
	return violations, rows.Err()
}

// Update overwrites the mutable fields of a case. The rule, violator and
// timestamp are fixed at filing.
func (s *ViolationStore) Update(v model.Violation) (*model.Violation, error) {
	var score sql.NullInt64
	if v.ScoreApplied != nil {
		score = sql.NullInt64{Int64: int64(*v.ScoreApplied), Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE violations SET status = ?, defense = ?, accusal_comment = ?, judgment_comment = ?, score_applied = ?
		 WHERE id = ?`,
		string(v.Status), v.Defense, v.AccusalComment, v.JudgmentComment, score, v.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update violation: %w", err)
	}
	return s.GetByID(v.ID)
}

func (s *ViolationStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM violations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete violation: %w", err)
	}
	return nil
}
