package court

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/gavel/internal/model"
)

// ErrInvalidDocument wraps every reason an imported document is refused.
var ErrInvalidDocument = errors.New("invalid document")

// ValidateDocument checks an imported or restored document before it
// replaces the stored one. Unknown severities and orphaned rule references
// are accepted since scoring already tolerates them. Missing slices are
// normalised to empty ones. Settings must name both partners and carry a
// threshold of at least 1.
func ValidateDocument(state *model.AppState) error {
	if state == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	if err := ValidateSettings(state.Settings); err != nil {
		return err
	}
	if state.Rules == nil {
		state.Rules = []model.Rule{}
	}
	if state.Violations == nil {
		state.Violations = []model.Violation{}
	}

	ruleIDs := make(map[string]struct{}, len(state.Rules))
	for i, r := range state.Rules {
		if r.ID == "" {
			return fmt.Errorf("%w: rule %d has no id", ErrInvalidDocument, i)
		}
		if _, dup := ruleIDs[r.ID]; dup {
			return fmt.Errorf("%w: duplicate rule id %q", ErrInvalidDocument, r.ID)
		}
		ruleIDs[r.ID] = struct{}{}
	}

	violationIDs := make(map[string]struct{}, len(state.Violations))
	for i, v := range state.Violations {
		if v.ID == "" {
			return fmt.Errorf("%w: violation %d has no id", ErrInvalidDocument, i)
		}
		if _, dup := violationIDs[v.ID]; dup {
			return fmt.Errorf("%w: duplicate violation id %q", ErrInvalidDocument, v.ID)
		}
		violationIDs[v.ID] = struct{}{}
		if !v.Violator.Valid() {
			return fmt.Errorf("%w: violation %q has unknown violator %q", ErrInvalidDocument, v.ID, v.Violator)
		}
		if !v.Status.Valid() {
			return fmt.Errorf("%w: violation %q has unknown status %q", ErrInvalidDocument, v.ID, v.Status)
		}
	}
	return nil
}

// ValidateSettings checks the partner names and penalty threshold.
func ValidateSettings(s model.UserSettings) error {
	if strings.TrimSpace(s.Partner1Name) == "" || strings.TrimSpace(s.Partner2Name) == "" {
		return fmt.Errorf("%w: both partner names are required", ErrInvalidDocument)
	}
	if s.PenaltyThreshold < 1 {
		return fmt.Errorf("%w: penaltyThreshold must be at least 1, got %d", ErrInvalidDocument, s.PenaltyThreshold)
	}
	return nil
}
