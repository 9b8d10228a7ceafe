package court

import (
	"github.com/dukerupert/gavel/internal/model"
)

// CanAccuse checks that role may file a case against violator.
func CanAccuse(role model.Role, violator model.Partner) error {
	p, ok := role.Partner()
	if !ok {
		return ErrObserver
	}
	if p == violator {
		return ErrSelfAccusation
	}
	return nil
}

// CanDefend checks that role may submit a defense for v.
func CanDefend(role model.Role, v model.Violation) error {
	p, ok := role.Partner()
	if !ok {
		return ErrObserver
	}
	if p != v.Violator {
		return ErrNotViolator
	}
	if v.Status != model.StatusPending {
		return ErrInvalidTransition
	}
	return nil
}

// CanAdmit checks that role may plead guilty on v. Same conditions as a defense.
func CanAdmit(role model.Role, v model.Violation) error {
	return CanDefend(role, v)
}

// CanJudge checks that role may rule guilty or innocent on a defended case.
func CanJudge(role model.Role, v model.Violation) error {
	p, ok := role.Partner()
	if !ok {
		return ErrObserver
	}
	if p == v.Violator {
		return ErrNotProsecutor
	}
	if v.Status != model.StatusDefended {
		return ErrInvalidTransition
	}
	return nil
}

// PenaltyNotice is raised when a guilty verdict brings a partner to the threshold.
type PenaltyNotice struct {
	Partner    model.Partner `json:"partner"`
	Name       string        `json:"name"`
	Score      int           `json:"score"`
	Threshold  int           `json:"threshold"`
	Punishment string        `json:"punishment"`
}

// Apply replaces the violation with the same ID in state with updated and
// returns a notice when the change is a fresh guilty verdict that puts the
// violator at or above the penalty threshold. Re-saving a case that was
// already guilty never produces a notice. Apply reports false when no
// violation with updated.ID exists.
func Apply(state *model.AppState, updated model.Violation) (*PenaltyNotice, bool) {
	existing := state.FindViolation(updated.ID)
	if existing == nil {
		return nil, false
	}
	newlyGuilty := updated.Status == model.StatusGuilty && existing.Status != model.StatusGuilty
	*existing = updated

	if !newlyGuilty {
		return nil, true
	}

	score := Score(state, updated.Violator)
	threshold := state.Settings.PenaltyThreshold
	if !Reached(score, threshold) {
		return nil, true
	}
	return &PenaltyNotice{
		Partner:    updated.Violator,
		Name:       state.Settings.Name(updated.Violator),
		Score:      score,
		Threshold:  threshold,
		Punishment: state.Settings.Punishment(updated.Violator),
	}, true
}
