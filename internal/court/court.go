// Package court derives scores and checks who may do what with a case.
// Everything here works on an in-memory model.AppState and never touches storage.
package court

import (
	"errors"
	"sort"

	"github.com/dukerupert/gavel/internal/model"
)

// UnknownRuleTitle labels violations whose rule has been deleted.
const UnknownRuleTitle = "不明な指摘"

var (
	ErrObserver          = errors.New("observers cannot take part in a case")
	ErrSelfAccusation    = errors.New("you cannot accuse yourself")
	ErrNotViolator       = errors.New("only the accused partner can do that")
	ErrNotProsecutor     = errors.New("only the accusing partner can rule on a defense")
	ErrInvalidTransition = errors.New("case is not in a state that allows this")
)

// RulePoints returns the points a violation of ruleID is worth.
// Orphaned references count as a single point.
func RulePoints(state *model.AppState, ruleID string) int {
	if r := state.FindRule(ruleID); r != nil {
		return r.Severity.Points()
	}
	return 1
}

// Score sums the points of every guilty violation committed by p.
func Score(state *model.AppState, p model.Partner) int {
	total := 0
	for _, v := range state.Violations {
		if v.Violator != p || v.Status != model.StatusGuilty {
			continue
		}
		total += RulePoints(state, v.RuleID)
	}
	return total
}

// Progress returns how far score is toward threshold as a percentage, capped at 100.
func Progress(score, threshold int) float64 {
	if threshold <= 0 {
		return 100
	}
	pct := float64(score) / float64(threshold) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// Reached reports whether score has hit threshold. It agrees with Progress:
// a threshold of 0 or less counts as reached.
func Reached(score, threshold int) bool {
	return score >= threshold
}

type PartnerScore struct {
	Partner    model.Partner `json:"partner"`
	Name       string        `json:"name"`
	Score      int           `json:"score"`
	Progress   float64       `json:"progress"`
	Punishment string        `json:"punishment"`
	Penalized  bool          `json:"penalized"`
}

type ScoreboardView struct {
	Threshold int            `json:"threshold"`
	Partners  []PartnerScore `json:"partners"`
}

// Scoreboard computes both partners' standing.
func Scoreboard(state *model.AppState) ScoreboardView {
	threshold := state.Settings.PenaltyThreshold
	view := ScoreboardView{Threshold: threshold}
	for _, p := range []model.Partner{model.Partner1, model.Partner2} {
		score := Score(state, p)
		view.Partners = append(view.Partners, PartnerScore{
			Partner:    p,
			Name:       state.Settings.Name(p),
			Score:      score,
			Progress:   Progress(score, threshold),
			Punishment: state.Settings.Punishment(p),
			Penalized:  Reached(score, threshold),
		})
	}
	return view
}

// Pending returns the cases still awaiting a verdict, in the order they were filed.
func Pending(state *model.AppState) []model.Violation {
	var out []model.Violation
	for _, v := range state.Violations {
		if v.Status.Open() {
			out = append(out, v)
		}
	}
	return out
}

type HistoryEntry struct {
	model.Violation
	RuleTitle    string `json:"ruleTitle"`
	ViolatorName string `json:"violatorName"`
}

// History lists every case newest first with its rule title resolved.
func History(state *model.AppState) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(state.Violations))
	for _, v := range state.Violations {
		out = append(out, Describe(state, v))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

// Describe resolves the rule title and violator name of v.
func Describe(state *model.AppState, v model.Violation) HistoryEntry {
	return HistoryEntry{
		Violation:    v,
		RuleTitle:    RuleTitle(state, v.RuleID),
		ViolatorName: state.Settings.Name(v.Violator),
	}
}

// RuleTitle returns the title of ruleID or UnknownRuleTitle when it no longer exists.
func RuleTitle(state *model.AppState, ruleID string) string {
	if r := state.FindRule(ruleID); r != nil {
		return r.Title
	}
	return UnknownRuleTitle
}
