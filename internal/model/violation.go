package model

import "time"

type Partner string

const (
	Partner1 Partner = "partner1"
	Partner2 Partner = "partner2"
)

func (p Partner) Valid() bool {
	return p == Partner1 || p == Partner2
}

// Opponent returns the other partner.
func (p Partner) Opponent() Partner {
	if p == Partner1 {
		return Partner2
	}
	return Partner1
}

type ViolationStatus string

const (
	StatusPending  ViolationStatus = "pending"
	StatusDefended ViolationStatus = "defended"
	StatusGuilty   ViolationStatus = "guilty"
	StatusInnocent ViolationStatus = "innocent"
)

func (s ViolationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusDefended, StatusGuilty, StatusInnocent:
		return true
	}
	return false
}

// Open reports whether the case still awaits a verdict.
func (s ViolationStatus) Open() bool {
	return s == StatusPending || s == StatusDefended
}

type Violation struct {
	ID              string          `json:"id"`
	RuleID          string          `json:"ruleId"`
	Violator        Partner         `json:"violator"`
	Timestamp       int64           `json:"timestamp"`
	Status          ViolationStatus `json:"status"`
	Defense         string          `json:"defense,omitempty"`
	AccusalComment  string          `json:"accusalComment,omitempty"`
	JudgmentComment string          `json:"judgmentComment,omitempty"`
	ScoreApplied    *int            `json:"scoreApplied,omitempty"`
}

// Time returns the violation timestamp (unix millis) as a time.Time.
func (v Violation) Time() time.Time {
	return time.UnixMilli(v.Timestamp)
}
