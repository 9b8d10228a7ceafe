package model

type UserSettings struct {
	Partner1Name       string `json:"partner1Name"`
	Partner2Name       string `json:"partner2Name"`
	Partner1Punishment string `json:"partner1Punishment"`
	Partner2Punishment string `json:"partner2Punishment"`
	PenaltyThreshold   int    `json:"penaltyThreshold"`
}

// Name returns the display name configured for p.
func (s UserSettings) Name(p Partner) string {
	if p == Partner1 {
		return s.Partner1Name
	}
	return s.Partner2Name
}

// Punishment returns the punishment configured for p.
func (s UserSettings) Punishment(p Partner) string {
	if p == Partner1 {
		return s.Partner1Punishment
	}
	return s.Partner2Punishment
}
