package model

// StateKey names the persisted document. Exports use it as the file name so
// a snapshot from the browser app and one from the server are interchangeable.
const StateKey = "housework_police_state_v4"

type Role string

const (
	RolePartner1 Role = "partner1"
	RolePartner2 Role = "partner2"
	RoleObserver Role = "observer"
)

func (r Role) Valid() bool {
	switch r {
	case RolePartner1, RolePartner2, RoleObserver:
		return true
	}
	return false
}

// Partner returns the partner the role acts as. ok is false for observers.
func (r Role) Partner() (Partner, bool) {
	switch r {
	case RolePartner1:
		return Partner1, true
	case RolePartner2:
		return Partner2, true
	}
	return "", false
}

type AppState struct {
	Rules      []Rule       `json:"rules"`
	Violations []Violation  `json:"violations"`
	Settings   UserSettings `json:"settings"`
	DeviceRole *Role        `json:"deviceRole,omitempty"`
}

// FindRule returns the rule with the given id, or nil.
func (s *AppState) FindRule(id string) *Rule {
	for i := range s.Rules {
		if s.Rules[i].ID == id {
			return &s.Rules[i]
		}
	}
	return nil
}

// FindViolation returns the violation with the given id, or nil.
func (s *AppState) FindViolation(id string) *Violation {
	for i := range s.Violations {
		if s.Violations[i].ID == id {
			return &s.Violations[i]
		}
	}
	return nil
}
