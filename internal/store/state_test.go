package store

import (
	"testing"
	"time"

	"github.com/dukerupert/gavel/internal/model"
)

func TestStateLoadFresh(t *testing.T) {
	ss := NewStateStore(setupTestDB(t))

	st, err := ss.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.Rules) != 2 {
		t.Errorf("expected 2 seeded rules, got %d", len(st.Rules))
	}
	if st.Violations == nil || len(st.Violations) != 0 {
		t.Errorf("expected empty non-nil violations, got %v", st.Violations)
	}
	if st.Settings != DefaultSettings() {
		t.Errorf("settings = %+v", st.Settings)
	}
	if st.DeviceRole != nil {
		t.Errorf("device role = %v, want nil", *st.DeviceRole)
	}
}

func TestStateReplace(t *testing.T) {
	ss := NewStateStore(setupTestDB(t))

	points := 2
	in := &model.AppState{
		Rules: []model.Rule{
			{ID: "r-b", Title: "Second", Severity: model.SeverityLow},
			{ID: "r-a", Title: "First", Severity: model.SeverityMedium},
		},
		Violations: []model.Violation{
			{ID: "v1", RuleID: "r-a", Violator: model.Partner1, Timestamp: 1700000000000, Status: model.StatusGuilty, ScoreApplied: &points},
			{ID: "v2", RuleID: "gone", Violator: model.Partner2, Timestamp: 1700000005000, Status: model.StatusDefended, Defense: "not me"},
		},
		Settings: model.UserSettings{Partner1Name: "A", Partner2Name: "B", PenaltyThreshold: 4},
	}
	if err := ss.Replace(in); err != nil {
		t.Fatalf("replace: %v", err)
	}

	out, err := ss.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out.Rules) != 2 || out.Rules[0].ID != "r-b" || out.Rules[1].ID != "r-a" {
		t.Errorf("rules = %+v", out.Rules)
	}
	if len(out.Violations) != 2 || out.Violations[0].ID != "v1" || out.Violations[1].Defense != "not me" {
		t.Errorf("violations = %+v", out.Violations)
	}
	if out.Violations[0].ScoreApplied == nil || *out.Violations[0].ScoreApplied != 2 {
		t.Errorf("score applied not preserved")
	}
	if out.Settings != in.Settings {
		t.Errorf("settings = %+v, want %+v", out.Settings, in.Settings)
	}

	// Replacing with the same document is idempotent.
	if err := ss.Replace(in); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	again, _ := ss.Load()
	if len(again.Rules) != 2 || len(again.Violations) != 2 {
		t.Errorf("second replace changed counts: %d rules, %d violations", len(again.Rules), len(again.Violations))
	}
}

func TestStateReplaceRollsBack(t *testing.T) {
	ss := NewStateStore(setupTestDB(t))

	bad := &model.AppState{
		Rules:    []model.Rule{{ID: "dup", Title: "x"}, {ID: "dup", Title: "y"}},
		Settings: DefaultSettings(),
	}
	if err := ss.Replace(bad); err == nil {
		t.Fatal("expected duplicate rule id to fail")
	}

	st, err := ss.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.Rules) != 2 || st.Rules[0].ID != "1" {
		t.Errorf("expected seeded rules to survive failed import, got %+v", st.Rules)
	}
}

func TestStateReset(t *testing.T) {
	db := setupTestDB(t)
	ss := NewStateStore(db)
	rs := NewRuleStore(db)
	vs := NewViolationStore(db)
	sets := NewSettingsStore(db)

	if _, err := rs.Create("Extra", "", model.SeverityHigh); err != nil {
		t.Fatal(err)
	}
	if _, err := vs.Create("1", model.Partner1, "", fixedTime); err != nil {
		t.Fatal(err)
	}
	if err := sets.PutUserSettings(model.UserSettings{Partner1Name: "X", Partner2Name: "Y", PenaltyThreshold: 3}); err != nil {
		t.Fatal(err)
	}

	if err := ss.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	st, err := ss.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.Violations) != 0 {
		t.Errorf("expected no violations after reset, got %d", len(st.Violations))
	}
	want := DefaultRules()
	if len(st.Rules) != len(want) || st.Rules[0] != want[0] || st.Rules[1] != want[1] {
		t.Errorf("rules = %+v, want %+v", st.Rules, want)
	}
	if st.Settings != DefaultSettings() {
		t.Errorf("settings = %+v", st.Settings)
	}
}

func TestReplaceWaitsForDocumentLock(t *testing.T) {
	ss := NewStateStore(setupTestDB(t))

	ss.Lock()
	done := make(chan error, 1)
	go func() {
		done <- ss.Replace(&model.AppState{
			Rules:      []model.Rule{},
			Violations: []model.Violation{},
			Settings:   DefaultSettings(),
		})
	}()

	select {
	case <-done:
		t.Fatal("Replace ran while the document was locked")
	case <-time.After(50 * time.Millisecond):
	}

	ss.Unlock()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("replace: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Replace did not finish after unlock")
	}

	ss.Lock()
	resetDone := make(chan error, 1)
	go func() { resetDone <- ss.Reset() }()
	select {
	case <-resetDone:
		t.Fatal("Reset ran while the document was locked")
	case <-time.After(50 * time.Millisecond):
	}
	ss.Unlock()
	if err := <-resetDone; err != nil {
		t.Fatalf("reset: %v", err)
	}
}
