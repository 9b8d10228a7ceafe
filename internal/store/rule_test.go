package store

import (
	"testing"

	"github.com/dukerupert/gavel/internal/model"
)

func TestRuleSeedData(t *testing.T) {
	rs := NewRuleStore(setupTestDB(t))

	rules, err := rs.List()
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	want := DefaultRules()
	if len(rules) != len(want) {
		t.Fatalf("expected %d seeded rules, got %d", len(want), len(rules))
	}
	for i := range want {
		if rules[i] != want[i] {
			t.Errorf("rules[%d] = %+v, want %+v", i, rules[i], want[i])
		}
	}
}

func TestRuleCRUD(t *testing.T) {
	rs := NewRuleStore(setupTestDB(t))

	rule, err := rs.Create("Lights off", "Turn off the lights when leaving", model.SeverityLow)
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}
	if rule.ID == "" {
		t.Fatal("expected generated id")
	}
	if rule.Title != "Lights off" || rule.Severity != model.SeverityLow {
		t.Errorf("rule = %+v", rule)
	}

	got, err := rs.GetByID(rule.ID)
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	if got == nil || got.Description != "Turn off the lights when leaving" {
		t.Errorf("got = %+v", got)
	}

	updated, err := rs.Update(rule.ID, "Lights OFF", "", model.SeverityHigh)
	if err != nil {
		t.Fatalf("update rule: %v", err)
	}
	if updated.Title != "Lights OFF" || updated.Severity != model.SeverityHigh || updated.Description != "" {
		t.Errorf("updated = %+v", updated)
	}

	if err := rs.Delete(rule.ID); err != nil {
		t.Fatalf("delete rule: %v", err)
	}
	got, err = rs.GetByID(rule.ID)
	if err != nil {
		t.Fatalf("get deleted rule: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}

	// Deleting again is a no-op.
	if err := rs.Delete(rule.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRuleNotFound(t *testing.T) {
	rs := NewRuleStore(setupTestDB(t))

	got, err := rs.GetByID("missing")
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	if got != nil {
		t.Error("expected nil for non-existent rule")
	}
}

func TestRuleListAppendsInOrder(t *testing.T) {
	rs := NewRuleStore(setupTestDB(t))

	if _, err := rs.Create("Zebra", "", model.SeverityLow); err != nil {
		t.Fatal(err)
	}
	if _, err := rs.Create("Alpha", "", model.SeverityLow); err != nil {
		t.Fatal(err)
	}

	rules, err := rs.List()
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	if len(rules) != 4 {
		t.Fatalf("expected 4 rules, got %d", len(rules))
	}
	if rules[2].Title != "Zebra" || rules[3].Title != "Alpha" {
		t.Errorf("order = %q, %q; want Zebra, Alpha", rules[2].Title, rules[3].Title)
	}
}

func TestRuleDeleteKeepsViolations(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRuleStore(db)
	vs := NewViolationStore(db)

	rule, err := rs.Create("Temporary", "", model.SeverityHigh)
	if err != nil {
		t.Fatal(err)
	}
	v, err := vs.Create(rule.ID, model.Partner1, "", fixedTime)
	if err != nil {
		t.Fatal(err)
	}
	if err := rs.Delete(rule.ID); err != nil {
		t.Fatalf("delete rule: %v", err)
	}

	got, err := vs.GetByID(v.ID)
	if err != nil {
		t.Fatalf("get violation: %v", err)
	}
	if got == nil || got.RuleID != rule.ID {
		t.Errorf("expected orphaned violation to survive, got %+v", got)
	}
}
