package store

import (
	"testing"

	"github.com/dukerupert/gavel/internal/model"
)

func TestPushSubscriptionUpsert(t *testing.T) {
	ps := NewPushStore(setupTestDB(t))

	sub, err := ps.CreateSubscription("https://push.example/abc", "p256", "auth", model.RolePartner1, "Kitchen tablet")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.ID == 0 || sub.Role != model.RolePartner1 {
		t.Errorf("sub = %+v", sub)
	}

	again, err := ps.CreateSubscription("https://push.example/abc", "p256-new", "auth-new", model.RolePartner2, "Phone")
	if err != nil {
		t.Fatalf("re-subscribe: %v", err)
	}
	if again.ID != sub.ID {
		t.Errorf("re-subscribe id = %d, want %d", again.ID, sub.ID)
	}
	if again.P256dhKey != "p256-new" || again.Role != model.RolePartner2 || again.DeviceName != "Phone" {
		t.Errorf("re-subscribe = %+v", again)
	}

	subs, err := ps.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
}

func TestPushSubscriptionDelete(t *testing.T) {
	ps := NewPushStore(setupTestDB(t))

	a, _ := ps.CreateSubscription("https://push.example/a", "k", "a", model.RoleObserver, "")
	if _, err := ps.CreateSubscription("https://push.example/b", "k", "a", model.RoleObserver, ""); err != nil {
		t.Fatal(err)
	}

	if err := ps.DeleteSubscription(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := ps.GetByID(a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}

	if err := ps.DeleteByEndpoint("https://push.example/b"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	subs, _ := ps.List()
	if len(subs) != 0 {
		t.Errorf("expected no subscriptions, got %d", len(subs))
	}
}
