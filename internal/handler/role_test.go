package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/gavel/internal/middleware"
	"github.com/dukerupert/gavel/internal/model"
	"github.com/dukerupert/gavel/internal/store"
)

func roleCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.RoleCookieName {
			return c
		}
	}
	return nil
}

func setupRoleHandler(t *testing.T) (*RoleHandler, *store.SessionStore) {
	t.Helper()
	db := setupTestDB(t)
	ss := store.NewSessionStore(db)
	return NewRoleHandler(store.NewPINStore(db), ss, discardLogger), ss
}

func pinRequest(method, partner string, body any, role model.Role) *http.Request {
	req := newRequest(method, "/api/partners/"+partner+"/pin", body, role)
	req.SetPathValue("partner", partner)
	return req
}

func TestRoleGetNone(t *testing.T) {
	h, _ := setupRoleHandler(t)

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest("GET", "/api/role", nil, ""))
	got := decodeBody[roleResponse](t, rec)
	if got.Role != nil {
		t.Errorf("role = %v, want null", *got.Role)
	}
	if got.PINRequired.Partner1 || got.PINRequired.Partner2 {
		t.Error("no PINs should be required by default")
	}
}

func TestRoleSelect(t *testing.T) {
	h, sessions := setupRoleHandler(t)

	rec := httptest.NewRecorder()
	h.Select(rec, newRequest("POST", "/api/role", map[string]string{"role": "observer"}, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	c := roleCookie(rec)
	if c == nil || !c.HttpOnly {
		t.Fatalf("cookie = %+v", c)
	}
	if c.Value == "observer" {
		t.Error("cookie must carry a session token, not the role")
	}
	sess, _ := sessions.GetByToken(c.Value)
	if sess == nil || sess.Role != model.RoleObserver {
		t.Errorf("session = %+v", sess)
	}

	// switching roles replaces the old session
	req := newRequest("POST", "/api/role", map[string]string{"role": "partner2"}, "")
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.Select(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("switch: status = %d", rec.Code)
	}
	if old, _ := sessions.GetByToken(c.Value); old != nil {
		t.Error("previous session survived a role switch")
	}

	rec = httptest.NewRecorder()
	h.Select(rec, newRequest("POST", "/api/role", map[string]string{"role": "judge"}, ""))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid role: status = %d, want 400", rec.Code)
	}
}

func TestRoleClear(t *testing.T) {
	h, sessions := setupRoleHandler(t)
	sess, _ := sessions.Create(model.RolePartner1)

	req := newRequest("DELETE", "/api/role", nil, model.RolePartner1)
	req.AddCookie(&http.Cookie{Name: middleware.RoleCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	h.Clear(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if c := roleCookie(rec); c == nil || c.MaxAge >= 0 {
		t.Errorf("cookie should be expired, got %+v", c)
	}
	if got, _ := sessions.GetByToken(sess.Token); got != nil {
		t.Error("session should be deleted")
	}
}

func TestSetPINSignsOutOtherDevices(t *testing.T) {
	h, sessions := setupRoleHandler(t)
	mine, _ := sessions.Create(model.RolePartner1)
	stolen, _ := sessions.Create(model.RolePartner1)
	theirs, _ := sessions.Create(model.RolePartner2)

	req := pinRequest("PUT", "partner1", map[string]string{"pin": "4321"}, model.RolePartner1)
	req.AddCookie(&http.Cookie{Name: middleware.RoleCookieName, Value: mine.Token})
	rec := httptest.NewRecorder()
	h.SetPIN(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if s, _ := sessions.GetByToken(mine.Token); s == nil {
		t.Error("the device setting the PIN was signed out")
	}
	if s, _ := sessions.GetByToken(stolen.Token); s != nil {
		t.Error("another partner1 device kept its role without the PIN")
	}
	if s, _ := sessions.GetByToken(theirs.Token); s == nil {
		t.Error("partner2 was signed out")
	}
}

func TestRolePINFlow(t *testing.T) {
	h, _ := setupRoleHandler(t)

	// another partner cannot lock partner1
	rec := httptest.NewRecorder()
	h.SetPIN(rec, pinRequest("PUT", "partner1", map[string]string{"pin": "1234"}, model.RolePartner2))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign PIN: status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.SetPIN(rec, pinRequest("PUT", "partner1", map[string]string{"pin": "12a4"}, model.RolePartner1))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-digit PIN: status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.SetPIN(rec, pinRequest("PUT", "partner1", map[string]string{"pin": "1234"}, model.RolePartner1))
	if rec.Code != http.StatusOK {
		t.Fatalf("set PIN: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Get(rec, newRequest("GET", "/api/role", nil, ""))
	if got := decodeBody[roleResponse](t, rec); !got.PINRequired.Partner1 || got.PINRequired.Partner2 {
		t.Errorf("pinRequired = %+v", got.PINRequired)
	}

	rec = httptest.NewRecorder()
	h.Select(rec, newRequest("POST", "/api/role", map[string]string{"role": "partner1", "pin": "0000"}, ""))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong PIN: status = %d, want 401", rec.Code)
	}
	if roleCookie(rec) != nil {
		t.Error("wrong PIN must not set the role")
	}

	rec = httptest.NewRecorder()
	h.Select(rec, newRequest("POST", "/api/role", map[string]string{"role": "partner1", "pin": "1234"}, ""))
	if rec.Code != http.StatusOK {
		t.Errorf("right PIN: status = %d, want 200", rec.Code)
	}

	// partner2 is unlocked
	rec = httptest.NewRecorder()
	h.Select(rec, newRequest("POST", "/api/role", map[string]string{"role": "partner2"}, ""))
	if rec.Code != http.StatusOK {
		t.Errorf("unlocked partner: status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ClearPIN(rec, pinRequest("DELETE", "partner1", nil, model.RolePartner1))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear PIN: status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.Select(rec, newRequest("POST", "/api/role", map[string]string{"role": "partner1"}, ""))
	if rec.Code != http.StatusOK {
		t.Errorf("after clear: status = %d, want 200", rec.Code)
	}
}

func TestRolePINUnknownPartner(t *testing.T) {
	h, _ := setupRoleHandler(t)

	rec := httptest.NewRecorder()
	h.SetPIN(rec, pinRequest("PUT", "partner3", map[string]string{"pin": "1234"}, model.RolePartner1))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
