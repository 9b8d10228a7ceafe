package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dukerupert/gavel/internal/model"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

// browserSubscription returns a subscription whose keys look like the ones a
// browser hands out, pointing at endpoint.
func browserSubscription(t *testing.T, endpoint string) model.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatal(err)
	}
	return model.PushSubscription{
		ID:        1,
		Endpoint:  endpoint,
		P256dhKey: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		AuthKey:   base64.RawURLEncoding.EncodeToString(auth),
		Role:      model.RolePartner1,
	}
}

func TestServiceSend(t *testing.T) {
	var gotAuth, gotEncoding atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		gotEncoding.Store(r.Header.Get("Content-Encoding"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(pub, priv, "mailto:test@example.com")

	err = svc.Send(context.Background(), browserSubscription(t, srv.URL), Payload{Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if auth, _ := gotAuth.Load().(string); !strings.HasPrefix(auth, "vapid ") {
		t.Errorf("Authorization = %q, want vapid scheme", auth)
	}
	if enc, _ := gotEncoding.Load().(string); enc != "aes128gcm" {
		t.Errorf("Content-Encoding = %q, want aes128gcm", enc)
	}
}

func TestServiceSendGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	pub, priv, _ := GenerateVAPIDKeys()
	svc := NewService(pub, priv, "mailto:test@example.com")

	err := svc.Send(context.Background(), browserSubscription(t, srv.URL), Payload{Title: "t"})
	if err != ErrExpired {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

func TestServiceSendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pub, priv, _ := GenerateVAPIDKeys()
	svc := NewService(pub, priv, "mailto:test@example.com")

	err := svc.Send(context.Background(), browserSubscription(t, srv.URL), Payload{Title: "t"})
	if err == nil || err == ErrExpired {
		t.Errorf("err = %v, want generic failure", err)
	}
}
