package push

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/familypoints/internal/model"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
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

type fakeSender struct {
	errs map[string]error
	sent []Payload
}

func (f *fakeSender) Send(ctx context.Context, sub *model.PushSubscription, p Payload) error {
	if err := f.errs[sub.Endpoint]; err != nil {
		return err
	}
	f.sent = append(f.sent, p)
	return nil
}

type fakeSubs struct {
	subs    []model.PushSubscription
	deleted []string
}

func (f *fakeSubs) ListByUser(userID int64) ([]model.PushSubscription, error) {
	return f.subs, nil
}

func (f *fakeSubs) DeleteByEndpoint(endpoint string) error {
	f.deleted = append(f.deleted, endpoint)
	return nil
}

func TestNotifyUserPrunesExpired(t *testing.T) {
	sender := &fakeSender{errs: map[string]error{
		"gone":   ErrExpired,
		"broken": errors.New("503"),
	}}
	subs := &fakeSubs{subs: []model.PushSubscription{
		{ID: 1, Endpoint: "ok"},
		{ID: 2, Endpoint: "gone"},
		{ID: 3, Endpoint: "broken"},
	}}
	n := &Notifier{sender: sender, subs: subs, logger: slog.Default()}

	if got := n.NotifyUser(1, Payload{Title: "hi"}); got != 1 {
		t.Errorf("sent = %d, want 1", got)
	}
	if len(subs.deleted) != 1 || subs.deleted[0] != "gone" {
		t.Errorf("deleted = %v, want [gone]", subs.deleted)
	}
}

func TestSubmissionPendingPayload(t *testing.T) {
	sender := &fakeSender{}
	n := &Notifier{sender: sender, subs: &fakeSubs{subs: []model.PushSubscription{{Endpoint: "ok"}}}, logger: slog.Default()}

	n.SubmissionPending(1, "Kid", "Dishes")
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	if sender.sent[0].Body != `Kid finished "Dishes"` {
		t.Errorf("body = %q", sender.sent[0].Body)
	}
	if sender.sent[0].Tag != "submission-pending" {
		t.Errorf("tag = %q, want submission-pending", sender.sent[0].Tag)
	}
}

func TestNewServiceConfig(t *testing.T) {
	pub, priv, _ := GenerateVAPIDKeys()

	if _, err := NewService(Config{PublicKey: pub}); err == nil {
		t.Error("expected error without private key")
	}
	if _, err := NewService(Config{PublicKey: pub, PrivateKey: priv, Subject: "admin@example.com"}); err == nil {
		t.Error("expected error for bare email subject")
	}

	svc, err := NewService(Config{PublicKey: pub, PrivateKey: priv})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if svc.cfg.Subject != DefaultSubject {
		t.Errorf("subject = %q, want %q", svc.cfg.Subject, DefaultSubject)
	}
	if svc.cfg.TTL != 24*time.Hour {
		t.Errorf("ttl = %v, want 24h", svc.cfg.TTL)
	}
	if svc.VAPIDPublicKey() != pub {
		t.Errorf("public key = %q, want %q", svc.VAPIDPublicKey(), pub)
	}
}

// testSubscription returns a subscription whose keys encrypt correctly.
func testSubscription(t *testing.T, endpoint string) *model.PushSubscription {
	t.Helper()
	p256dh, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate device key: %v", err)
	}
	secret := make([]byte, 16)
	rand.Read(secret)
	return &model.PushSubscription{
		Endpoint:  endpoint,
		P256dhKey: p256dh,
		AuthKey:   base64.RawURLEncoding.EncodeToString(secret),
	}
}

func TestServiceSend(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
		fails   bool
	}{
		{"created", http.StatusCreated, nil, false},
		{"gone", http.StatusGone, ErrExpired, true},
		{"not found", http.StatusNotFound, ErrExpired, true},
		{"server error", http.StatusInternalServerError, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ttl, topic, urgency string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ttl = r.Header.Get("TTL")
				topic = r.Header.Get("Topic")
				urgency = r.Header.Get("Urgency")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			pub, priv, _ := GenerateVAPIDKeys()
			svc, err := NewService(Config{PublicKey: pub, PrivateKey: priv, TTL: time.Hour, HTTPClient: srv.Client()})
			if err != nil {
				t.Fatalf("new service: %v", err)
			}

			err = svc.Send(context.Background(), testSubscription(t, srv.URL), Payload{Title: "hi", Tag: "submission-pending"})
			if tt.fails != (err != nil) {
				t.Fatalf("err = %v, want failure %v", err, tt.fails)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if ttl != "3600" {
				t.Errorf("TTL header = %q, want 3600", ttl)
			}
			if topic != "submission-pending" {
				t.Errorf("Topic header = %q, want submission-pending", topic)
			}
			if urgency != "normal" {
				t.Errorf("Urgency header = %q, want normal", urgency)
			}
		})
	}
}
