package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/familypoints/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired is returned when the push service reports the subscription
// gone (404 or 410). The caller should delete it.
var ErrExpired = errors.New("push subscription expired")

// DefaultSubject is the VAPID contact used when none is configured.
const DefaultSubject = "mailto:noreply@familypoints.app"

// Payload is the JSON the service worker receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Config carries the VAPID key pair and delivery options.
type Config struct {
	PublicKey  string
	PrivateKey string
	// Subject is the contact the push service may use, a mailto: or
	// https: URL.
	Subject string
	// TTL is how long the push service keeps an undelivered message.
	TTL        time.Duration
	HTTPClient *http.Client
}

// Service delivers web push notifications for review events.
type Service struct {
	cfg Config
}

func NewService(cfg Config) (*Service, error) {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil, errors.New("push: VAPID public and private keys are required")
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if !strings.HasPrefix(cfg.Subject, "mailto:") && !strings.HasPrefix(cfg.Subject, "https://") {
		return nil, fmt.Errorf("push: subject %q must be a mailto: or https: URL", cfg.Subject)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Service{cfg: cfg}, nil
}

// VAPIDPublicKey returns the key browsers subscribe with.
func (s *Service) VAPIDPublicKey() string {
	return s.cfg.PublicKey
}

// Send encrypts payload for one device. A payload Tag doubles as the push
// topic, so a newer notification replaces an undelivered one of the same kind.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	opts := &webpush.Options{
		Subscriber:      strings.TrimPrefix(s.cfg.Subject, "mailto:"),
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             int(s.cfg.TTL / time.Second),
		Topic:           payload.Tag,
		Urgency:         webpush.UrgencyNormal,
	}
	if s.cfg.HTTPClient != nil {
		opts.HTTPClient = s.cfg.HTTPClient
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, opts)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrExpired
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys returns a fresh base64url key pair, public key first.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate VAPID keys: %w", err)
	}
	return publicKey, privateKey, nil
}
