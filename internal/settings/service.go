package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/dermafill/storefront-backend/pkg/config"
	"github.com/dermafill/storefront-backend/pkg/db/models"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/paypal"
)

const (
	KeyPayPal        = "paypal"
	KeyNotifications = "notifications"
)

// PayPalSettings is the admin-editable part of the PayPal setup. The client
// secret always comes from the environment.
type PayPalSettings struct {
	ClientID string           `json:"client_id"`
	Mode     enums.PayPalMode `json:"mode" validate:"required,oneof=sandbox live"`
	Enabled  bool             `json:"enabled"`
}

type NotificationSettings struct {
	AdminEmails          []string `json:"admin_emails" validate:"dive,email"`
	NotifyOnRegistration bool     `json:"notify_on_registration"`
	NotifyOnOrder        bool     `json:"notify_on_order"`
}

type store interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, key, value string) error
}

// Service reads and writes the settings rows, falling back to environment
// defaults when a row was never saved.
type Service struct {
	store  store
	paypal config.PayPalConfig
}

func NewService(st store, paypal config.PayPalConfig) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("settings store required")
	}
	return &Service{store: st, paypal: paypal}, nil
}

func (s *Service) PayPal(ctx context.Context) (PayPalSettings, error) {
	defaults := PayPalSettings{
		ClientID: strings.TrimSpace(s.paypal.ClientID),
		Mode:     enums.PayPalMode(strings.ToLower(strings.TrimSpace(s.paypal.Mode))),
	}
	if !defaults.Mode.IsValid() {
		defaults.Mode = enums.PayPalModeSandbox
	}
	defaults.Enabled = defaults.ClientID != "" && strings.TrimSpace(s.paypal.ClientSecret) != ""

	out := defaults
	found, err := s.load(ctx, KeyPayPal, &out)
	if err != nil || !found {
		return defaults, err
	}
	if out.ClientID == "" {
		out.ClientID = defaults.ClientID
	}
	if !out.Mode.IsValid() {
		out.Mode = defaults.Mode
	}
	return out, nil
}

// PayPalCredentials merges the saved settings with the environment secret.
func (s *Service) PayPalCredentials(ctx context.Context) (paypal.Credentials, error) {
	current, err := s.PayPal(ctx)
	if err != nil {
		return paypal.Credentials{}, err
	}
	secret := strings.TrimSpace(s.paypal.ClientSecret)
	return paypal.Credentials{
		ClientID:     current.ClientID,
		ClientSecret: secret,
		Mode:         current.Mode,
		Enabled:      current.Enabled && current.ClientID != "" && secret != "",
	}, nil
}

func (s *Service) UpdatePayPal(ctx context.Context, in PayPalSettings) (PayPalSettings, error) {
	in.ClientID = strings.TrimSpace(in.ClientID)
	if !in.Mode.IsValid() {
		return PayPalSettings{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid paypal mode")
	}
	if in.Enabled && in.ClientID == "" && strings.TrimSpace(s.paypal.ClientID) == "" {
		return PayPalSettings{}, pkgerrors.New(pkgerrors.CodeValidation, "client id required to enable paypal")
	}
	if err := s.save(ctx, KeyPayPal, in); err != nil {
		return PayPalSettings{}, err
	}
	return s.PayPal(ctx)
}

func (s *Service) Notifications(ctx context.Context) (NotificationSettings, error) {
	out := NotificationSettings{AdminEmails: []string{}}
	if _, err := s.load(ctx, KeyNotifications, &out); err != nil {
		return NotificationSettings{}, err
	}
	if out.AdminEmails == nil {
		out.AdminEmails = []string{}
	}
	return out, nil
}

func (s *Service) UpdateNotifications(ctx context.Context, in NotificationSettings) (NotificationSettings, error) {
	emails := make([]string, 0, len(in.AdminEmails))
	seen := map[string]struct{}{}
	for _, email := range in.AdminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
	}
	in.AdminEmails = emails
	if err := s.save(ctx, KeyNotifications, in); err != nil {
		return NotificationSettings{}, err
	}
	return in, nil
}

func (s *Service) load(ctx context.Context, key string, dst any) (bool, error) {
	row, err := s.store.Get(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load setting")
	}
	if err := json.Unmarshal([]byte(row.Value), dst); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode setting").
			WithDetails(map[string]any{"key": key})
	}
	return true, nil
}

func (s *Service) save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode setting")
	}
	if err := s.store.Upsert(ctx, key, string(raw)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save setting")
	}
	return nil
}
