// Package location stores the region a visitor declared for the storefront.
package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/dermafill/storefront-backend/pkg/access"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
)

// Preference is what a visitor has told us about where they practise.
type Preference struct {
	Region                 *enums.Location `json:"region"`
	InternationalConfirmed bool            `json:"international_confirmed"`
	Resolved               access.Location `json:"resolved"`
}

// UpdateRequest is the body of PUT /location.
type UpdateRequest struct {
	Region                 enums.Location `json:"region" validate:"required,oneof=portugal international"`
	InternationalConfirmed bool           `json:"international_confirmed"`
}

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	LocationKey(visitorID string) string
	InternationalConfirmedKey(visitorID string) string
}

// Service reads and writes visitor preferences.
type Service struct {
	store store
	ttl   time.Duration
}

func NewService(store store, ttl time.Duration) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("location store is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("location ttl must be positive")
	}
	return &Service{store: store, ttl: ttl}, nil
}

// Get returns the stored preference. Unknown visitors get an empty preference.
func (s *Service) Get(ctx context.Context, visitorID string) (Preference, error) {
	if strings.TrimSpace(visitorID) == "" {
		return Preference{Resolved: access.LocationUnknown}, nil
	}

	rawRegion, err := s.read(ctx, s.store.LocationKey(visitorID))
	if err != nil {
		return Preference{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read location")
	}
	rawConfirmed, err := s.read(ctx, s.store.InternationalConfirmedKey(visitorID))
	if err != nil {
		return Preference{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read location confirmation")
	}

	pref := Preference{}
	if region, err := enums.ParseLocation(rawRegion); err == nil {
		pref.Region = &region
	}
	pref.InternationalConfirmed, _ = strconv.ParseBool(rawConfirmed)
	pref.Resolved = Resolve(pref.Region, pref.InternationalConfirmed)
	return pref, nil
}

// Set stores the preference. Choosing Portugal clears any earlier confirmation.
func (s *Service) Set(ctx context.Context, visitorID string, req UpdateRequest) (Preference, error) {
	if strings.TrimSpace(visitorID) == "" {
		return Preference{}, pkgerrors.New(pkgerrors.CodeValidation, "visitor id is required")
	}
	if !req.Region.IsValid() {
		return Preference{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid region")
	}

	confirmed := req.Region == enums.LocationInternational && req.InternationalConfirmed
	if err := s.store.Set(ctx, s.store.LocationKey(visitorID), req.Region.String(), s.ttl); err != nil {
		return Preference{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store location")
	}
	if err := s.store.Set(ctx, s.store.InternationalConfirmedKey(visitorID), strconv.FormatBool(confirmed), s.ttl); err != nil {
		return Preference{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store location confirmation")
	}

	region := req.Region
	return Preference{
		Region:                 &region,
		InternationalConfirmed: confirmed,
		Resolved:               Resolve(&region, confirmed),
	}, nil
}

// Clear forgets the visitor's choice.
func (s *Service) Clear(ctx context.Context, visitorID string) error {
	if strings.TrimSpace(visitorID) == "" {
		return nil
	}
	if err := s.store.Del(ctx, s.store.LocationKey(visitorID), s.store.InternationalConfirmedKey(visitorID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear location")
	}
	return nil
}

// Resolve turns a stored preference into the gate's location. International
// only counts once the visitor has self-certified.
func Resolve(region *enums.Location, internationalConfirmed bool) access.Location {
	if region == nil {
		return access.LocationUnknown
	}
	switch *region {
	case enums.LocationPortugal:
		return access.LocationPortugal
	case enums.LocationInternational:
		if internationalConfirmed {
			return access.LocationInternational
		}
	}
	return access.LocationUnknown
}

func (s *Service) read(ctx context.Context, key string) (string, error) {
	value, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}
