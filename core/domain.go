package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPlatform                = errors.New("core: invalid platform")
	ErrInvalidSpecialStatusTransition = errors.New("core: invalid special status transition")
	ErrConnectionNotFound             = errors.New("core: connection not found")
	ErrSpecialNotFound                = errors.New("core: special not found")
)

type Platform string

const (
	PlatformWebsite        Platform = "website"
	PlatformGoogleBusiness Platform = "google_business"
	PlatformPOS            Platform = "pos"
	PlatformDelivery       Platform = "delivery"
)

// KnownPlatforms returns every platform a user gets a connection row for,
// in the order the dashboard renders them.
func KnownPlatforms() []Platform {
	return []Platform{
		PlatformWebsite,
		PlatformGoogleBusiness,
		PlatformPOS,
		PlatformDelivery,
	}
}

func ParsePlatform(raw string) (Platform, error) {
	platform := Platform(strings.TrimSpace(strings.ToLower(raw)))
	switch platform {
	case PlatformWebsite, PlatformGoogleBusiness, PlatformPOS, PlatformDelivery:
		return platform, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, raw)
}

type Location struct {
	ID      string
	Name    string
	Address string
}

// GoogleBusinessSettings is the typed settings payload for a
// google_business connection. LocationID stays empty until the user
// picks a location, which gates publishing.
type GoogleBusinessSettings struct {
	AccessToken       string
	RefreshToken      string
	AccountID         string
	AccountName       string
	Locations         []Location
	LocationsRaw      json.RawMessage
	LocationID        string
	LocationName      string
	LocationAddress   string
	DeleteWhenExpired bool
}

func (s *GoogleBusinessSettings) LocationByID(id string) (Location, bool) {
	if s == nil {
		return Location{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Location{}, false
	}
	for _, location := range s.Locations {
		if location.ID == id {
			return location, true
		}
	}
	return Location{}, false
}

func (s *GoogleBusinessSettings) Clone() *GoogleBusinessSettings {
	if s == nil {
		return nil
	}
	cloned := *s
	cloned.Locations = append([]Location(nil), s.Locations...)
	cloned.LocationsRaw = append(json.RawMessage(nil), s.LocationsRaw...)
	return &cloned
}

// ConnectionSettings holds the per-platform settings variants. Only the
// member matching the connection's platform is populated.
type ConnectionSettings struct {
	Google *GoogleBusinessSettings
}

func (s ConnectionSettings) Clone() ConnectionSettings {
	return ConnectionSettings{Google: s.Google.Clone()}
}

type Connection struct {
	ID          string
	UserID      string
	Platform    Platform
	IsConnected bool
	Settings    ConnectionSettings
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CTAType string

const (
	CTATypeOrder CTAType = "order"
	CTATypeWeb   CTAType = "web"
	CTATypeCall  CTAType = "call"
)

type SpecialStatus string

const (
	SpecialStatusDraft   SpecialStatus = "draft"
	SpecialStatusActive  SpecialStatus = "active"
	SpecialStatusExpired SpecialStatus = "expired"
)

type Special struct {
	ID             string
	UserID         string
	Title          string
	Description    string
	Price          string
	ImageURL       string
	RemotePostName string
	StartDate      *time.Time
	EndDate        *time.Time
	CTAType        CTAType
	CTAURL         string
	CTAPhone       string
	Status         SpecialStatus
	Views          int64
	Clicks         int64
	Shares         int64
	EmailSignups   int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSchedule reports whether the special carries both a start and an
// end date, which selects the EVENT post shape over OFFER.
func (sp *Special) HasSchedule() bool {
	if sp == nil {
		return false
	}
	return sp.StartDate != nil && sp.EndDate != nil
}

func (sp *Special) TransitionTo(status SpecialStatus, now time.Time) error {
	if sp == nil {
		return nil
	}
	if sp.Status == status {
		sp.UpdatedAt = now
		return nil
	}
	if !specialTransitionAllowed(sp.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSpecialStatusTransition, sp.Status, status)
	}
	sp.Status = status
	sp.UpdatedAt = now
	return nil
}

func specialTransitionAllowed(current, next SpecialStatus) bool {
	allowed := map[SpecialStatus]map[SpecialStatus]struct{}{
		SpecialStatusDraft: {
			SpecialStatusActive: {},
		},
		SpecialStatusActive: {
			SpecialStatusDraft:   {},
			SpecialStatusExpired: {},
		},
		SpecialStatusExpired: {
			SpecialStatusDraft:  {},
			SpecialStatusActive: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

type ActivityStatus string

const (
	ActivityStatusOK    ActivityStatus = "ok"
	ActivityStatusWarn  ActivityStatus = "warn"
	ActivityStatusError ActivityStatus = "error"
)

type ActivityEntry struct {
	ID        string
	UserID    string
	Action    string
	Platform  Platform
	SpecialID string
	Status    ActivityStatus
	Detail    string
	Metadata  map[string]any
	CreatedAt time.Time
}
