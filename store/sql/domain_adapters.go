package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/appertivo/go-distribution/core"
)

// settingsDocument is the persisted shape of connection settings. The
// column stays a single jsonb document so adding a platform variant is
// a code change, not a migration.
type settingsDocument struct {
	Google *googleSettingsDocument `json:"google,omitempty"`
}

type googleSettingsDocument struct {
	AccessToken       string             `json:"access_token,omitempty"`
	RefreshToken      string             `json:"refresh_token,omitempty"`
	AccountID         string             `json:"account_id,omitempty"`
	AccountName       string             `json:"account_name,omitempty"`
	Locations         []locationDocument `json:"locations,omitempty"`
	LocationsRaw      json.RawMessage    `json:"locations_raw,omitempty"`
	LocationID        string             `json:"location_id,omitempty"`
	LocationName      string             `json:"location_name,omitempty"`
	LocationAddress   string             `json:"location_address,omitempty"`
	DeleteWhenExpired bool               `json:"delete_when_expired"`
}

type locationDocument struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

func encodeSettings(settings core.ConnectionSettings) (json.RawMessage, error) {
	doc := settingsDocument{}
	if settings.Google != nil {
		google := &googleSettingsDocument{
			AccessToken:       settings.Google.AccessToken,
			RefreshToken:      settings.Google.RefreshToken,
			AccountID:         settings.Google.AccountID,
			AccountName:       settings.Google.AccountName,
			LocationsRaw:      append(json.RawMessage(nil), settings.Google.LocationsRaw...),
			LocationID:        settings.Google.LocationID,
			LocationName:      settings.Google.LocationName,
			LocationAddress:   settings.Google.LocationAddress,
			DeleteWhenExpired: settings.Google.DeleteWhenExpired,
		}
		for _, location := range settings.Google.Locations {
			google.Locations = append(google.Locations, locationDocument{
				ID:      location.ID,
				Name:    location.Name,
				Address: location.Address,
			})
		}
		doc.Google = google
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: encode connection settings: %w", err)
	}
	return encoded, nil
}

func decodeSettings(raw json.RawMessage) (core.ConnectionSettings, error) {
	if len(raw) == 0 {
		return core.ConnectionSettings{}, nil
	}
	var doc settingsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return core.ConnectionSettings{}, fmt.Errorf("sqlstore: decode connection settings: %w", err)
	}
	settings := core.ConnectionSettings{}
	if doc.Google != nil {
		google := &core.GoogleBusinessSettings{
			AccessToken:       doc.Google.AccessToken,
			RefreshToken:      doc.Google.RefreshToken,
			AccountID:         doc.Google.AccountID,
			AccountName:       doc.Google.AccountName,
			LocationsRaw:      append(json.RawMessage(nil), doc.Google.LocationsRaw...),
			LocationID:        doc.Google.LocationID,
			LocationName:      doc.Google.LocationName,
			LocationAddress:   doc.Google.LocationAddress,
			DeleteWhenExpired: doc.Google.DeleteWhenExpired,
		}
		for _, location := range doc.Google.Locations {
			google.Locations = append(google.Locations, core.Location{
				ID:      location.ID,
				Name:    location.Name,
				Address: location.Address,
			})
		}
		settings.Google = google
	}
	return settings, nil
}

func newConnectionRecord(in core.CreateConnectionInput, now time.Time) (*connectionRecord, error) {
	settings, err := encodeSettings(in.Settings)
	if err != nil {
		return nil, err
	}
	return &connectionRecord{
		UserID:      in.UserID,
		Platform:    string(in.Platform),
		IsConnected: in.IsConnected,
		Settings:    settings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (r *connectionRecord) toDomain() (core.Connection, error) {
	if r == nil {
		return core.Connection{}, nil
	}
	settings, err := decodeSettings(r.Settings)
	if err != nil {
		return core.Connection{}, err
	}
	return core.Connection{
		ID:          r.ID,
		UserID:      r.UserID,
		Platform:    core.Platform(r.Platform),
		IsConnected: r.IsConnected,
		Settings:    settings,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func (r *specialRecord) toDomain() core.Special {
	if r == nil {
		return core.Special{}
	}
	special := core.Special{
		ID:             r.ID,
		UserID:         r.UserID,
		Title:          r.Title,
		Description:    r.Description,
		Price:          r.Price,
		ImageURL:       r.ImageURL,
		RemotePostName: r.RemotePostName,
		CTAType:        core.CTAType(r.CTAType),
		CTAURL:         r.CTAURL,
		CTAPhone:       r.CTAPhone,
		Status:         core.SpecialStatus(r.Status),
		Views:          r.Views,
		Clicks:         r.Clicks,
		Shares:         r.Shares,
		EmailSignups:   r.EmailSignups,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.StartDate != nil {
		value := *r.StartDate
		special.StartDate = &value
	}
	if r.EndDate != nil {
		value := *r.EndDate
		special.EndDate = &value
	}
	return special
}

func newSpecialRecord(special core.Special, now time.Time) *specialRecord {
	record := &specialRecord{
		ID:             special.ID,
		UserID:         special.UserID,
		Title:          special.Title,
		Description:    special.Description,
		Price:          special.Price,
		ImageURL:       special.ImageURL,
		RemotePostName: special.RemotePostName,
		CTAType:        string(special.CTAType),
		CTAURL:         special.CTAURL,
		CTAPhone:       special.CTAPhone,
		Status:         string(special.Status),
		Views:          special.Views,
		Clicks:         special.Clicks,
		Shares:         special.Shares,
		EmailSignups:   special.EmailSignups,
		CreatedAt:      special.CreatedAt,
		UpdatedAt:      now,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if special.StartDate != nil {
		value := *special.StartDate
		record.StartDate = &value
	}
	if special.EndDate != nil {
		value := *special.EndDate
		record.EndDate = &value
	}
	return record
}

func activityRecordToDomain(record *activityEntryRecord) core.ActivityEntry {
	if record == nil {
		return core.ActivityEntry{}
	}
	return core.ActivityEntry{
		ID:        record.ID,
		UserID:    record.UserID,
		Action:    record.Action,
		Platform:  core.Platform(record.Platform),
		SpecialID: record.SpecialID,
		Status:    core.ActivityStatus(record.Status),
		Detail:    record.Detail,
		Metadata:  copyAnyMap(record.Metadata),
		CreatedAt: record.CreatedAt,
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
