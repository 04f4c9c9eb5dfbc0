package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

type connectionRecord struct {
	bun.BaseModel `bun:"table:distribution_connections,alias:dc"`

	ID          string          `bun:"id,pk"`
	UserID      string          `bun:"user_id,notnull"`
	Platform    string          `bun:"platform,notnull"`
	IsConnected bool            `bun:"is_connected,notnull"`
	Settings    json.RawMessage `bun:"settings,type:jsonb"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt   *time.Time      `bun:"deleted_at,soft_delete"`
}

type specialRecord struct {
	bun.BaseModel `bun:"table:distribution_specials,alias:ds"`

	ID             string     `bun:"id,pk"`
	UserID         string     `bun:"user_id,notnull"`
	Title          string     `bun:"title,notnull"`
	Description    string     `bun:"description"`
	Price          string     `bun:"price"`
	ImageURL       string     `bun:"image_url"`
	RemotePostName string     `bun:"remote_post_name"`
	StartDate      *time.Time `bun:"start_date,nullzero"`
	EndDate        *time.Time `bun:"end_date,nullzero"`
	CTAType        string     `bun:"cta_type"`
	CTAURL         string     `bun:"cta_url"`
	CTAPhone       string     `bun:"cta_phone"`
	Status         string     `bun:"status,notnull"`
	Views          int64      `bun:"views,notnull,default:0"`
	Clicks         int64      `bun:"clicks,notnull,default:0"`
	Shares         int64      `bun:"shares,notnull,default:0"`
	EmailSignups   int64      `bun:"email_signups,notnull,default:0"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type activityEntryRecord struct {
	bun.BaseModel `bun:"table:distribution_activity_entries,alias:dae"`

	ID        string         `bun:"id,pk"`
	UserID    string         `bun:"user_id,notnull"`
	Action    string         `bun:"action,notnull"`
	Platform  string         `bun:"platform"`
	SpecialID string         `bun:"special_id"`
	Status    string         `bun:"status,notnull"`
	Detail    string         `bun:"detail"`
	Metadata  map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
