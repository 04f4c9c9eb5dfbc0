package query

import (
	"fmt"
	"strings"

	"github.com/appertivo/go-distribution/core"
)

const (
	TypeGetConnection = "distribution.query.connection.get"
	TypeListConnected = "distribution.query.connection.list_connected"
	TypeGetSpecial    = "distribution.query.special.get"
	TypeListActivity  = "distribution.query.activity.list"
)

type GetConnectionMessage struct {
	UserID   string
	Platform core.Platform
}

func (GetConnectionMessage) Type() string { return TypeGetConnection }

func (m GetConnectionMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	if _, err := core.ParsePlatform(string(m.Platform)); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}

type ListConnectedMessage struct {
	UserID string
}

func (ListConnectedMessage) Type() string { return TypeListConnected }

func (m ListConnectedMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	return nil
}

type GetSpecialMessage struct {
	SpecialID string
}

func (GetSpecialMessage) Type() string { return TypeGetSpecial }

func (m GetSpecialMessage) Validate() error {
	if strings.TrimSpace(m.SpecialID) == "" {
		return fmt.Errorf("query: special id is required")
	}
	return nil
}

type ListActivityMessage struct {
	Filter core.ActivityFilter
}

func (ListActivityMessage) Type() string { return TypeListActivity }

func (m ListActivityMessage) Validate() error {
	if m.Filter.Page < 0 {
		return fmt.Errorf("query: page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return fmt.Errorf("query: per_page must be >= 0")
	}
	return nil
}
