package command

import (
	"fmt"
	"strings"

	"github.com/appertivo/go-distribution/core"
)

const (
	TypeEnsureConnections = "distribution.command.connections.ensure"
	TypeConnect           = "distribution.command.connect"
	TypeCompleteCallback  = "distribution.command.callback.complete"
	TypeSelectLocation    = "distribution.command.location.select"
	TypeSetDeletionPolicy = "distribution.command.deletion_policy.set"
	TypeDisconnect        = "distribution.command.disconnect"
	TypePublishSpecial    = "distribution.command.special.publish"
	TypePublishSpecialAt  = "distribution.command.special.publish_at"
	TypeRetractSpecial    = "distribution.command.special.retract"
	TypeRunSweep          = "distribution.command.sweep.run"
)

type EnsureConnectionsMessage struct {
	UserID string
}

func (EnsureConnectionsMessage) Type() string { return TypeEnsureConnections }

func (m EnsureConnectionsMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	return nil
}

type ConnectMessage struct {
	Request core.ConnectRequest
}

func (ConnectMessage) Type() string { return TypeConnect }

func (m ConnectMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	return validatePlatform(m.Request.Platform)
}

type CompleteCallbackMessage struct {
	Request core.CompleteCallbackRequest
}

func (CompleteCallbackMessage) Type() string { return TypeCompleteCallback }

func (m CompleteCallbackMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	if strings.TrimSpace(m.Request.Code) == "" {
		return fmt.Errorf("command: authorization code is required")
	}
	return validatePlatform(m.Request.Platform)
}

type SelectLocationMessage struct {
	Request core.SelectLocationRequest
}

func (SelectLocationMessage) Type() string { return TypeSelectLocation }

func (m SelectLocationMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	if strings.TrimSpace(m.Request.LocationID) == "" {
		return fmt.Errorf("command: location id is required")
	}
	return nil
}

type SetDeletionPolicyMessage struct {
	Request core.SetDeletionPolicyRequest
}

func (SetDeletionPolicyMessage) Type() string { return TypeSetDeletionPolicy }

func (m SetDeletionPolicyMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	return nil
}

type DisconnectMessage struct {
	UserID   string
	Platform core.Platform
}

func (DisconnectMessage) Type() string { return TypeDisconnect }

func (m DisconnectMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	return validatePlatform(m.Platform)
}

type PublishSpecialMessage struct {
	SpecialID string
}

func (PublishSpecialMessage) Type() string { return TypePublishSpecial }

func (m PublishSpecialMessage) Validate() error {
	if strings.TrimSpace(m.SpecialID) == "" {
		return fmt.Errorf("command: special id is required")
	}
	return nil
}

type PublishSpecialAtMessage struct {
	SpecialID  string
	Platform   core.Platform
	LocationID string
}

func (PublishSpecialAtMessage) Type() string { return TypePublishSpecialAt }

func (m PublishSpecialAtMessage) Validate() error {
	if strings.TrimSpace(m.SpecialID) == "" {
		return fmt.Errorf("command: special id is required")
	}
	return validatePlatform(m.Platform)
}

type RetractSpecialMessage struct {
	SpecialID string
}

func (RetractSpecialMessage) Type() string { return TypeRetractSpecial }

func (m RetractSpecialMessage) Validate() error {
	if strings.TrimSpace(m.SpecialID) == "" {
		return fmt.Errorf("command: special id is required")
	}
	return nil
}

type RunSweepMessage struct{}

func (RunSweepMessage) Type() string { return TypeRunSweep }

func (RunSweepMessage) Validate() error { return nil }

func validatePlatform(platform core.Platform) error {
	if _, err := core.ParsePlatform(string(platform)); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}
