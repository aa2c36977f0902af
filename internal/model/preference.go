package model

import (
	"time"

	"github.com/google/uuid"
)

// ChannelSetting is the recipient's opt-in across delivery channels.
type ChannelSetting string

const (
	ChannelSettingNone  ChannelSetting = "none"
	ChannelSettingInApp ChannelSetting = "in_app"
	ChannelSettingEmail ChannelSetting = "email"
	ChannelSettingBoth  ChannelSetting = "both"
)

// DefaultChannelSetting applies when a recipient has no preference row yet.
const DefaultChannelSetting = ChannelSettingBoth

func (s ChannelSetting) Valid() bool {
	switch s {
	case ChannelSettingNone, ChannelSettingInApp, ChannelSettingEmail, ChannelSettingBoth:
		return true
	}
	return false
}

func (s ChannelSetting) Includes(c Channel) bool {
	switch c {
	case ChannelInApp:
		return s == ChannelSettingInApp || s == ChannelSettingBoth
	case ChannelEmail:
		return s == ChannelSettingEmail || s == ChannelSettingBoth
	}
	return false
}

type NotificationPreference struct {
	RecipientID    uuid.UUID      `json:"recipient_id" db:"recipient_id"`
	ChannelSetting ChannelSetting `json:"channel_setting" db:"channel_setting"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

type PreferenceRequest struct {
	ChannelSetting ChannelSetting `json:"channel_setting" validate:"required,oneof=none in_app email both" binding:"required"`
}
