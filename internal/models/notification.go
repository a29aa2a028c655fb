package models

import "github.com/google/uuid"

// NotificationIcon drives the icon shown next to a feed entry.
type NotificationIcon string

const (
	NotificationIconInvite  NotificationIcon = "invite"
	NotificationIconEdit    NotificationIcon = "edit"
	NotificationIconDelete  NotificationIcon = "delete"
	NotificationIconDefault NotificationIcon = "none"
)

// NotificationAction identifies the flow behind an actionable entry.
type NotificationAction string

const (
	NotificationActionJoinListRequest NotificationAction = "join_list_request"
)

type Notification struct {
	BaseModel
	UserID          uuid.UUID           `json:"-" gorm:"type:uuid;not null;index"`
	Icon            NotificationIcon    `json:"icon" gorm:"type:varchar(20);not null;default:'none'"`
	Message         string              `json:"message" gorm:"type:text;not null"`
	Actionable      bool                `json:"actionable" gorm:"not null;default:false"`
	ActionType      *NotificationAction `json:"action_type,omitempty" gorm:"type:varchar(40)"`
	RequestedListID *uuid.UUID          `json:"requested_list_id,omitempty" gorm:"type:uuid"`
	Unread          bool                `json:"unread" gorm:"not null;default:true"`
	Data            *string             `json:"data,omitempty" gorm:"type:text"`
}

func ValidNotificationIcon(icon NotificationIcon) bool {
	switch icon {
	case NotificationIconInvite, NotificationIconEdit, NotificationIconDelete, NotificationIconDefault:
		return true
	default:
		return false
	}
}

func ValidNotificationAction(action NotificationAction) bool {
	return action == NotificationActionJoinListRequest
}
