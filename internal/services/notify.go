package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/internal/roles"
	"github.com/groceryshare/backend/pkg/logger"
	"gorm.io/gorm"
)

const DefaultFeedLimit = 50

// NotificationService writes and reads the per-user notification feed.
// Notifications are created in the same transaction as the change they
// describe, so a mutation and its fan-out either both land or neither does.
type NotificationService struct {
	DB        *gorm.DB
	FeedLimit int
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db, FeedLimit: DefaultFeedLimit}
}

// Create inserts one notification. Icon and action type are validated so a
// bad caller cannot put an unrenderable row in the feed.
func (n *NotificationService) Create(ctx context.Context, tx *gorm.DB, notification *models.Notification) error {
	if tx == nil {
		tx = n.DB
	}
	if !models.ValidNotificationIcon(notification.Icon) {
		return fmt.Errorf("invalid notification icon %q", notification.Icon)
	}
	if notification.ActionType != nil && !models.ValidNotificationAction(*notification.ActionType) {
		return fmt.Errorf("invalid notification action %q", *notification.ActionType)
	}
	if notification.Actionable && notification.ActionType == nil {
		return fmt.Errorf("actionable notification requires an action type")
	}

	return tx.WithContext(ctx).Create(notification).Error
}

// Notify inserts a plain informational notification for one user.
func (n *NotificationService) Notify(ctx context.Context, tx *gorm.DB, userID uuid.UUID, icon models.NotificationIcon, message string) error {
	return n.Create(ctx, tx, &models.Notification{
		UserID:  userID,
		Icon:    icon,
		Message: message,
		Unread:  true,
	})
}

// NotifyMany fans one informational message out to several users.
func (n *NotificationService) NotifyMany(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, icon models.NotificationIcon, message string) error {
	for _, userID := range userIDs {
		if err := n.Notify(ctx, tx, userID, icon, message); err != nil {
			return err
		}
	}
	return nil
}

// InvitePayload is stored on a join request notification so the confirmed
// membership gets the role the inviter chose, not a role the invitee picks.
type InvitePayload struct {
	UserRole roles.Role `json:"user_role"`
}

// NotifyInvite creates the actionable join request a list invitation
// produces. Membership is only created when the invitee confirms.
func (n *NotificationService) NotifyInvite(ctx context.Context, tx *gorm.DB, userID, listID uuid.UUID, listName, inviterName string, role roles.Role) error {
	payload, err := json.Marshal(InvitePayload{UserRole: role})
	if err != nil {
		return err
	}

	action := models.NotificationActionJoinListRequest
	data := string(payload)
	return n.Create(ctx, tx, &models.Notification{
		UserID:          userID,
		Icon:            models.NotificationIconInvite,
		Message:         fmt.Sprintf("%s invited you to join the list '%s'.", inviterName, listName),
		Actionable:      true,
		ActionType:      &action,
		RequestedListID: &listID,
		Unread:          true,
		Data:            &data,
	})
}

// InviteRole extracts the role stored on a join request notification.
// Older rows without a payload fall back to Viewer.
func InviteRole(notification *models.Notification) roles.Role {
	if notification.Data == nil {
		return roles.Viewer
	}

	var payload InvitePayload
	if err := json.Unmarshal([]byte(*notification.Data), &payload); err != nil {
		logger.Warn("invite_payload_unreadable", map[string]interface{}{
			"notification_id": notification.ID.String(),
		})
		return roles.Viewer
	}
	if !roles.Valid(payload.UserRole) {
		return roles.Viewer
	}
	return payload.UserRole
}

// Feed returns the user's notifications, unread before read and newest
// first within each group, capped at the feed limit.
func (n *NotificationService) Feed(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	limit := n.FeedLimit
	if limit <= 0 {
		limit = DefaultFeedLimit
	}

	var notifications []models.Notification
	err := n.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unread DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// UnreadCount counts the user's unread notifications.
func (n *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := n.DB.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND unread = ?", userID, true).
		Count(&count).Error
	return count, err
}

// MarkRead marks one of the user's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result := n.DB.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("unread", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllRead marks every notification of the user as read.
func (n *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return n.DB.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND unread = ?", userID, true).
		Update("unread", false).Error
}

// Delete removes one of the user's notifications.
func (n *NotificationService) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	result := n.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAll clears the user's feed.
func (n *NotificationService) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	return n.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Notification{}).Error
}
