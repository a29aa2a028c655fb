package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/internal/roles"
)

func TestNotificationService_CreateValidation(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewNotificationService(db)
	ctx := context.Background()
	user := createServiceTestUser(t, db, "recipient")

	t.Run("rejects unknown icon", func(t *testing.T) {
		err := service.Create(ctx, nil, &models.Notification{
			UserID:  user.ID,
			Icon:    "sparkles",
			Message: "hello",
		})
		if err == nil {
			t.Error("expected an invalid icon to be rejected")
		}
	})

	t.Run("rejects actionable row without action type", func(t *testing.T) {
		err := service.Create(ctx, nil, &models.Notification{
			UserID:     user.ID,
			Icon:       models.NotificationIconInvite,
			Message:    "hello",
			Actionable: true,
		})
		if err == nil {
			t.Error("expected an actionable notification without action type to be rejected")
		}
	})

	t.Run("accepts a plain informational row", func(t *testing.T) {
		if err := service.Notify(ctx, nil, user.ID, models.NotificationIconEdit, "list changed"); err != nil {
			t.Fatalf("expected create to succeed, got %v", err)
		}
	})
}

func TestNotificationService_InviteRoundTrip(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewNotificationService(db)
	ctx := context.Background()

	owner := createServiceTestUser(t, db, "owner")
	invitee := createServiceTestUser(t, db, "invitee")
	list := createServiceTestList(t, db, "Dinner", owner)

	if err := service.NotifyInvite(ctx, nil, invitee.ID, list.ID, list.Name, owner.Username, roles.Editor); err != nil {
		t.Fatalf("NotifyInvite failed: %v", err)
	}

	feed, err := service.Feed(ctx, invitee.ID)
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("expected one notification, got %d", len(feed))
	}

	invite := feed[0]
	if !invite.Actionable || invite.ActionType == nil || *invite.ActionType != models.NotificationActionJoinListRequest {
		t.Fatalf("expected an actionable join request, got %+v", invite)
	}
	if invite.RequestedListID == nil || *invite.RequestedListID != list.ID {
		t.Fatalf("expected requested list id %s, got %v", list.ID, invite.RequestedListID)
	}
	if role := InviteRole(&invite); role != roles.Editor {
		t.Errorf("expected stored invite role Editor, got %s", role)
	}
}

func TestInviteRoleFallsBackToViewer(t *testing.T) {
	garbage := "not json"
	tests := []struct {
		name         string
		notification models.Notification
	}{
		{"missing payload", models.Notification{}},
		{"unreadable payload", models.Notification{Data: &garbage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if role := InviteRole(&tt.notification); role != roles.Viewer {
				t.Errorf("expected fallback role Viewer, got %s", role)
			}
		})
	}
}

func TestNotificationService_FeedOrderingAndLimit(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewNotificationService(db)
	service.FeedLimit = 10
	ctx := context.Background()
	user := createServiceTestUser(t, db, "busy")

	for i := 0; i < 12; i++ {
		notification := &models.Notification{
			UserID:  user.ID,
			Icon:    models.NotificationIconEdit,
			Message: fmt.Sprintf("change %d", i),
			Unread:  i%2 == 0,
		}
		if err := service.Create(ctx, nil, notification); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		// Distinct timestamps keep the newest-first ordering observable.
		notification.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		if err := db.Save(notification).Error; err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	feed, err := service.Feed(ctx, user.ID)
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(feed) != 10 {
		t.Fatalf("expected feed capped at 10, got %d", len(feed))
	}

	seenRead := false
	for _, notification := range feed {
		if !notification.Unread {
			seenRead = true
		} else if seenRead {
			t.Fatal("unread notifications must come before read ones")
		}
	}
}

func TestNotificationService_ReadAndDelete(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewNotificationService(db)
	ctx := context.Background()

	user := createServiceTestUser(t, db, "reader")
	other := createServiceTestUser(t, db, "other")

	if err := service.Notify(ctx, nil, user.ID, models.NotificationIconEdit, "one"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if err := service.Notify(ctx, nil, user.ID, models.NotificationIconDelete, "two"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	feed, err := service.Feed(ctx, user.ID)
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	t.Run("mark one read", func(t *testing.T) {
		if err := service.MarkRead(ctx, user.ID, feed[0].ID); err != nil {
			t.Fatalf("MarkRead failed: %v", err)
		}
		count, err := service.UnreadCount(ctx, user.ID)
		if err != nil {
			t.Fatalf("UnreadCount failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 unread, got %d", count)
		}
	})

	t.Run("another user cannot touch the row", func(t *testing.T) {
		if err := service.MarkRead(ctx, other.ID, feed[1].ID); err == nil {
			t.Error("expected marking another user's notification to fail")
		}
		if err := service.Delete(ctx, other.ID, feed[1].ID); err == nil {
			t.Error("expected deleting another user's notification to fail")
		}
	})

	t.Run("mark all read", func(t *testing.T) {
		if err := service.MarkAllRead(ctx, user.ID); err != nil {
			t.Fatalf("MarkAllRead failed: %v", err)
		}
		count, err := service.UnreadCount(ctx, user.ID)
		if err != nil {
			t.Fatalf("UnreadCount failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0 unread, got %d", count)
		}
	})

	t.Run("delete all clears the feed", func(t *testing.T) {
		if err := service.DeleteAll(ctx, user.ID); err != nil {
			t.Fatalf("DeleteAll failed: %v", err)
		}
		feed, err := service.Feed(ctx, user.ID)
		if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
		if len(feed) != 0 {
			t.Errorf("expected empty feed, got %d rows", len(feed))
		}
	})
}
