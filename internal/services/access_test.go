package services

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/internal/roles"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.GroceryList{},
		&models.ListMembership{},
		&models.Category{},
		&models.Item{},
		&models.ListItem{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	return db
}

func createServiceTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "hash"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user %s: %v", username, err)
	}
	return user
}

func createServiceTestList(t *testing.T, db *gorm.DB, name string, owner *models.User) *models.GroceryList {
	t.Helper()
	list := &models.GroceryList{Name: name}
	if err := db.Create(list).Error; err != nil {
		t.Fatalf("failed creating list %s: %v", name, err)
	}
	membership := &models.ListMembership{ListID: list.ID, UserID: owner.ID, Role: roles.Owner}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed creating owner membership: %v", err)
	}
	return list
}

func addServiceTestMember(t *testing.T, db *gorm.DB, list *models.GroceryList, user *models.User, role roles.Role) {
	t.Helper()
	membership := &models.ListMembership{ListID: list.ID, UserID: user.ID, Role: role}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed adding member %s: %v", user.Username, err)
	}
}

func TestAccessService_HasAccess(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewAccessService(db)
	ctx := context.Background()

	owner := createServiceTestUser(t, db, "owner")
	editor := createServiceTestUser(t, db, "editor")
	viewer := createServiceTestUser(t, db, "viewer")
	stranger := createServiceTestUser(t, db, "stranger")

	list := createServiceTestList(t, db, "Weekly shop", owner)
	addServiceTestMember(t, db, list, editor, roles.Editor)
	addServiceTestMember(t, db, list, viewer, roles.Viewer)

	t.Run("owner has every permission", func(t *testing.T) {
		for _, required := range []roles.Role{roles.Viewer, roles.Editor, roles.Admin, roles.Owner} {
			if !service.HasAccess(ctx, owner.ID, list.ID, required) {
				t.Errorf("owner should hold %s", required)
			}
		}
	})

	t.Run("editor may edit but not manage users", func(t *testing.T) {
		if !service.HasAccess(ctx, editor.ID, list.ID, roles.Editor) {
			t.Error("editor should hold Editor")
		}
		if service.HasAccess(ctx, editor.ID, list.ID, roles.Admin) {
			t.Error("editor should not hold Admin")
		}
	})

	t.Run("viewer may only view", func(t *testing.T) {
		if !service.HasAccess(ctx, viewer.ID, list.ID, roles.Viewer) {
			t.Error("viewer should hold Viewer")
		}
		if service.HasAccess(ctx, viewer.ID, list.ID, roles.Editor) {
			t.Error("viewer should not hold Editor")
		}
	})

	t.Run("non-member has no access at all", func(t *testing.T) {
		if service.HasAccess(ctx, stranger.ID, list.ID, roles.Viewer) {
			t.Error("stranger should have no access")
		}
	})

	t.Run("unknown list grants nothing", func(t *testing.T) {
		if service.HasAccess(ctx, owner.ID, uuid.New(), roles.Viewer) {
			t.Error("access to a non-existent list should be denied")
		}
	})
}

func TestAccessService_IsOwner(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewAccessService(db)
	ctx := context.Background()

	owner := createServiceTestUser(t, db, "owner")
	admin := createServiceTestUser(t, db, "admin")
	list := createServiceTestList(t, db, "Party", owner)
	addServiceTestMember(t, db, list, admin, roles.Admin)

	if !service.IsOwner(ctx, owner.ID, list.ID) {
		t.Error("creator should be owner")
	}
	if service.IsOwner(ctx, admin.ID, list.ID) {
		t.Error("admin should not pass the owner check")
	}
}

func TestAccessService_MemberIDs(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewAccessService(db)
	ctx := context.Background()

	owner := createServiceTestUser(t, db, "owner")
	editor := createServiceTestUser(t, db, "editor")
	list := createServiceTestList(t, db, "Camping", owner)
	addServiceTestMember(t, db, list, editor, roles.Editor)

	ids, err := service.MemberIDs(ctx, list.ID, nil)
	if err != nil {
		t.Fatalf("MemberIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 members, got %d", len(ids))
	}

	ids, err = service.MemberIDs(ctx, list.ID, &owner.ID)
	if err != nil {
		t.Fatalf("MemberIDs with exclusion failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != editor.ID {
		t.Fatalf("expected only the editor, got %v", ids)
	}
}
