package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/groceryshare/backend/internal/middleware"
	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/internal/roles"
	"github.com/groceryshare/backend/internal/services"
	"github.com/groceryshare/backend/internal/sortable"
	"github.com/groceryshare/backend/pkg/logger"
	"github.com/groceryshare/backend/pkg/utils"
	"gorm.io/gorm"
)

type ListsHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
	Notify *services.NotificationService
}

func NewListsHandler(db *gorm.DB, access *services.AccessService, notify *services.NotificationService) *ListsHandler {
	return &ListsHandler{DB: db, Access: access, Notify: notify}
}

// memberRow is the collaborator shape shared by the list table and the
// list detail view.
type memberRow struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type listRow struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Role        string      `json:"role"`
	LastUpdated string      `json:"last_updated"`
	OtherUsers  []memberRow `json:"other_users"`
}

func listRowValue(row listRow, key string) any {
	switch key {
	case "name":
		return row.Name
	case "type":
		return row.Type
	case "role":
		return row.Role
	case "last_updated":
		return row.LastUpdated
	default:
		return row.Name
	}
}

// List returns every list the caller belongs to, with the caller's role
// and the other members' usernames. Optional sort and order query params
// pick the column and direction.
func (h *ListsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var memberships []models.ListMembership
	if err := h.DB.
		Preload("List").
		Where("user_id = ?", currentUser.ID).
		Find(&memberships).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing lists")
	}

	rows := make([]listRow, 0, len(memberships))
	for _, membership := range memberships {
		members, err := h.Access.Members(c.Context(), membership.ListID)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading list members")
		}

		otherUsers := make([]memberRow, 0, len(members))
		for _, member := range members {
			if member.UserID == currentUser.ID {
				continue
			}
			otherUsers = append(otherUsers, memberRow{
				UserID:   member.UserID.String(),
				Username: member.User.Username,
				Role:     string(member.Role),
			})
		}

		listType := "private"
		if len(otherUsers) > 0 {
			listType = "shared"
		}

		rows = append(rows, listRow{
			ID:          membership.ListID.String(),
			Name:        membership.List.Name,
			Type:        listType,
			Role:        string(membership.Role),
			LastUpdated: membership.List.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
			OtherUsers:  otherUsers,
		})
	}

	sortKey := c.Query("sort", "last updated")
	ascending := c.Query("order", "desc") != "desc"
	rows = sortable.Sort(rows, sortKey, ascending, listRowValue)

	return utils.Success(c, fiber.StatusOK, rows)
}

type collaboratorRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type createListRequest struct {
	Name       string                `json:"name"`
	OtherUsers []collaboratorRequest `json:"otherUsers"`
}

func (h *ListsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createListRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = "New List"
	}

	list := models.GroceryList{Name: req.Name}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&list).Error; err != nil {
			return err
		}

		membership := models.ListMembership{
			ListID: list.ID,
			UserID: currentUser.ID,
			Role:   roles.Owner,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}

		return h.inviteCollaborators(c, tx, currentUser, &list, roles.Owner, req.OtherUsers)
	})
	if err != nil {
		if invalid, ok := err.(*collaboratorError); ok {
			return utils.Error(c, fiber.StatusBadRequest, invalid.message)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating list")
	}

	logger.InfoWithUser(currentUser.ID.String(), "list_created", map[string]interface{}{
		"list_id":   list.ID.String(),
		"list_name": list.Name,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"id":   list.ID,
		"name": list.Name,
	})
}

// collaboratorError marks reconciliation failures the client caused, so
// the transaction wrapper can map them to a 400 instead of a 500.
type collaboratorError struct {
	message string
}

func (e *collaboratorError) Error() string {
	return e.message
}

// inviteCollaborators sends a join request to every listed user. The
// proposed role rides on the notification; membership is only written when
// the invitee confirms.
func (h *ListsHandler) inviteCollaborators(c *fiber.Ctx, tx *gorm.DB, actor *models.User, list *models.GroceryList, actorRole roles.Role, collaborators []collaboratorRequest) error {
	for _, collaborator := range collaborators {
		username := strings.TrimSpace(collaborator.Username)
		if username == "" || username == actor.Username {
			continue
		}

		role, ok := roles.Parse(collaborator.Role)
		if !ok {
			role = roles.Viewer
		}
		if err := validateAssignment(actorRole, roles.Viewer, role); err != nil {
			return err
		}

		var target models.User
		if err := tx.Where("username = ?", username).First(&target).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &collaboratorError{message: fmt.Sprintf("User '%s' not found.", username)}
			}
			return err
		}

		if err := h.Notify.NotifyInvite(c.Context(), tx, target.ID, list.ID, list.Name, actor.Username, role); err != nil {
			return err
		}
	}
	return nil
}

// validateAssignment checks one role grant against the assignment policy.
// targetRole is the target's current role, Viewer for users not yet on the
// list.
func validateAssignment(actorRole, targetRole, requested roles.Role) error {
	options, locked := roles.AssignableRoles(actorRole, targetRole)
	if locked {
		return &collaboratorError{message: "You cannot change this user's role."}
	}
	for _, option := range options {
		if option == requested {
			return nil
		}
	}
	return &collaboratorError{message: fmt.Sprintf("You cannot assign the role '%s'.", requested)}
}

type updateListRequest struct {
	Name       string                `json:"name"`
	OtherUsers []collaboratorRequest `json:"otherUsers"`
}

func (h *ListsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	membership, err := h.Access.Membership(c.Context(), currentUser.ID, listID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed validating membership")
	}
	if membership == nil {
		return utils.Error(c, fiber.StatusForbidden, "list access denied")
	}
	if !roles.CanManageUsers(membership.Role) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req updateListRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var list models.GroceryList
	if err := h.DB.First(&list, "id = ?", listID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "list not found")
	}

	req.Name = strings.TrimSpace(req.Name)
	renamed := req.Name != "" && req.Name != list.Name
	oldName := list.Name

	// Fetched before the transaction; the membership query must not share
	// the transaction's connection.
	memberIDs, err := h.Access.MemberIDs(c.Context(), listID, &currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading list members")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if renamed {
			if err := tx.Model(&list).Update("name", req.Name).Error; err != nil {
				return err
			}
			list.Name = req.Name

			message := fmt.Sprintf("%s renamed the list '%s' to '%s'.", currentUser.Username, oldName, list.Name)
			if err := h.Notify.NotifyMany(c.Context(), tx, memberIDs, models.NotificationIconEdit, message); err != nil {
				return err
			}
		}

		return h.reconcileCollaborators(c, tx, currentUser, &list, membership.Role, req.OtherUsers)
	})
	if err != nil {
		if invalid, ok := err.(*collaboratorError); ok {
			return utils.Error(c, fiber.StatusBadRequest, invalid.message)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating list")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":   list.ID,
		"name": list.Name,
	})
}

func (h *ListsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	if !h.Access.IsOwner(c.Context(), currentUser.ID, listID) {
		return utils.Error(c, fiber.StatusForbidden, "only the owner can delete a list")
	}

	var list models.GroceryList
	if err := h.DB.First(&list, "id = ?", listID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "list not found")
	}

	memberIDs, err := h.Access.MemberIDs(c.Context(), listID, &currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading list members")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", listID).Delete(&models.ListItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("list_id = ?", listID).Delete(&models.ListMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&list).Error; err != nil {
			return err
		}

		message := fmt.Sprintf("%s deleted the list '%s'.", currentUser.Username, list.Name)
		return h.Notify.NotifyMany(c.Context(), tx, memberIDs, models.NotificationIconDelete, message)
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting list")
	}

	logger.InfoWithUser(currentUser.ID.String(), "list_deleted", map[string]interface{}{
		"list_id":   listID.String(),
		"list_name": list.Name,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

type manageUsersRequest struct {
	OtherUsers []collaboratorRequest `json:"otherUsers"`
}

// ManageUsers replaces the list's non-owner collaborator set. Additions
// become invites, removals drop membership, role changes update in place.
func (h *ListsHandler) ManageUsers(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	membership, err := h.Access.Membership(c.Context(), currentUser.ID, listID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed validating membership")
	}
	if membership == nil {
		return utils.Error(c, fiber.StatusForbidden, "list access denied")
	}
	if !roles.CanManageUsers(membership.Role) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req manageUsersRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var list models.GroceryList
	if err := h.DB.First(&list, "id = ?", listID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "list not found")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		return h.reconcileCollaborators(c, tx, currentUser, &list, membership.Role, req.OtherUsers)
	})
	if err != nil {
		if invalid, ok := err.(*collaboratorError); ok {
			return utils.Error(c, fiber.StatusBadRequest, invalid.message)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed managing users")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"updated": true})
}

// reconcileCollaborators diffs the desired collaborator set against the
// current memberships. The owner and the acting user are never touched.
func (h *ListsHandler) reconcileCollaborators(c *fiber.Ctx, tx *gorm.DB, actor *models.User, list *models.GroceryList, actorRole roles.Role, desired []collaboratorRequest) error {
	var current []models.ListMembership
	if err := tx.Preload("User").Where("list_id = ?", list.ID).Find(&current).Error; err != nil {
		return err
	}

	desiredByName := make(map[string]roles.Role, len(desired))
	for _, collaborator := range desired {
		username := strings.TrimSpace(collaborator.Username)
		if username == "" || username == actor.Username {
			continue
		}
		role, ok := roles.Parse(collaborator.Role)
		if !ok {
			role = roles.Viewer
		}
		desiredByName[username] = role
	}

	currentByName := make(map[string]models.ListMembership, len(current))
	for _, member := range current {
		currentByName[member.User.Username] = member
	}

	for username, requested := range desiredByName {
		existing, isMember := currentByName[username]

		if !isMember {
			if err := validateAssignment(actorRole, roles.Viewer, requested); err != nil {
				return err
			}
			var target models.User
			if err := tx.Where("username = ?", username).First(&target).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return &collaboratorError{message: fmt.Sprintf("User '%s' not found.", username)}
				}
				return err
			}
			if err := h.Notify.NotifyInvite(c.Context(), tx, target.ID, list.ID, list.Name, actor.Username, requested); err != nil {
				return err
			}
			continue
		}

		if roles.IsOwner(existing.Role) || existing.Role == requested {
			continue
		}

		if err := validateAssignment(actorRole, existing.Role, requested); err != nil {
			return err
		}
		if err := tx.Model(&models.ListMembership{}).
			Where("id = ?", existing.ID).
			Update("role", requested).Error; err != nil {
			return err
		}

		message := fmt.Sprintf("%s changed your role on '%s' to %s.", actor.Username, list.Name, requested)
		if err := h.Notify.Notify(c.Context(), tx, existing.UserID, models.NotificationIconEdit, message); err != nil {
			return err
		}
	}

	for username, member := range currentByName {
		if _, keep := desiredByName[username]; keep {
			continue
		}
		if roles.IsOwner(member.Role) || member.UserID == actor.ID {
			continue
		}

		if _, locked := roles.AssignableRoles(actorRole, member.Role); locked {
			return &collaboratorError{message: "You cannot remove this user."}
		}
		if err := tx.Delete(&models.ListMembership{}, "id = ?", member.ID).Error; err != nil {
			return err
		}

		message := fmt.Sprintf("%s removed you from the list '%s'.", actor.Username, list.Name)
		if err := h.Notify.Notify(c.Context(), tx, member.UserID, models.NotificationIconDelete, message); err != nil {
			return err
		}
	}

	return nil
}

// Join confirms a pending invite. The granted role comes from the invite
// notification, never from the request body.
func (h *ListsHandler) Join(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	var invite models.Notification
	err = h.DB.
		Where("user_id = ? AND requested_list_id = ? AND action_type = ?",
			currentUser.ID, listID, models.NotificationActionJoinListRequest).
		Order("created_at DESC").
		First(&invite).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusForbidden, "no pending invitation for this list")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading invitation")
	}

	role := services.InviteRole(&invite)

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		membership := models.ListMembership{
			ListID: listID,
			UserID: currentUser.ID,
			Role:   role,
		}
		if err := tx.
			Where("list_id = ? AND user_id = ?", listID, currentUser.ID).
			FirstOrCreate(&membership).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Notification{}, "id = ?", invite.ID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed joining list")
	}

	logger.InfoWithUser(currentUser.ID.String(), "list_joined", map[string]interface{}{
		"list_id": listID.String(),
		"role":    string(role),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"listId": listID,
		"role":   role,
	})
}

type listItemRow struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

func listItemRowValue(row listItemRow, key string) any {
	switch key {
	case "name":
		return row.Name
	case "category":
		return row.Category
	case "quantity":
		return row.Quantity
	default:
		return row.Name
	}
}

// Get returns one list's contents with the caller's role and the other
// members. Non-members get a 403.
func (h *ListsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	membership, err := h.Access.Membership(c.Context(), currentUser.ID, listID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed validating membership")
	}
	if membership == nil {
		return utils.Error(c, fiber.StatusForbidden, "list access denied")
	}

	var list models.GroceryList
	if err := h.DB.First(&list, "id = ?", listID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "list not found")
	}

	var listItems []models.ListItem
	if err := h.DB.
		Preload("Item").
		Preload("Item.Category").
		Where("list_id = ?", listID).
		Find(&listItems).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading items")
	}

	items := make([]listItemRow, 0, len(listItems))
	for _, listItem := range listItems {
		items = append(items, listItemRow{
			ItemID:   listItem.ItemID.String(),
			Name:     listItem.Item.Name,
			Category: listItem.Item.Category.Name,
			Quantity: listItem.Quantity,
		})
	}

	if sortKey := c.Query("sort"); sortKey != "" {
		ascending := c.Query("order", "asc") != "desc"
		items = sortable.Sort(items, sortKey, ascending, listItemRowValue)
	}

	members, err := h.Access.Members(c.Context(), listID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading list members")
	}

	otherUsers := make([]memberRow, 0, len(members))
	for _, member := range members {
		if member.UserID == currentUser.ID {
			continue
		}
		otherUsers = append(otherUsers, memberRow{
			UserID:   member.UserID.String(),
			Username: member.User.Username,
			Role:     string(member.Role),
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"listName":   list.Name,
		"modified":   list.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
		"userRole":   membership.Role,
		"items":      items,
		"otherUsers": otherUsers,
	})
}
