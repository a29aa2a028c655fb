package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/internal/roles"
	"gorm.io/gorm"
)

// AccessService answers membership and permission questions for grocery
// lists. All checks run server side; a client-supplied role is never
// trusted.
type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// Membership returns the caller's membership row for a list, or nil when
// the user is not a member.
func (a *AccessService) Membership(ctx context.Context, userID, listID uuid.UUID) (*models.ListMembership, error) {
	var membership models.ListMembership
	err := a.DB.WithContext(ctx).
		Where("list_id = ? AND user_id = ?", listID, userID).
		First(&membership).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &membership, nil
}

// HasAccess reports whether the user holds at least the required role on
// the list.
func (a *AccessService) HasAccess(ctx context.Context, userID, listID uuid.UUID, required roles.Role) bool {
	membership, err := a.Membership(ctx, userID, listID)
	if err != nil || membership == nil {
		return false
	}
	return roles.HasPermission(membership.Role, required)
}

// IsOwner reports whether the user is the list's owner. Owner checks are
// exact; an Admin does not pass.
func (a *AccessService) IsOwner(ctx context.Context, userID, listID uuid.UUID) bool {
	membership, err := a.Membership(ctx, userID, listID)
	if err != nil || membership == nil {
		return false
	}
	return roles.IsOwner(membership.Role)
}

// Members returns every membership of a list with the user preloaded.
func (a *AccessService) Members(ctx context.Context, listID uuid.UUID) ([]models.ListMembership, error) {
	var memberships []models.ListMembership
	err := a.DB.WithContext(ctx).
		Preload("User").
		Where("list_id = ?", listID).
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

// MemberIDs returns the user ids of every list member, optionally skipping
// one user. Used to fan notifications out to collaborators.
func (a *AccessService) MemberIDs(ctx context.Context, listID uuid.UUID, exclude *uuid.UUID) ([]uuid.UUID, error) {
	var memberships []models.ListMembership
	err := a.DB.WithContext(ctx).
		Where("list_id = ?", listID).
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(memberships))
	for _, membership := range memberships {
		if exclude != nil && membership.UserID == *exclude {
			continue
		}
		ids = append(ids, membership.UserID)
	}
	return ids, nil
}
