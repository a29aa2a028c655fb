package models

import (
	"github.com/google/uuid"

	"github.com/groceryshare/backend/internal/roles"
)

// ListMembership ties one user to one list with a role from the lattice.
// Every list has exactly one Owner membership: its creator.
type ListMembership struct {
	BaseModel
	ListID uuid.UUID   `json:"list_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_list_user"`
	UserID uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_list_user"`
	Role   roles.Role  `json:"role" gorm:"type:varchar(20);not null;default:'Viewer'"`
	User   User        `json:"-" gorm:"foreignKey:UserID"`
	List   GroceryList `json:"-" gorm:"foreignKey:ListID"`
}

func (ListMembership) TableName() string {
	return "list_memberships"
}
