package models

import "github.com/google/uuid"

// Item is a global catalog entry, deduplicated on (name, category).
type Item struct {
	BaseModel
	Name       string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_item_name_category"`
	CategoryID uuid.UUID `json:"category_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_item_name_category"`
	Category   Category  `json:"-" gorm:"foreignKey:CategoryID"`
}

// ListItem is the pairing of a catalog item with a list. An item appears
// at most once per list.
type ListItem struct {
	BaseModel
	ListID   uuid.UUID   `json:"list_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_list_item"`
	ItemID   uuid.UUID   `json:"item_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_list_item"`
	Quantity int         `json:"quantity" gorm:"not null;default:1"`
	Item     Item        `json:"-" gorm:"foreignKey:ItemID"`
	List     GroceryList `json:"-" gorm:"foreignKey:ListID"`
}

func (ListItem) TableName() string {
	return "list_items"
}
