package models

type GroceryList struct {
	BaseModel
	Name        string           `json:"name" gorm:"type:varchar(255);not null"`
	Memberships []ListMembership `json:"-" gorm:"foreignKey:ListID"`
	Items       []ListItem       `json:"-" gorm:"foreignKey:ListID"`
}

func (GroceryList) TableName() string {
	return "grocery_lists"
}
