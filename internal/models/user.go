package models

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type User struct {
	BaseModel
	Username     string           `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string           `json:"-" gorm:"type:text;not null"`
	Theme        Theme            `json:"theme" gorm:"type:varchar(10);not null;default:'light'"`
	Memberships  []ListMembership `json:"-" gorm:"foreignKey:UserID"`
}
