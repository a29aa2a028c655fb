package models

// Category is a row of the global catalog, seeded at migration time and
// read-only afterwards.
type Category struct {
	BaseModel
	Name string `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
}
