package models

type Role struct {
	BaseModel

	Name        string `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string `json:"description"`

	Users []User `gorm:"many2many:user_roles;" json:"-"`
}
