package models

type User struct {
	BaseModel

	Username     string `gorm:"size:150;uniqueIndex;not null" json:"username"`
	UsernameSlug string `gorm:"uniqueIndex;not null" json:"username_slug"`
	Email        string `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
}
