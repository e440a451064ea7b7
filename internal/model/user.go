package model

// swagger:model User
type User struct {
	BaseModel
	Username     string `gorm:"size:100;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"size:100;not null" json:"-"`
	Email        string `gorm:"size:100" json:"email,omitempty"`
}

func (User) TableName() string {
	return "users"
}
