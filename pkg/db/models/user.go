package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a pharmacy staff account able to log in.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Username     string     `gorm:"column:username;size:80;uniqueIndex;not null"`
	PasswordHash string     `gorm:"column:password_hash;size:200;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string { return "users" }

// BeforeCreate assigns an ID when the caller did not. Keeps the sqlite test
// driver working, which has no gen_random_uuid().
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
