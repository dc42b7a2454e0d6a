package models

import (
	"time"

	"gorm.io/gorm"
)

// User là tài khoản đăng nhập; bảng "user" do lớp xác thực quản lý.
type User struct {
	ID            string    `gorm:"type:text;primaryKey" json:"id"`
	Name          string    `gorm:"type:text;not null" json:"name"`
	Email         string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	EmailVerified bool      `gorm:"not null;default:false" json:"emailVerified"`
	Image         *string   `gorm:"type:text" json:"image"`
	CreatedAt     time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.ID = newID(u.ID)
	return nil
}
