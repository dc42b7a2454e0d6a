package models

import (
	"time"

	"gorm.io/gorm"
)

// Account liên kết một User với danh tính bên nhà cung cấp OAuth (GitHub).
type Account struct {
	ID                    string     `gorm:"type:text;primaryKey" json:"id"`
	UserID                string     `gorm:"type:text;not null;index" json:"userId"`
	User                  *User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	AccountID             string     `gorm:"type:text;not null;uniqueIndex:idx_account_provider" json:"accountId"`
	ProviderID            string     `gorm:"type:text;not null;uniqueIndex:idx_account_provider" json:"providerId"`
	AccessToken           *string    `gorm:"type:text" json:"-"`
	RefreshToken          *string    `gorm:"type:text" json:"-"`
	IDToken               *string    `gorm:"type:text" json:"-"`
	AccessTokenExpiresAt  *time.Time `gorm:"type:datetime" json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt *time.Time `gorm:"type:datetime" json:"refreshTokenExpiresAt"`
	Scope                 *string    `gorm:"type:text" json:"scope"`
	CreatedAt             time.Time  `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt             time.Time  `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Account) TableName() string { return "account" }

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	a.ID = newID(a.ID)
	return nil
}
