package models

import (
	"time"

	"gorm.io/gorm"
)

// Verification giữ dữ liệu tạm thời của một luồng OAuth (state, PKCE verifier).
type Verification struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	Identifier string    `gorm:"type:text;not null;index" json:"identifier"`
	Value      string    `gorm:"type:text;not null" json:"value"`
	ExpiresAt  time.Time `gorm:"type:datetime;not null" json:"expiresAt"`
	CreatedAt  time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Verification) TableName() string { return "verification" }

func (v *Verification) BeforeCreate(tx *gorm.DB) error {
	v.ID = newID(v.ID)
	return nil
}
