package models

import (
	"time"

	"gorm.io/gorm"
)

type Syllabus struct {
	ID              string    `gorm:"type:text;primaryKey" json:"id"`
	TopicID         string    `gorm:"type:text;not null;index" json:"topic_id"`
	Topic           *Topic    `gorm:"foreignKey:TopicID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	CreatedAt       time.Time `gorm:"type:datetime;default:CURRENT_TIMESTAMP" json:"created_at"`
	LastUpdated     time.Time `gorm:"type:datetime;default:CURRENT_TIMESTAMP" json:"last_updated"`
	AdaptationCount int       `gorm:"type:integer;default:0" json:"adaptation_count"`
}

func (Syllabus) TableName() string { return "syllabi" }

func (s *Syllabus) BeforeCreate(tx *gorm.DB) error {
	s.ID = newID(s.ID)
	if s.LastUpdated.IsZero() {
		s.LastUpdated = tx.NowFunc()
	}
	return nil
}
