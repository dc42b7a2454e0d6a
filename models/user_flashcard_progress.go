package models

import (
	"time"

	"gorm.io/gorm"
)

// UserFlashcardProgress là tiến độ của một người dùng trên một thẻ,
// duy nhất theo cặp (user_id, flashcard_id).
type UserFlashcardProgress struct {
	ID             string     `gorm:"type:text;primaryKey" json:"id"`
	UserID         string     `gorm:"type:text;not null;uniqueIndex:idx_user_flashcard" json:"user_id"`
	User           *User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	FlashcardID    string     `gorm:"type:text;not null;uniqueIndex:idx_user_flashcard" json:"flashcard_id"`
	Flashcard      *Flashcard `gorm:"foreignKey:FlashcardID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	NextReviewDate *time.Time `gorm:"type:datetime" json:"next_review_date,omitempty"`
	CorrectCount   int        `gorm:"type:integer;default:0" json:"correct_count"`
	IncorrectCount int        `gorm:"type:integer;default:0" json:"incorrect_count"`
	LastReviewedAt *time.Time `gorm:"type:datetime" json:"last_reviewed_at,omitempty"`
	Confidence     int        `gorm:"type:integer;default:0" json:"confidence"`
	TimeToAnswer   *int       `gorm:"type:integer" json:"time_to_answer,omitempty"`
	Mastered       bool       `gorm:"default:false" json:"mastered"`
}

func (UserFlashcardProgress) TableName() string { return "user_flashcard_progress" }

func (p *UserFlashcardProgress) BeforeCreate(tx *gorm.DB) error {
	p.ID = newID(p.ID)
	return nil
}
