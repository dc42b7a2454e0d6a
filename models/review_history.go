package models

import (
	"time"

	"gorm.io/gorm"
)

type Performance string

const (
	PerformanceAgain Performance = "again"
	PerformanceHard  Performance = "hard"
	PerformanceGood  Performance = "good"
	PerformanceEasy  Performance = "easy"
)

func (p Performance) Valid() bool {
	switch p {
	case PerformanceAgain, PerformanceHard, PerformanceGood, PerformanceEasy:
		return true
	}
	return false
}

// ReviewHistory ghi lại một lần ôn tập; TimeTaken tính bằng mili giây.
type ReviewHistory struct {
	ID                      string                 `gorm:"type:text;primaryKey" json:"id"`
	UserFlashcardProgressID string                 `gorm:"type:text;not null;index" json:"user_flashcard_progress_id"`
	Progress                *UserFlashcardProgress `gorm:"foreignKey:UserFlashcardProgressID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Timestamp               time.Time              `gorm:"type:datetime;default:CURRENT_TIMESTAMP" json:"timestamp"`
	Performance             Performance            `gorm:"type:text;not null;check:chk_review_history_performance,performance IN ('again', 'hard', 'good', 'easy')" json:"performance"`
	TimeTaken               int                    `gorm:"type:integer;not null" json:"time_taken"`
	IsCorrect               bool                   `gorm:"not null" json:"is_correct"`
}

func (ReviewHistory) TableName() string { return "review_history" }

func (r *ReviewHistory) BeforeCreate(tx *gorm.DB) error {
	r.ID = newID(r.ID)
	return nil
}

// All trả về toàn bộ model theo thứ tự phụ thuộc, dùng cho AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Session{},
		&Account{},
		&Verification{},
		&Topic{},
		&Syllabus{},
		&Flashcard{},
		&UserFlashcardProgress{},
		&ReviewHistory{},
	}
}
