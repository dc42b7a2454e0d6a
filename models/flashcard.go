package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FlashcardType string

const (
	FlashcardInfo FlashcardType = "info" // thẻ hỏi/đáp
	FlashcardMCQ  FlashcardType = "mcq"  // trắc nghiệm
)

func (t FlashcardType) Valid() bool {
	return t == FlashcardInfo || t == FlashcardMCQ
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Giá trị mặc định của lịch ôn tập cho thẻ mới.
const (
	DefaultInterval   = 1.0
	DefaultEaseFactor = 2.5
)

// Flashcard thuộc một Syllabus; các cột interval, ease_factor, due_date, stage
// lưu trạng thái lịch ôn tập của thẻ.
type Flashcard struct {
	ID            string                       `gorm:"type:text;primaryKey" json:"id"`
	SyllabusID    string                       `gorm:"type:text;not null;index" json:"syllabus_id"`
	Syllabus      *Syllabus                    `gorm:"foreignKey:SyllabusID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	SubtopicID    string                       `gorm:"type:text;not null" json:"subtopic_id"`
	Type          FlashcardType                `gorm:"type:text;not null;check:chk_flashcards_type,type IN ('info', 'mcq')" json:"type"`
	Question      string                       `gorm:"type:text;not null" json:"question"`
	Answer        *string                      `gorm:"type:text" json:"answer,omitempty"`
	Options       *datatypes.JSONSlice[string] `gorm:"type:text" json:"options,omitempty"`
	CorrectOption *int                         `gorm:"type:integer" json:"correct_option,omitempty"`
	Difficulty    Difficulty                   `gorm:"type:text;not null;check:chk_flashcards_difficulty,difficulty IN ('easy', 'medium', 'hard')" json:"difficulty"`
	CreatedAt     time.Time                    `gorm:"type:datetime;default:CURRENT_TIMESTAMP" json:"created_at"`
	Interval      float64                      `gorm:"type:real;default:1" json:"interval"`
	EaseFactor    float64                      `gorm:"type:real;default:2.5" json:"ease_factor"`
	DueDate       time.Time                    `gorm:"type:datetime;default:CURRENT_TIMESTAMP" json:"due_date"`
	Stage         int                          `gorm:"type:integer;default:0" json:"stage"`
}

func (Flashcard) TableName() string { return "flashcards" }

func (f *Flashcard) BeforeCreate(tx *gorm.DB) error {
	f.ID = newID(f.ID)
	return nil
}
