package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/studyflash-backend/models"
)

// ====== INPUT STRUCTS ======
type CreateTopicInput struct {
	UserID      string  `json:"user_id" validate:"required"`
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description"`
}

type CreateSyllabusInput struct {
	TopicID string `json:"topic_id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type CreateFlashcardInput struct {
	SyllabusID    string   `json:"syllabus_id" validate:"required"`
	SubtopicID    string   `json:"subtopic_id" validate:"required"`
	Type          string   `json:"type" validate:"required,oneof=info mcq"`
	Question      string   `json:"question" validate:"required"`
	Answer        *string  `json:"answer"`
	Options       []string `json:"options" validate:"required_if=Type mcq,omitempty,min=2,dive,required"`
	CorrectOption *int     `json:"correct_option" validate:"required_if=Type mcq,omitempty,min=0"`
	Difficulty    string   `json:"difficulty" validate:"required,oneof=easy medium hard"`
}

type RecordReviewInput struct {
	UserID      string `json:"user_id" validate:"required"`
	FlashcardID string `json:"flashcard_id" validate:"required"`
	Performance string `json:"performance" validate:"required,oneof=again hard good easy"`
	TimeTaken   int    `json:"time_taken" validate:"min=0"`
	IsCorrect   bool   `json:"is_correct"`
}

// ReviewResult là trạng thái sau khi ghi nhận một lần ôn.
type ReviewResult struct {
	Flashcard models.Flashcard             `json:"flashcard"`
	Progress  models.UserFlashcardProgress `json:"progress"`
	History   models.ReviewHistory         `json:"history"`
}

// StudyService đọc/ghi topic, syllabus, flashcard và tiến độ ôn tập.
type StudyService struct {
	db        *gorm.DB
	validate  *validator.Validate
	scheduler Scheduler
	clock     func() time.Time
}

func NewStudyService(db *gorm.DB) *StudyService {
	return &StudyService{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *StudyService) check(input interface{}) error {
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func (s *StudyService) CreateTopic(ctx context.Context, in CreateTopicInput) (*models.Topic, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.check(in); err != nil {
		return nil, err
	}
	topic := models.Topic{
		UserID:      in.UserID,
		Title:       in.Title,
		Description: in.Description,
	}
	if err := s.db.WithContext(ctx).Create(&topic).Error; err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	return &topic, nil
}

func (s *StudyService) CreateSyllabus(ctx context.Context, in CreateSyllabusInput) (*models.Syllabus, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	syllabus := models.Syllabus{TopicID: in.TopicID, Content: in.Content}
	if err := s.db.WithContext(ctx).Create(&syllabus).Error; err != nil {
		return nil, fmt.Errorf("create syllabus: %w", err)
	}
	return &syllabus, nil
}

// AdaptSyllabus thay nội dung syllabus, tăng adaptation_count và cập nhật last_updated.
func (s *StudyService) AdaptSyllabus(ctx context.Context, syllabusID, content string) (*models.Syllabus, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	db := s.db.WithContext(ctx)
	res := db.Model(&models.Syllabus{}).Where("id = ?", syllabusID).Updates(map[string]interface{}{
		"content":          content,
		"last_updated":     s.clock(),
		"adaptation_count": gorm.Expr("adaptation_count + 1"),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("adapt syllabus: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: syllabus %s", ErrNotFound, syllabusID)
	}

	var syllabus models.Syllabus
	if err := db.First(&syllabus, "id = ?", syllabusID).Error; err != nil {
		return nil, err
	}
	return &syllabus, nil
}

func (s *StudyService) CreateFlashcard(ctx context.Context, in CreateFlashcardInput) (*models.Flashcard, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.Type == string(models.FlashcardMCQ) && *in.CorrectOption >= len(in.Options) {
		return nil, fmt.Errorf("%w: correct_option out of range", ErrValidation)
	}

	card := models.Flashcard{
		SyllabusID:    in.SyllabusID,
		SubtopicID:    in.SubtopicID,
		Type:          models.FlashcardType(in.Type),
		Question:      in.Question,
		Answer:        in.Answer,
		CorrectOption: in.CorrectOption,
		Difficulty:    models.Difficulty(in.Difficulty),
		Interval:      models.DefaultInterval,
		EaseFactor:    models.DefaultEaseFactor,
		DueDate:       s.clock(),
	}
	if len(in.Options) > 0 {
		options := datatypes.JSONSlice[string](in.Options)
		card.Options = &options
	}
	if err := s.db.WithContext(ctx).Create(&card).Error; err != nil {
		return nil, fmt.Errorf("create flashcard: %w", err)
	}
	return &card, nil
}

// RecordReview ghi một lần ôn trong một transaction: cập nhật/tạo progress, thêm
// review_history, tính lại lịch SM-2 của thẻ và cập nhật topic.
func (s *StudyService) RecordReview(ctx context.Context, in RecordReviewInput) (*ReviewResult, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	now := s.clock()
	performance := models.Performance(in.Performance)

	var result ReviewResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Chỉ chủ topic mới được ôn thẻ; thẻ của người khác coi như không tồn tại.
		var card models.Flashcard
		err := tx.Preload("Syllabus").
			Joins("JOIN syllabi ON syllabi.id = flashcards.syllabus_id").
			Joins("JOIN topics ON topics.id = syllabi.topic_id").
			Where("flashcards.id = ? AND topics.user_id = ?", in.FlashcardID, in.UserID).
			First(&card).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: flashcard %s", ErrNotFound, in.FlashcardID)
			}
			return err
		}

		outcome := s.scheduler.Review(CardSchedule{
			Interval:   card.Interval,
			EaseFactor: card.EaseFactor,
			Stage:      card.Stage,
			DueDate:    card.DueDate,
		}, performance, in.IsCorrect, now)

		err = tx.Model(&models.Flashcard{}).Where("id = ?", card.ID).Updates(map[string]interface{}{
			"interval":    outcome.Schedule.Interval,
			"ease_factor": outcome.Schedule.EaseFactor,
			"stage":       outcome.Schedule.Stage,
			"due_date":    outcome.Schedule.DueDate,
		}).Error
		if err != nil {
			return fmt.Errorf("update flashcard schedule: %w", err)
		}
		card.Interval = outcome.Schedule.Interval
		card.EaseFactor = outcome.Schedule.EaseFactor
		card.Stage = outcome.Schedule.Stage
		card.DueDate = outcome.Schedule.DueDate

		var progress models.UserFlashcardProgress
		lookup := tx.Where("user_id = ? AND flashcard_id = ?", in.UserID, card.ID).Limit(1).Find(&progress)
		if lookup.Error != nil {
			return lookup.Error
		}
		if lookup.RowsAffected == 0 {
			progress = models.UserFlashcardProgress{UserID: in.UserID, FlashcardID: card.ID}
		}
		if in.IsCorrect {
			progress.CorrectCount++
		} else {
			progress.IncorrectCount++
		}
		timeTaken := in.TimeTaken
		due := outcome.Schedule.DueDate
		progress.NextReviewDate = &due
		progress.LastReviewedAt = &now
		progress.Confidence = outcome.Confidence
		progress.TimeToAnswer = &timeTaken
		progress.Mastered = outcome.Mastered
		if err := tx.Save(&progress).Error; err != nil {
			return fmt.Errorf("save progress: %w", err)
		}

		history := models.ReviewHistory{
			UserFlashcardProgressID: progress.ID,
			Timestamp:               now,
			Performance:             performance,
			TimeTaken:               in.TimeTaken,
			IsCorrect:               in.IsCorrect,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("create review history: %w", err)
		}

		if card.Syllabus != nil {
			if err := s.touchTopic(tx, in.UserID, card.Syllabus.TopicID, now); err != nil {
				return err
			}
		}

		card.Syllabus = nil
		result = ReviewResult{Flashcard: card, Progress: progress, History: history}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// touchTopic đặt last_studied và tính lại proficiency_score (0-100) từ tỉ lệ trả lời
// đúng của user trên các thẻ thuộc topic.
func (s *StudyService) touchTopic(tx *gorm.DB, userID, topicID string, now time.Time) error {
	var totals struct {
		Correct   int64
		Incorrect int64
	}
	err := tx.Model(&models.UserFlashcardProgress{}).
		Select("COALESCE(SUM(user_flashcard_progress.correct_count), 0) AS correct, COALESCE(SUM(user_flashcard_progress.incorrect_count), 0) AS incorrect").
		Joins("JOIN flashcards ON flashcards.id = user_flashcard_progress.flashcard_id").
		Joins("JOIN syllabi ON syllabi.id = flashcards.syllabus_id").
		Where("syllabi.topic_id = ? AND user_flashcard_progress.user_id = ?", topicID, userID).
		Scan(&totals).Error
	if err != nil {
		return fmt.Errorf("compute proficiency: %w", err)
	}

	score := 0.0
	if answered := totals.Correct + totals.Incorrect; answered > 0 {
		score = math.Round(float64(totals.Correct)/float64(answered)*10000) / 100
	}

	err = tx.Model(&models.Topic{}).Where("id = ?", topicID).Updates(map[string]interface{}{
		"last_studied":      now,
		"proficiency_score": score,
	}).Error
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	return nil
}

// DueFlashcards trả về các thẻ đến hạn ôn của user, hạn sớm nhất trước.
func (s *StudyService) DueFlashcards(ctx context.Context, userID string, now time.Time, limit int) ([]models.Flashcard, error) {
	if limit <= 0 {
		limit = 20
	}
	var cards []models.Flashcard
	err := s.db.WithContext(ctx).
		Joins("JOIN syllabi ON syllabi.id = flashcards.syllabus_id").
		Joins("JOIN topics ON topics.id = syllabi.topic_id").
		Where("topics.user_id = ? AND flashcards.due_date <= ?", userID, now.UTC()).
		Order("flashcards.due_date asc").
		Limit(limit).
		Find(&cards).Error
	return cards, err
}

// DeleteTopic xóa topic; syllabus, flashcard, progress và review_history bị xóa theo
// ON DELETE CASCADE của database.
func (s *StudyService) DeleteTopic(ctx context.Context, userID, topicID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", topicID, userID).Delete(&models.Topic{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: topic %s", ErrNotFound, topicID)
	}
	return nil
}

func (s *StudyService) GetTopic(ctx context.Context, topicID string) (*models.Topic, error) {
	var topic models.Topic
	if err := s.db.WithContext(ctx).First(&topic, "id = ?", topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: topic %s", ErrNotFound, topicID)
		}
		return nil, err
	}
	return &topic, nil
}
