package services

import (
	"math"
	"time"

	"github.com/vnkhanh/studyflash-backend/models"
)

const (
	minEaseFactor = 1.3
	// Thẻ coi là đã thuộc khi khoảng ôn đạt ngưỡng này (ngày).
	masteryIntervalDays = 21.0
)

// CardSchedule là trạng thái lịch ôn của một thẻ.
type CardSchedule struct {
	Interval   float64
	EaseFactor float64
	Stage      int
	DueDate    time.Time
}

// ReviewOutcome là kết quả áp dụng một lần ôn lên lịch của thẻ.
type ReviewOutcome struct {
	Schedule   CardSchedule
	Quality    int
	Confidence int
	Mastered   bool
}

// Scheduler cài đặt SM-2.
type Scheduler struct{}

// Quality quy đổi mức tự đánh giá sang thang 0-5 của SM-2.
func Quality(p models.Performance) int {
	switch p {
	case models.PerformanceAgain:
		return 1
	case models.PerformanceHard:
		return 3
	case models.PerformanceGood:
		return 4
	case models.PerformanceEasy:
		return 5
	}
	return 0
}

// Review tính lịch mới. isCorrect=false luôn được coi là trả lời sai, kể cả khi
// người dùng tự chấm hard/good/easy.
func (Scheduler) Review(current CardSchedule, performance models.Performance, isCorrect bool, now time.Time) ReviewOutcome {
	q := Quality(performance)
	if !isCorrect && q >= 3 {
		q = 2
	}

	ease := current.EaseFactor
	if ease <= 0 {
		ease = models.DefaultEaseFactor
	}
	// EF' = EF + (0.1 - (5-q) * (0.08 + (5-q)*0.02))
	fq := float64(5 - q)
	ease = ease + (0.1 - fq*(0.08+fq*0.02))
	if ease < minEaseFactor {
		ease = minEaseFactor
	}

	var interval float64
	stage := current.Stage
	if q < 3 {
		stage = 0
		interval = 1
	} else {
		switch stage {
		case 0:
			interval = 1
		case 1:
			interval = 6
		default:
			prev := current.Interval
			if prev <= 0 {
				prev = models.DefaultInterval
			}
			interval = math.Ceil(prev * ease)
		}
		stage++
	}

	due := now.Add(time.Duration(interval * 24 * float64(time.Hour)))
	return ReviewOutcome{
		Schedule: CardSchedule{
			Interval:   interval,
			EaseFactor: ease,
			Stage:      stage,
			DueDate:    due,
		},
		Quality:    q,
		Confidence: q,
		Mastered:   q >= 3 && interval >= masteryIntervalDays,
	}
}
