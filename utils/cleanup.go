package utils

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/vnkhanh/studyflash-backend/models"
)

// CleanupExpiredAuthRecords xóa session và verification đã hết hạn.
func CleanupExpiredAuthRecords(db *gorm.DB, now time.Time) (int64, error) {
	sessions := db.Where("expires_at <= ?", now).Delete(&models.Session{})
	if sessions.Error != nil {
		return 0, sessions.Error
	}

	verifications := db.Where("expires_at <= ?", now).Delete(&models.Verification{})
	if verifications.Error != nil {
		return sessions.RowsAffected, verifications.Error
	}

	return sessions.RowsAffected + verifications.RowsAffected, nil
}

// StartCleanupJob chạy cleanup ngay lần đầu rồi định kỳ theo interval, dừng khi ctx kết thúc.
func StartCleanupJob(ctx context.Context, db *gorm.DB, interval time.Duration) {
	if db == nil || interval <= 0 {
		return
	}

	run := func() {
		removed, err := CleanupExpiredAuthRecords(db, time.Now().UTC())
		if err != nil {
			log.Printf("Lỗi khi xóa session/verification hết hạn: %v", err)
			return
		}
		if removed > 0 {
			log.Printf("Đã xóa %d session/verification hết hạn", removed)
		}
	}

	log.Println("Đang chạy cleanup lần đầu...")
	run()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	log.Printf("Cleanup job đã được khởi động (chạy mỗi %s)", interval)
}
