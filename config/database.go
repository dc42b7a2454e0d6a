package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/studyflash-backend/models"
)

var DB *gorm.DB

// InitDB mở database theo cấu hình, chạy migration và gán vào DB.
func InitDB(cfg *Config) {
	db, err := OpenDatabase(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		log.Fatal("Không thể kết nối database: ", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatal("autoMigrate lỗi: ", err)
	}

	DB = db
	log.Println("sqlite connected & migrated successfully!")
}

// OpenDatabase trả về DB instance (dùng chung cho server, migration tool và test).
func OpenDatabase(databaseURL string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(SQLiteDSN(databaseURL)), &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	// SQLite chỉ cho một writer; giữ pool nhỏ.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate tạo/cập nhật toàn bộ bảng.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SQLiteDSN chuẩn hoá DATABASE_URL ("file:dev.db", "dev.db", ":memory:") thành DSN
// của go-sqlite3, luôn bật foreign key để ON DELETE CASCADE có hiệu lực.
func SQLiteDSN(databaseURL string) string {
	dsn := strings.TrimSpace(databaseURL)
	if dsn == "" {
		dsn = "file:dev.db"
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys=") && !strings.Contains(dsn, "_fk=") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(dsn, "_busy_timeout=") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
