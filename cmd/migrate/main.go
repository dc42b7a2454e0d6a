package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/studyflash-backend/config"
)

// migrate chỉ tạo/cập nhật schema, không cần thông tin OAuth.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Không tìm thấy file .env")
	}

	defaultURL := os.Getenv("DATABASE_URL")
	if defaultURL == "" {
		defaultURL = "file:dev.db"
	}
	databaseURL := flag.String("database-url", defaultURL, "SQLite database URL")
	verbose := flag.BoolP("verbose", "v", false, "log every SQL statement")
	flag.Parse()

	level := logger.Warn
	if *verbose {
		level = logger.Info
	}

	db, err := config.OpenDatabase(*databaseURL, level)
	if err != nil {
		log.Fatal("Không thể kết nối database: ", err)
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal(err)
	}
	log.Printf("Migration hoàn tất: %s", *databaseURL)
}
