package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/studyflash-backend/config"
	"github.com/vnkhanh/studyflash-backend/services"
)

// seed nạp một bộ thẻ (JSON) cho một user có sẵn.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Không tìm thấy file .env")
	}

	defaultURL := os.Getenv("DATABASE_URL")
	if defaultURL == "" {
		defaultURL = "file:dev.db"
	}
	databaseURL := flag.String("database-url", defaultURL, "SQLite database URL")
	userID := flag.StringP("user-id", "u", "", "owner of the imported topic (required)")
	file := flag.StringP("file", "f", "", "path to the deck JSON file (required)")
	flag.Parse()

	if *userID == "" || *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	deck, err := services.ParseDeck(f)
	if err != nil {
		log.Fatal(err)
	}

	db, err := config.OpenDatabase(*databaseURL, logger.Warn)
	if err != nil {
		log.Fatal("Không thể kết nối database: ", err)
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal(err)
	}

	summary, err := services.NewStudyService(db).ImportDeck(context.Background(), *userID, deck)
	if err != nil {
		log.Fatal("Import thất bại: ", err)
	}
	log.Printf("Đã import topic %s: %d syllabus, %d flashcard", summary.TopicID, summary.Syllabi, summary.Flashcards)
}
