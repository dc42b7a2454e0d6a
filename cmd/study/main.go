package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/studyflash-backend/config"
	"github.com/vnkhanh/studyflash-backend/services"
)

// study là CLI ôn tập trên cùng database với server:
//
//	study [--database-url URL] <due|review|delete-topic|adapt-syllabus|topic> [flags]
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Không tìm thấy file .env")
	}

	defaultURL := os.Getenv("DATABASE_URL")
	if defaultURL == "" {
		defaultURL = "file:dev.db"
	}
	flag.CommandLine.SetInterspersed(false)
	databaseURL := flag.String("database-url", defaultURL, "SQLite database URL")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: study [--database-url URL] <command> [flags]\n\nCommands:\n%s\nGlobal flags:\n", commandSummary())
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	db, err := config.OpenDatabase(*databaseURL, logger.Warn)
	if err != nil {
		log.Fatal("Không thể kết nối database: ", err)
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal(err)
	}

	app := newApp(services.NewStudyService(db), os.Stdin, os.Stdout)
	if err := app.run(context.Background(), args[0], args[1:]); err != nil {
		log.Fatal(err)
	}
}
