package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/vnkhanh/studyflash-backend/config"
	"github.com/vnkhanh/studyflash-backend/routes"
	"github.com/vnkhanh/studyflash-backend/services"
	"github.com/vnkhanh/studyflash-backend/utils"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("Không tìm thấy file .env")
	}

	cfg, err := config.Load()
	if errors.Is(err, config.ErrMissingGitHubCredentials) {
		log.Fatal(err)
	}
	if err != nil {
		log.Fatal("Không đọc được cấu hình: ", err)
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	config.InitDB(cfg)

	github := services.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL(), cfg.GitHubScopes)
	auth := services.NewAuthService(config.DB, services.AuthOptions{
		Secret:           []byte(cfg.AuthSecret),
		BaseURL:          cfg.BaseURL,
		TrustedOrigins:   cfg.TrustedOrigins,
		SessionTTL:       cfg.SessionTTL,
		SessionUpdateAge: cfg.SessionUpdateAge,
		StateTTL:         cfg.StateTTL,
	}, github)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Dọn session / verification hết hạn định kỳ
	utils.StartCleanupJob(ctx, config.DB, cfg.CleanupInterval)

	r := gin.Default()

	//Bật CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	secureCookie := strings.HasPrefix(cfg.BaseURL, "https://")
	r = routes.SetupRouter(r, config.DB, auth, cfg.Origins(), secureCookie)

	log.Println("Server running at Port:" + cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
