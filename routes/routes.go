package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/studyflash-backend/controllers"
	"github.com/vnkhanh/studyflash-backend/middleware"
	"github.com/vnkhanh/studyflash-backend/services"
)

// SetupRouter đăng ký probe vận hành và route duy nhất của tầng identity.
func SetupRouter(r *gin.Engine, db *gorm.DB, auth *services.AuthService, trustedOrigins []string, secureCookie bool) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", middleware.DBMiddleware(db), controllers.HealthCheck)

	authController := controllers.NewAuthController(auth, secureCookie)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.Use(middleware.DBMiddleware(db), middleware.OriginCheck(trustedOrigins, "/api/auth/callback/"), middleware.SessionMiddleware(auth))

		// Mọi GET/POST dưới /api/auth đều do AuthController xử lý
		authGroup.Match([]string{http.MethodGet, http.MethodPost}, "/*path", authController.Handle)
	}

	return r
}
