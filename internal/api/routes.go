package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ecertify/internal/api/middleware"
	"ecertify/internal/auth"
	"ecertify/internal/pdf"
	"ecertify/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	engine *pdf.Engine,
	clamdAddr string,
) {
	certHandler := NewCertificateHandler(db, asynqClient, storageClient, engine, 0)
	authHandler := NewAuthHandler(db, authService, redisClient, logger, 10, 5, 15*time.Minute, "")
	wsHandler := NewWsHandler(redisClient, authService, logger, nil)
	authMiddleware := middleware.AuthMiddleware(authService)
	assetHandler := NewAssetHandler(db, storageClient, logger, clamdAddr)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		certGroup := v1.Group("/certificates")
		certGroup.Use(authMiddleware)
		{
			certGroup.POST("", certHandler.CreateCertificates)
			certGroup.GET("", certHandler.ListCertificates)
			certGroup.GET("/:id", certHandler.GetCertificate)
			certGroup.PATCH("/:id", certHandler.UpdateCertificate)
			certGroup.DELETE("/:id", certHandler.DeleteCertificate)
			certGroup.GET("/:id/download", certHandler.DownloadCertificate)
			certGroup.GET("/:id/download-link", certHandler.GetDownloadLink)
			certGroup.POST("/:id/export", certHandler.ExportCertificate)
		}

		// preview 不能挂在 /certificates 下：静态段会和 :id 通配冲突。
		previewGroup := v1.Group("/preview")
		previewGroup.Use(authMiddleware)
		{
			previewGroup.POST("", certHandler.PreviewCertificate)
			previewGroup.POST("/html", certHandler.PreviewCertificateHTML)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.POST("/upload", assetHandler.UploadAsset)
			assetGroup.GET("", assetHandler.ListAssets)
			assetGroup.GET("/view", assetHandler.GetAssetURL)
			assetGroup.DELETE("", assetHandler.DeleteAsset)
		}
	}
}
