package main

import (
	"context"
	"encoding/json"

	"matchme-server/internal/config"
	"matchme-server/internal/database"
	"matchme-server/internal/handlers"
	"matchme-server/internal/middleware"
	"matchme-server/internal/redis"
	"matchme-server/internal/services"
	"matchme-server/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	rdb, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := storage.CreateBucket(context.Background()); err != nil {
		logrus.WithError(err).Warn("Failed to ensure media bucket")
	}

	push, err := services.NewPushService(context.Background(), cfg, db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize push notifications")
	}

	hub := websocket.NewHub()

	dismissals := services.NewDismissalService(db, cfg.DismissalWindow)
	connections := services.NewConnectionService(db, dismissals)
	recommendations := services.NewRecommendationService(db, connections, dismissals)
	presence := services.NewPresenceService(connections, hub, rdb, cfg.PresenceGracePeriod)
	chat := services.NewChatService(db, connections, presence, hub, push)
	profiles := services.NewProfileService(db)

	hub.OnConnect = presence.UserConnected
	hub.OnDisconnect = presence.UserDisconnected
	hub.OnClientMessage = func(userID uint, data []byte) {
		var event struct {
			Type       string `json:"type"`
			ReceiverID uint   `json:"receiver_id"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			return
		}
		if event.Type == "typing" && event.ReceiverID != 0 {
			if err := chat.SendTyping(context.Background(), userID, event.ReceiverID); err != nil {
				logrus.WithError(err).Debug("Typing relay rejected")
			}
		}
	}

	authHandler := handlers.NewAuthHandler(db, rdb, cfg)
	profileHandler := handlers.NewProfileHandler(profiles, storage, cfg)
	connectionHandler := handlers.NewConnectionHandler(db, connections, profiles)
	recommendationHandler := handlers.NewRecommendationHandler(recommendations)
	messageHandler := handlers.NewMessageHandler(chat, presence, push)

	router := setupRoutes(cfg, db, rdb, hub,
		authHandler, profileHandler, connectionHandler, recommendationHandler, messageHandler)

	logrus.WithField("port", cfg.Port).Info("Server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

func setupRoutes(cfg *config.Config, db *gorm.DB, rdb *redis.Client, hub *websocket.Hub,
	authHandler *handlers.AuthHandler, profileHandler *handlers.ProfileHandler,
	connectionHandler *handlers.ConnectionHandler, recommendationHandler *handlers.RecommendationHandler,
	messageHandler *handlers.MessageHandler) *gin.Engine {

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(db, rdb, cfg), authHandler.Logout)
			auth.GET("/me", middleware.AuthRequired(db, rdb, cfg), authHandler.Me)
		}

		authed := v1.Group("")
		authed.Use(middleware.AuthRequired(db, rdb, cfg))
		{
			authed.GET("/profile", profileHandler.GetMyProfile)
			authed.PATCH("/profile", profileHandler.UpdateProfile)
			authed.POST("/profile/photo", profileHandler.UploadPhoto)
			authed.DELETE("/profile/photo", profileHandler.DeletePhoto)
			authed.GET("/profiles/:user_id", profileHandler.GetProfile)

			authed.POST("/connections/:user_id/request", connectionHandler.SendRequest)
			authed.POST("/connections/:id/accept", connectionHandler.Accept)
			authed.POST("/connections/:id/reject", connectionHandler.Reject)
			authed.DELETE("/connections/:id", connectionHandler.Disconnect)
			authed.GET("/connections/pending", connectionHandler.ListPending)
			authed.GET("/connections", connectionHandler.ListAccepted)

			authed.GET("/recommendations", recommendationHandler.GetRecommendations)
			authed.POST("/recommendations/:user_id/dismiss", recommendationHandler.Dismiss)

			authed.POST("/messages", messageHandler.Send)
			authed.POST("/messages/typing", messageHandler.Typing)
			authed.GET("/messages/:user_id", messageHandler.History)
			authed.POST("/messages/read/:sender_id", messageHandler.MarkRead)
			authed.GET("/users/:user_id/online", messageHandler.OnlineStatus)
			authed.POST("/users/device-token", messageHandler.RegisterDeviceToken)

			authed.GET("/ws", func(c *gin.Context) {
				websocket.HandleWebSocket(hub, c)
			})
		}
	}

	return router
}
