package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Idosegev23/homeruncms-sub000/internal/api/handlers"
	"github.com/Idosegev23/homeruncms-sub000/internal/api/middleware"
	"github.com/Idosegev23/homeruncms-sub000/internal/config"
	"github.com/Idosegev23/homeruncms-sub000/internal/matching"
	"github.com/Idosegev23/homeruncms-sub000/internal/queue"
	"github.com/Idosegev23/homeruncms-sub000/internal/services"
	"github.com/Idosegev23/homeruncms-sub000/internal/stats"
	"github.com/Idosegev23/homeruncms-sub000/internal/storage"
	"github.com/Idosegev23/homeruncms-sub000/internal/whatsapp"
)

// RouterDeps carries the shared components the API handlers need. They are
// constructed once in main and injected here.
type RouterDeps struct {
	Gateway        whatsapp.IClient
	MessageQueue   *queue.Queue
	Tracker        *stats.Tracker
	TaskClient     handlers.IAsynqClient
	StorageService storage.IS3Storage
	Weights        matching.Weights
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, deps RouterDeps) *gin.Engine {
	customerService := services.NewCustomerService(db)
	propertyService := services.NewPropertyService(db)
	userService := services.NewUserService(db, cfg)
	inboxService := services.NewInboxService(db, customerService)
	matchService := services.NewMatchService(matching.NewScorer(deps.Weights), customerService, propertyService)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	authHandler := handlers.NewRestAuthHandler(cfg, userService)
	customerHandler := handlers.NewRestCustomerHandler(customerService)
	propertyHandler := handlers.NewRestPropertyHandler(propertyService, deps.StorageService, deps.TaskClient)
	matchHandler := handlers.NewRestMatchHandler(matchService)
	messageHandler := handlers.NewRestMessageHandler(deps.Gateway, deps.MessageQueue, deps.Tracker, inboxService)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/login", authHandler.Login)
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/auth/me", authHandler.Me)

			authRequired.POST("/customer", customerHandler.CreateCustomer)
			authRequired.GET("/customer", customerHandler.ListCustomers)
			authRequired.GET("/customer/:id", customerHandler.GetCustomerByID)
			authRequired.PUT("/customer/:id", customerHandler.UpdateCustomer)
			authRequired.DELETE("/customer/:id", customerHandler.DeleteCustomer)
			authRequired.GET("/customer/:id/matches", matchHandler.MatchesForCustomer)
			authRequired.GET("/customer/:id/inbox", messageHandler.ListCustomerInbox)

			authRequired.POST("/property", propertyHandler.CreateProperty)
			authRequired.GET("/property", propertyHandler.ListProperties)
			authRequired.GET("/property/:id", propertyHandler.GetPropertyByID)
			authRequired.PUT("/property/:id", propertyHandler.UpdateProperty)
			authRequired.DELETE("/property/:id", propertyHandler.DeleteProperty)
			authRequired.GET("/property/:id/matches", matchHandler.MatchesForProperty)
			authRequired.POST("/property/:id/image/presign", propertyHandler.PresignImageUpload)
			authRequired.POST("/property/:id/image/process", propertyHandler.ProcessImage)

			authRequired.GET("/match/:customer_id/:property_id", matchHandler.ScorePair)

			authRequired.POST("/message/send", messageHandler.SendMessage)
			authRequired.POST("/message/send-file", messageHandler.SendFile)
			authRequired.POST("/message/queue", messageHandler.EnqueueMessage)
			authRequired.GET("/message/queue", messageHandler.ListQueue)
			authRequired.DELETE("/message/queue/:id", messageHandler.RemoveFromQueue)
			authRequired.POST("/message/queue/drain", messageHandler.DrainQueue)
			authRequired.GET("/message/queue/dead", messageHandler.ListDeadLetters)
			authRequired.POST("/message/queue/dead/:id/requeue", messageHandler.RequeueDeadLetter)
			authRequired.GET("/message/stats", messageHandler.GetStats)
			authRequired.GET("/message/history/:chat_id", messageHandler.GetChatHistory)
			authRequired.GET("/message/last-incoming", messageHandler.LastIncoming)
			authRequired.GET("/message/last-outgoing", messageHandler.LastOutgoing)
			authRequired.POST("/message/read/:chat_id", messageHandler.ReadChat)
			authRequired.GET("/message/check/:phone", messageHandler.CheckWhatsApp)
			authRequired.GET("/message/avatar/:chat_id", messageHandler.GetAvatar)
			authRequired.GET("/message/inbox", messageHandler.ListInbox)
		}

		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			userHandler := handlers.NewRestUserHandler(userService)
			adminRequired.POST("/user", userHandler.CreateUser)
			adminRequired.PUT("/user/:id/password", userHandler.ChangePassword)
			adminRequired.DELETE("/user/:id", userHandler.DeleteUser)
		}
	}

	return r
}
