package router

import (
	"github.com/gin-gonic/gin"
	"github.com/seojinhan/matjip-backend/config"
	"github.com/seojinhan/matjip-backend/internal/app/controller"
	"github.com/seojinhan/matjip-backend/internal/middleware"
)

type Router struct {
	restaurantController *controller.RestaurantController
	reviewController     *controller.ReviewController
	uploadController     *controller.UploadController
	watchController      *controller.WatchController
	authMiddleware       *middleware.AuthMiddleware
	config               *config.Config
}

func NewRouter(
	restaurantController *controller.RestaurantController,
	reviewController *controller.ReviewController,
	uploadController *controller.UploadController,
	watchController *controller.WatchController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		restaurantController: restaurantController,
		reviewController:     reviewController,
		uploadController:     uploadController,
		watchController:      watchController,
		authMiddleware:       authMiddleware,
		config:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "MATJIP API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		restaurants := v1.Group("/restaurants")
		{
			restaurants.GET("", r.restaurantController.ListRestaurants)
			restaurants.GET("/:id", r.restaurantController.GetRestaurantByID)
			restaurants.GET("/:id/reviews", r.reviewController.ListReviews)

			restaurants.POST("",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.restaurantController.CreateRestaurant,
			)
			restaurants.POST("/:id/reviews",
				r.authMiddleware.Authenticate(),
				r.reviewController.SubmitReview,
			)
			restaurants.POST("/:id/photo",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.uploadController.UploadPhoto,
			)
			restaurants.POST("/:id/photo/presign",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.uploadController.PresignPhotoUpload,
			)
		}

		// WebSocket handshakes cannot carry an Authorization header from
		// browsers, so Authenticate also accepts a token query parameter.
		ws := v1.Group("/ws")
		ws.Use(r.authMiddleware.Authenticate())
		{
			ws.GET("/restaurants", r.watchController.WatchRestaurants)
			ws.GET("/restaurants/:id/reviews", r.watchController.WatchReviews)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
