package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/swaggo/files"
	"github.com/swaggo/gin-swagger"
	_ "github.com/uchef/uchef-backend/docs" // Import generated docs
	"github.com/uchef/uchef-backend/internal/config"
	"github.com/uchef/uchef-backend/internal/controllers"
	"github.com/uchef/uchef-backend/internal/database"
	"github.com/uchef/uchef-backend/internal/events"
	"github.com/uchef/uchef-backend/internal/metrics"
	"github.com/uchef/uchef-backend/internal/middleware"
	"github.com/uchef/uchef-backend/internal/models"
	"github.com/uchef/uchef-backend/internal/payments"
	"github.com/uchef/uchef-backend/internal/realtime"
	"github.com/uchef/uchef-backend/internal/services"
	"gorm.io/gorm"
)

var (
	db            *gorm.DB
	configuration *config.Config

	availabilityService services.AvailabilityService
	catalogService      services.CatalogService
	notificationService services.NotificationService
	orderService        services.OrderService

	orderController        controllers.OrderController
	catalogController      controllers.CatalogController
	notificationController controllers.NotificationController
	paymentController      controllers.PaymentController
)

// @title uChef API
// @version 1.0
// @description Multi-tenant food ordering platform API
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration = loadConfig()

	// Set JWT secret from configuration
	middleware.SetJWTSecret(configuration.JWTSecret)

	// Initialize database connection
	setupDatabase(configuration)

	// Initialize services and controllers
	wireDependencies(configuration)

	// Initialize Gin router
	var router *gin.Engine = setupRouter()

	// Start the server
	log.Infof("Starting server on %s:%d", configuration.Host, configuration.Port)
	router.Run(fmt.Sprintf("%v:%d", configuration.Host, configuration.Port))
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	log.Info("Loading configuration from environment variables")
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	return conf
}

// setupDatabase initializes the database connection, migrates the schema,
// and seeds reference data when the database is empty
func setupDatabase(conf *config.Config) *gorm.DB {
	var err error
	db, err = database.InitDatabase(database.DatabaseConfig{
		Driver:   conf.DBDriver,
		Host:     conf.DBHost,
		Port:     conf.DBPort,
		User:     conf.DBUser,
		Password: conf.DBPassword,
		Name:     conf.DBName,
		SSLMode:  conf.DBSSLMode,
		Path:     conf.DBPath,
	})
	checkPanicErr(err)

	checkPanicErr(database.Migrate(db))

	// Seed meal categories only if empty
	var count int64
	db.Model(&models.MealCategory{}).Count(&count)
	if count == 0 {
		log.Info("Database is empty, seeding meal categories")
		seedDatabase()
	} else {
		log.Info("Database already seeded")
	}
	return db
}

// seedDatabase seeds the database with reference data
func seedDatabase() {
	categories := []models.MealCategory{
		{Name: "Breakfast", Description: "Morning meals to start your day"},
		{Name: "Lunch", Description: "Midday meals"},
		{Name: "Dinner", Description: "Evening meals"},
		{Name: "Dessert", Description: "Sweet treats"},
		{Name: "Beverages", Description: "Drinks and refreshments"},
	}
	for _, category := range categories {
		db.Create(&category)
	}
	log.Info("Database seeded successfully")
}

// wireDependencies builds the service and controller graph
func wireDependencies(conf *config.Config) {
	var publisher events.Publisher = events.NoopPublisher{}
	if len(conf.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(conf.KafkaBrokers, conf.KafkaTopic)
		log.WithField("brokers", conf.KafkaBrokers).Info("Kafka order event publisher enabled")
	}

	var rdb *redis.Client
	if conf.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: conf.RedisAddr})
		log.WithField("addr", conf.RedisAddr).Info("Redis idempotency key store enabled")
	}

	hub := realtime.NewHub()

	availabilityService = services.NewAvailabilityService(db)
	catalogService = services.NewCatalogService(db)
	notificationService = services.NewNotificationService(db, hub, publisher)
	orderService = services.NewOrderService(db, availabilityService, notificationService, publisher, rdb)

	paymentClient := payments.NewClient(conf.PaymentProcessorURL, conf.PaymentAPIKey)

	orderController = controllers.NewOrderController(orderService)
	catalogController = controllers.NewCatalogController(catalogService, availabilityService)
	notificationController = controllers.NewNotificationController(notificationService, hub)
	paymentController = controllers.NewPaymentController(paymentClient)
}

// setupRouter initializes the Gin router and sets up the routes
func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(metrics.RequestMetrics())

	setupRoutes(router)

	return router
}

// setupRoutes defines the routes for the Gin router
func setupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", healthCheckHandler)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		publicApi := v1.Group("/public")
		{
			publicApi.GET("/meals", catalogController.GetAllMeals)
			publicApi.GET("/meals/:id", catalogController.GetMealByID)
			publicApi.GET("/meals/:id/availability", catalogController.MealAvailability)
		}

		// Protected routes (requires JWT authentication)
		protectedApi := v1.Group("")
		protectedApi.Use(middleware.JWTAuth())
		{
			protectedApi.POST("/orders", orderController.CreateOrder)
			protectedApi.GET("/orders", orderController.GetAllOrders)
			protectedApi.GET("/orders/:id", orderController.GetOrderByID)
			protectedApi.POST("/orders/:id/status", middleware.RequireRole(models.RoleRestaurant, models.RoleAdmin), orderController.UpdateStatus)

			protectedApi.GET("/custom-meals/:id/availability", catalogController.CustomMealAvailability)

			protectedApi.GET("/notifications", notificationController.GetAll)
			protectedApi.GET("/notifications/unread", notificationController.GetUnread)
			protectedApi.POST("/notifications/:id/read", notificationController.MarkAsRead)
			protectedApi.POST("/notifications/read-all", notificationController.MarkAllAsRead)

			protectedApi.POST("/payments/intent", paymentController.CreateIntent)

			protectedApi.GET("/ws/notifications", notificationController.Stream)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "uchef-backend",
	})
}
