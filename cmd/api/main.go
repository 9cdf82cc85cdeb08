package main

import (
	"context"
	"os"

	_ "fundecodes-backend/api/swagger" // swagger docs
	"fundecodes-backend/internal/database"
	"fundecodes-backend/internal/handler"
	"fundecodes-backend/internal/middleware"
	"fundecodes-backend/internal/repository"
	"fundecodes-backend/internal/service"
	"fundecodes-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           FUNDECODES Purchase Request API
// @version         1.0
// @description     Purchase request approval workflow for FUNDECODES programs.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		logrus.Info("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		logrus.Fatalf("Database connection failed: %v", err)
	}
	logrus.Info("Connected to PostgreSQL successfully.")

	// Permission middleware needs the DB for role -> permission lookups
	middleware.InitPermissionMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	programRepo := repository.NewProgramRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo)
	roleService := service.NewRoleService(db)
	programService := service.NewProgramService(programRepo, auditRepo)
	requestService := service.NewRequestService(requestRepo, programRepo, auditRepo, txManager, wsHub)
	invoiceService := service.NewInvoiceService(invoiceRepo, requestRepo, auditRepo, txManager, wsHub)
	auditService := service.NewAuditService(auditRepo)
	reportService := service.NewReportService(db)

	// Seed roles/permissions first, then programs and the bootstrap admin
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		logrus.WithError(err).Warn("Failed to seed roles and permissions")
	}
	if err := database.Seed(db); err != nil {
		logrus.WithError(err).Warn("Failed to seed default data")
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	programHandler := handler.NewProgramHandler(programService)
	requestHandler := handler.NewRequestHandler(requestService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	auditHandler := handler.NewAuditHandler(auditService)
	reportHandler := handler.NewReportHandler(reportService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	programHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	invoiceHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	reportHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logrus.Infof("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("Server failed: %v", err)
	}
}
