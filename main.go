package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/shortage-app/config"
	"github.com/yeremiapane/shortage-app/middlewares"
	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/router"
	"github.com/yeremiapane/shortage-app/services"
	"github.com/yeremiapane/shortage-app/utils"
	"github.com/yeremiapane/shortage-app/workflow"
)

func init() {
	// Load .env file di awal sebelum apapun
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	// Logger sudah diinisialisasi oleh utils; server pakai output berwarna.
	utils.InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
	utils.ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
}

func main() {
	// Initialize DB
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	// Set gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	// Setup rate limiter (50 requests per second per IP)
	rateLimiter := middlewares.NewRateLimiter(50, 1)

	// Dispatcher outbox: kirim intent notifikasi ke Power Automate flow
	dispatcher := services.NewOutboxDispatcher(db, services.NewFlowNotifier())
	dispatcher.Interval = 2 * time.Second
	dispatcher.Start()
	defer dispatcher.Stop()

	policy := workflow.ParseReopenPolicy(os.Getenv("WORKFLOW_REOPEN_POLICY"))
	utils.InfoLogger.Printf("Reopen policy: %s", policy)

	provider := services.NewDataverseProvider()

	// Setup router
	r := router.SetupRouter(router.Deps{
		DB:       db,
		Provider: provider,
		Store:    historyStore(db, provider),
		Outbox:   services.NewGormOutbox(db),
		Registry: services.NewSessionRegistry(),
		Policy:   policy,
	})
	r.Use(rateLimiter.RateLimit())

	// Set trusted proxies
	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	// Run server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

// historyStore memilih backend snapshot: default tabel lokal, atau langsung
// kolom crdfd_history di Dataverse kalau diminta.
func historyStore(db *gorm.DB, dv *services.DataverseProvider) services.HistoryStore {
	if os.Getenv("HISTORY_BACKEND") == "dataverse" {
		utils.InfoLogger.Println("History backend: dataverse")
		return dv
	}
	return services.NewGormHistoryStore(db)
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.OrderRequest{},
		&models.NotificationIntent{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
