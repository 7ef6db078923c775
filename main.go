package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"recovery-companion-system/handlers"
	"recovery-companion-system/middleware"
	"recovery-companion-system/models"
	"recovery-companion-system/services"
	"recovery-companion-system/utils"
	"recovery-companion-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — journaling payloads are small
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.UserModuleProgress{},
		&models.PatternObservation{},
		&models.RecoveryUser{},
		&models.RiskSnapshot{},
		&models.ReflectionSession{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	catalog, err := loadCatalog()
	if err != nil {
		log.Fatal("failed to load module catalog:", err)
	}
	log.Printf("✅ Module catalog loaded: %d module(s)", catalog.Size())

	events := services.NewEventLog()
	progression := services.NewProgressionEngine(catalog, services.NewGormProgressStore(db))
	insights := services.NewInsightEngine(services.NewGormObservationStore(db))
	decision := services.NewDecisionService(events, progression, insights)
	riskHistory := services.NewRiskHistoryService(db)

	llmBaseURL := os.Getenv("LLM_BASE_URL")
	if llmBaseURL == "" {
		llmBaseURL = "http://localhost:11434"
	}
	llmModel := os.Getenv("LLM_MODEL")
	if llmModel == "" {
		llmModel = "llama3.2:3b"
	}
	llm := services.NewLLMClient(llmBaseURL, llmModel)

	// --- CONFIGURE Sync Service Details for Recovery Users ---
	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("RECOVERY_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("RECOVERY_SERVICE_TOKEN environment variable not set")
	}
	// --- END CONFIG ---

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewRecoveryUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)
	syncWorker.Start(ctx)

	riskWorker := workers.NewRiskSweepWorker(db, insights)
	go workers.PollRisk(ctx, riskWorker, 60*time.Second)

	services.StartMaintenanceScheduler(catalog, db)

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupProgressionRoutes(app, decision, catalog)
	handlers.SetupInsightRoutes(app, decision, riskHistory)
	handlers.SetupReflectRoutes(app, llm, catalog, db)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Recovery User Sync Worker running")
	log.Println("✅ Risk sweep running (every 60s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}

// loadCatalog builds the module catalog from a local directory (CATALOG_DIR) or,
// when CATALOG_BUNDLE_KEY is set, from a zip bundle fetched out of R2.
func loadCatalog() (*services.ModuleCatalog, error) {
	dir := os.Getenv("CATALOG_DIR")

	if key := os.Getenv("CATALOG_BUNDLE_KEY"); key != "" {
		if err := utils.EnsureCatalogCacheDir(); err != nil {
			return nil, err
		}
		bundlePath := utils.CatalogCachePath("bundle.zip")
		if err := utils.DownloadFromR2(key, bundlePath); err != nil {
			return nil, err
		}
		extractDir := utils.CatalogCachePath("modules")
		if err := utils.Unzip(bundlePath, extractDir); err != nil {
			return nil, err
		}
		log.Printf("📥 Catalog bundle %s fetched and extracted", key)
		dir = extractDir
	}

	if dir == "" {
		dir = "./modules"
	}

	modules, err := services.LoadCatalogFromDir(dir)
	if err != nil {
		return nil, err
	}
	return services.NewModuleCatalog(modules)
}
