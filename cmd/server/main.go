package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/goldclear/clearing-api/internal/auth"
	"github.com/goldclear/clearing-api/internal/breach"
	"github.com/goldclear/clearing-api/internal/capital"
	"github.com/goldclear/clearing-api/internal/corridor"
	"github.com/goldclear/clearing-api/internal/database"
	"github.com/goldclear/clearing-api/internal/fees"
	"github.com/goldclear/clearing-api/internal/settlement"
	"github.com/goldclear/clearing-api/internal/types"
	"github.com/goldclear/clearing-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the clearing API server with graceful
// shutdown support. It sets up all required services, the database
// connection, the breach sweep processor, and API routes.
func main() {
	db, err := database.NewDatabase(os.Getenv("DATABASE_PATH"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "goldclear-secret-key"
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(jwtSecret)
	authHandlers := auth.NewGinHandlers(authService)
	registerTestActors(authService)

	capitalService := capital.NewService(db, capital.DefaultParams())
	capitalHandlers := capital.NewGinHandlers(capitalService)
	seedCapitalConfig(capitalService)

	breachService := breach.NewService(db, capitalService)
	breachHandlers := breach.NewGinHandlers(breachService)

	corridorService := corridor.NewService(db)
	corridorHandlers := corridor.NewGinHandlers(corridorService)
	seedCorridors(corridorService)

	settlementService := settlement.NewService(db, capitalService, corridorService, fees.DefaultSchedule())
	settlementHandlers := settlement.NewGinHandlers(settlementService)

	// Create and start the breach sweep processor
	sweepProcessor := breach.NewProcessor(breachService, time.Minute)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go sweepProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, jwtSecret, authHandlers, settlementHandlers, capitalHandlers, breachHandlers, corridorHandlers)

	// Get port from env otherwise it's 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for token exchange
// - Settlement and capital routes: Protected by JWT authentication
// - Internal routes: Protected by internal network authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	settlementHandlers *settlement.GinHandlers,
	capitalHandlers *capital.GinHandlers,
	breachHandlers *breach.GinHandlers,
	corridorHandlers *corridor.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Settlement routes
		settlements := v1.Group("/settlements")
		settlements.Use(middleware.JWTAuth(jwtSecret))
		{
			settlements.GET("/fee-quote", settlementHandlers.FeeQuoteHandler())
			settlements.POST("", settlementHandlers.OpenSettlementHandler())
			settlements.GET("/:settlement_id", settlementHandlers.GetSettlementHandler())
			settlements.GET("/:settlement_id/ledger", settlementHandlers.GetLedgerHandler())
			settlements.GET("/:settlement_id/requirements", settlementHandlers.GetRequirementsHandler())
			settlements.GET("/:settlement_id/actions", settlementHandlers.GetActionsHandler())
			settlements.POST("/:settlement_id/actions", settlementHandlers.ApplyActionHandler())
			settlements.POST("/:settlement_id/payment", settlementHandlers.RecordPaymentHandler())
			settlements.POST("/:settlement_id/approval", settlementHandlers.UpdateApprovalHandler())
		}

		// Capital routes
		capitalGroup := v1.Group("/capital")
		capitalGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			capitalGroup.GET("/snapshot", capitalHandlers.GetSnapshotHandler())
			capitalGroup.GET("/breaches", breachHandlers.ListEventsHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(jwtSecret))
		{
			internal.POST("/capital/sweep", breachHandlers.RunSweepHandler())
			internal.POST("/corridors/:corridor_id/status", corridorHandlers.SetCorridorStatusHandler())
			internal.POST("/hubs/:hub_id/status", corridorHandlers.SetHubStatusHandler())
		}
	}
}

// registerTestActors seeds one credential per role for development.
func registerTestActors(authService *auth.Service) {
	authService.RegisterActorCredentials("treasury-api-key", "treasury-api-secret", "USR_treasury_1", types.RoleTreasury)
	authService.RegisterActorCredentials("vault-api-key", "vault-api-secret", "USR_vault_1", types.RoleVaultOps)
	authService.RegisterActorCredentials("compliance-api-key", "compliance-api-secret", "USR_compliance_1", types.RoleCompliance)
	authService.RegisterActorCredentials("admin-api-key", "admin-api-secret", "USR_admin_1", types.RoleAdmin)
	authService.RegisterActorCredentials("buyer-api-key", "buyer-api-secret", "USR_buyer_1", types.RoleBuyer)
}

// seedCapitalConfig inserts the clearing entity's capital base when the
// table is empty. 50m capital, 500m hardstop, in minor units.
func seedCapitalConfig(capitalService *capital.Service) {
	if _, err := capitalService.GetDB().GetConfig(); err == nil {
		return
	}
	cfg := &capital.Config{
		CapitalBaseMinor:   5_000_000_000,
		HardstopLimitMinor: 50_000_000_000,
	}
	if err := capitalService.GetDB().SaveConfig(cfg); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to seed capital config")
	}
}

// seedCorridors inserts the default corridor/hub registry.
func seedCorridors(corridorService *corridor.Service) {
	corridors := []corridor.Corridor{
		{CorridorID: "COR_ZA_AE", Name: "Johannesburg - Dubai", Status: corridor.CorridorActive, MaxNotionalMinor: 2_000_000_000, Currency: "USD"},
		{CorridorID: "COR_CH_SG", Name: "Zurich - Singapore", Status: corridor.CorridorActive, MaxNotionalMinor: 5_000_000_000, Currency: "USD"},
	}
	hubs := []corridor.Hub{
		{HubID: "HUB_JNB", Name: "Johannesburg Vault Hub", Status: corridor.HubOnline},
		{HubID: "HUB_DXB", Name: "Dubai Vault Hub", Status: corridor.HubOnline},
		{HubID: "HUB_ZRH", Name: "Zurich Vault Hub", Status: corridor.HubOnline},
	}
	if err := corridorService.Seed(corridors, hubs); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to seed corridor registry")
	}
}
