package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"water-auction/internal/auth"
	"water-auction/internal/config"
	"water-auction/internal/database"
	"water-auction/internal/handlers"
	"water-auction/internal/repository"
	"water-auction/internal/services"
	"water-auction/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}

	// Initialize session tokens
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		utils.Fatal("failed to connect to database", map[string]any{"error": err.Error()})
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		utils.Fatal("failed to run migrations", map[string]any{"error": err.Error()})
	}

	// Initialize repository and services
	repo := repository.NewRepository(database.GetDB())
	participantService := services.NewParticipantService(repo, cfg.Auction)
	engine := services.NewClearingEngine(cfg.Auction.TierBoundary)
	resultCache := services.NewResultCache()
	auctionService, err := services.NewAuctionService(repo, engine, resultCache, cfg.Auction)
	if err != nil {
		utils.Fatal("failed to initialize auction service", map[string]any{"error": err.Error()})
	}

	// Initialize handlers
	issueTokens := cfg.App.JWTSecret != ""
	participantHandler := handlers.NewParticipantHandler(participantService, issueTokens)
	auctionHandler := handlers.NewAuctionHandler(auctionService)

	// Set up Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS middleware: the experiment UI is served from a separate origin
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.App.AllowedOrigins) == 1 && cfg.App.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.App.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Registration is always public
	router.POST("/register", participantHandler.Register)

	// Participant-scoped routes, optionally behind the session-token check
	scoped := router.Group("/")
	if cfg.App.RequireSessionToken {
		scoped.Use(auth.SessionMiddleware())
	}
	{
		scoped.POST("/submit_description", participantHandler.SubmitDescription)
		scoped.GET("/participant_info", participantHandler.GetParticipantInfo)
		scoped.POST("/bid_submit", auctionHandler.SubmitBids)
		scoped.GET("/round_result", auctionHandler.RoundResult)
		scoped.GET("/final_tokens", auctionHandler.FinalTokens)
	}

	// Operator view
	router.GET("/rounds", auctionHandler.ListRounds)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		utils.Info("server starting", map[string]any{
			"port":         cfg.Server.Port,
			"total_rounds": cfg.Auction.TotalRounds,
			"participants": cfg.Auction.RequiredParticipants,
			"db_driver":    cfg.Database.Driver,
		})

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Info("shutting down server", nil)

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		utils.Fatal("server forced to shutdown", map[string]any{"error": err.Error()})
	}

	utils.Info("server exited", nil)
}
