package main

import (
	"context"   // Shutdown and Redis ping
	"errors"    // Server close check
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"eco_donate/internal/api"         // HTTP handlers and routes
	"eco_donate/internal/certificate" // PDF certificates
	"eco_donate/internal/config"      // Configuration
	"eco_donate/internal/db"          // Database connection
	"eco_donate/internal/feed"        // Live donation feed
	"eco_donate/internal/mailer"      // Outgoing mail
	"eco_donate/internal/service"     // Business flows
	"eco_donate/internal/session"     // OTP and token state

	"github.com/gin-contrib/gzip"  // Response compression
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine-readable logs in production
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	if cfg.PlatformWalletID == "" {
		logrus.Fatal("PLATFORM_WALLET_ID is not set, run the migrate command first")
	}

	// Mail goes to the log when no SMTP host is configured, outside production only
	mail, err := mailer.New(cfg.MailHost, cfg.MailPort, cfg.MailUsername, cfg.MailPassword, cfg.MailSender, cfg.IsProd)
	if err != nil {
		logrus.Fatalf("failed to configure mail: %v", err)
	}
	if cfg.MailHost == "" {
		logrus.Warn("MAIL_HOST is not set, outgoing mail is only logged")
	}

	hub := feed.NewHub()
	go hub.Run(ctx)

	sessions := session.NewStore(redisClient)
	policy := service.Policy{
		MinPasswordLength: cfg.PasswordMinLength,
		MinTextLength:     cfg.DescriptionMinLength,
	}
	ledger := service.NewLedger(gdb, redisClient, cfg.CacheTTL)
	deps := api.Deps{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Sessions:  sessions,
		Accounts: service.NewAccountService(gdb, sessions, mail, policy, service.AccountConfig{
			JWTSecret:       cfg.JWTSecret,
			SessionTTL:      cfg.SessionTTL,
			RememberTTL:     cfg.RememberTTL,
			CodeTTL:         cfg.OTPTTL,
			ResetTTL:        cfg.ResetTTL,
			MaxCodeAttempts: cfg.OTPMaxAttempts,
		}),
		Ledger:       ledger,
		Donations:    service.NewDonationService(gdb, ledger, policy, cfg.PlatformWalletID, hub),
		Certificates: service.NewCertificateService(gdb, certificate.NewPDFRenderer(), mail),
		Profiles:     service.NewProfileService(gdb, ledger),
		Resources:    service.NewResources(gdb, ledger, policy, 0),
		Feed:         hub,
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/feed"})))

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	api.RegisterRoutes(r, deps)

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithField("error", err.Error()).Error("Server shutdown failed")
		}
	}()

	logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("server failed: %v", err)
	}
	logrus.Info("Server stopped")
}
