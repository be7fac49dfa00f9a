package main

import (
	"eco_donate/internal/config" // Custom import path (Config)
	"eco_donate/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	logrus.Info("Migration completed")

	id, err := db.SeedPlatformWallet(gdb, cfg.PlatformWalletID, cfg.PlatformUsername, cfg.PlatformEmail)
	if err != nil {
		logrus.Fatalf("failed to seed platform wallet: %v", err)
	}
	if cfg.PlatformWalletID == "" {
		logrus.WithField("wallet_id", id).Warn("Set PLATFORM_WALLET_ID to this value before starting the server")
	}
}
