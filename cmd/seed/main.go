// Command seed provisions the default roles, permissions and accounts. It is
// safe to run repeatedly.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/config"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/db"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

func main() {
	logger := logger.New("SEED")

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := db.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := models.Seed(context.Background(), db.GetDB(), cfg.Accounts.BcryptCost); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	logger.Success("Seeded %d roles and %d accounts", len(models.DefaultCatalog.Roles), len(models.DefaultAccounts))
}
