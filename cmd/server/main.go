package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fundmatch-labs/fundmatch/internal/api"
	"github.com/fundmatch-labs/fundmatch/internal/config"
	"github.com/fundmatch-labs/fundmatch/internal/database"
	"github.com/fundmatch-labs/fundmatch/internal/services"
	"github.com/fundmatch-labs/fundmatch/internal/utils"
)

// Build information (set via ldflags)
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

func main() {
	var showVersion = flag.Bool("version", false, "Show version information")
	var quiet = flag.Bool("quiet", false, "Disable logging output")
	flag.Parse()

	if *quiet {
		log.SetOutput(io.Discard)
	}

	if *showVersion {
		log.Printf("FundMatch Settlement Server\n")
		log.Printf("Version: %s\n", Version)
		log.Printf("Commit: %s\n", CommitHash)
		log.Printf("Built: %s\n", BuildTime)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database: postgres when a DSN is configured, sqlite otherwise.
	var db *database.Database
	if cfg.DatabaseURL != "" {
		db, err = database.NewPostgresDatabase(cfg.DatabaseURL)
	} else {
		db, err = database.NewSqliteDatabase(cfg.SqlitePath)
	}
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	var explorer *utils.ExplorerClient
	if cfg.ExplorerURL != "" {
		explorer = utils.NewExplorerClient(cfg.ExplorerURL, cfg.ExplorerAPIKey)
	}

	transfers, err := services.NewTransferService(cfg.RPCURLs, explorer)
	if err != nil {
		log.Fatal("Failed to initialize transfer service:", err)
	}

	var signer services.TreasurySigner
	if cfg.PlatformAdminKey != "" {
		signer, err = services.NewEvmSigner(cfg.PrimaryRPCURL(), cfg.PlatformAdminKey)
		if err != nil {
			log.Fatal("Failed to initialize platform signer:", err)
		}
	}

	var balances services.BalanceReader
	if cfg.USDTokenAddress != "" {
		balances = services.NewTreasuryBalanceService(db.DB, cfg.RPCURLs, cfg.USDTokenAddress)
	}

	paymentService := services.NewPaymentService(db.DB)
	qfService := services.NewQfService(db.DB)
	lockService := services.NewExecutionLockService(db.DB)
	actorLocks := services.NewRegistrationLockService()
	pledgeService := services.NewPledgeService(db.DB, lockService, actorLocks, signer)
	reconciliationService := services.NewReconciliationService(db.DB, paymentService, transfers, balances)

	apiServer := api.NewAPIServer(db, qfService, paymentService, pledgeService, reconciliationService, cfg.JWTSecret)
	if err := apiServer.Start(cfg.Port); err != nil {
		log.Fatal("Failed to start API server:", err)
	}
	log.Printf("API server started on port %s\n", cfg.Port)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("\nShutting down server...")
	if err := apiServer.Shutdown(); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}
	log.Println("Server shut down successfully")
}
