package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/zivoe/ztm/internal/config"
	"github.com/zivoe/ztm/internal/logger"
	"github.com/zivoe/ztm/internal/state"
	"github.com/zivoe/ztm/internal/tranche"
	"github.com/zivoe/ztm/internal/wallet"
	"github.com/zivoe/ztm/internal/web"
	"github.com/zivoe/ztm/internal/ztm"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// main is the entry point for the ZTM service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("ZTM Core Logic Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load the active tranche parameter document, seeding defaults on a
	// fresh deployment.
	params, paramsID, err := state.EnsureDefaultParameters(ztm.DefaultParamsConfigName, config.DefaultTrancheParameters)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load or seed tranche parameters")
	}
	log.Info().
		Int64("paramsID", paramsID).
		Str("targetRatio", params.TargetRatio.String()).
		Int64("lookbackPeriod", params.LookbackPeriod).
		Int64("protocolFeeBips", params.ProtocolFeeBips).
		Msg("Tranche parameters loaded successfully.")

	// Load the recipient routing document
	recipients, err := config.LoadRecipients(config.RecipientsFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", config.RecipientsFile).Msg("Failed to load recipient routing document")
	}
	log.Info().
		Int("protocolRecipients", len(recipients.Protocol)).
		Int("residualRecipients", len(recipients.Residual)).
		Msg("Recipient routing loaded successfully.")

	// Initialize gRPC Connection
	grpcEndpoint := config.NodeGRPC
	var creds grpc.DialOption
	if strings.Contains(grpcEndpoint, ":443") {
		creds = grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{}))
	} else {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	grpcClient, err := grpc.Dial(grpcEndpoint, creds)
	if err != nil {
		log.Fatal().Err(err).Msg("gRPC connection error")
	}
	defer grpcClient.Close()
	log.Info().Str("endpoint", grpcEndpoint).Msg("gRPC connected")

	// Initialize the tranche reader
	trancheClient, err := tranche.NewTrancheClient(grpcClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tranche client")
	}
	defer trancheClient.Close()

	// --- Start Web Server ---
	// The dashboard's quote endpoint prices deposits against live chain
	// state, so the server takes the tranche reader.
	webServer := web.NewWebServer(config.WebPort, trancheClient)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting ZTM web dashboard")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 2. Payout Executor Initialization (with Safety Switch) ---
	var payouts ztm.PayoutExecutor

	if config.IsLive() {
		log.Warn().Msg("Initializing ZTM in LIVE mode. Real transactions will be broadcast.")
		signingClient, err := wallet.NewSigningClient(grpcClient)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize signing client")
		}
		defer signingClient.Close()

		payoutBuilder, err := wallet.NewPayoutBuilder(signingClient)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize payout builder")
		}
		payouts = payoutBuilder
		log.Info().Str("address", signingClient.GetAddressString()).Msg("Signing wallet ready")
	} else {
		log.Warn().
			Str("mode", config.Mode).
			Msg("ZTM_MODE is not 'live'. Running in dry-run: plans are computed, logged, and persisted, but nothing is broadcast.")
	}

	// --- 3. Create ZTM Instance with Dependency Injection ---
	log.Info().Msg("Creating ZTM instance with dependency injection...")

	ztmInstance, err := ztm.NewZTM(ztm.Config{
		Reader:           trancheClient,
		Payouts:          payouts,
		Recipients:       recipients,
		ConfigName:       ztm.DefaultParamsConfigName,
		DistributionCron: config.DistributionCron,
		SettleInterval:   time.Duration(config.SettleIntervalMinutes) * time.Minute,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ZTM instance")
	}

	log.Info().Msg("ZTM instance created successfully")

	// --- 4. Start ZTM Main Loop ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ztmInstance.RunLoop(ctx); err != nil {
		log.Fatal().Err(err).Msg("ZTM main loop failed")
	}
	log.Info().Msg("ZTM shut down cleanly")
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
