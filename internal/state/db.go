// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
// Amount columns are NUMERIC(78, 0): wide enough for any 256-bit integer, so
// fixed-point base units round-trip without precision loss.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS tranche_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			document JSONB NOT NULL,
			CONSTRAINT uq_tranche_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_tranche_parameters_config_active ON tranche_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS epoch_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			epoch_number BIGINT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			params_id INTEGER REFERENCES tranche_parameters(params_id),
			height BIGINT NOT NULL,

			-- Inputs the waterfall saw
			senior_supply NUMERIC(78, 0) NOT NULL,
			junior_supply NUMERIC(78, 0) NOT NULL,
			gross_yield NUMERIC(78, 0) NOT NULL,
			protocol_fee NUMERIC(78, 0) NOT NULL,
			yield_bag NUMERIC(78, 0) NOT NULL,
			cumulative_yield NUMERIC(78, 0) NOT NULL,

			-- Resolved rates and owed amounts
			branch VARCHAR(20) NOT NULL,
			yield_target NUMERIC(78, 0) NOT NULL,
			senior_rate NUMERIC(78, 0) NOT NULL,
			junior_rate NUMERIC(78, 0) NOT NULL,
			senior_owed NUMERIC(78, 0) NOT NULL,
			junior_owed NUMERIC(78, 0) NOT NULL,
			residual NUMERIC(78, 0) NOT NULL,

			-- Smoothed analytics series
			ema_yield NUMERIC(78, 0) NOT NULL,
			ema_senior_supply NUMERIC(78, 0) NOT NULL,
			ema_junior_supply NUMERIC(78, 0) NOT NULL,

			-- The Outcome
			transaction_hashes TEXT[],
			receipts JSONB,
			success BOOLEAN NOT NULL,
			error_message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_epoch_snapshots_epoch ON epoch_snapshots(epoch_number DESC);
		CREATE INDEX IF NOT EXISTS idx_epoch_snapshots_timestamp ON epoch_snapshots(snapshot_timestamp DESC);

		CREATE TABLE IF NOT EXISTS distribution_receipts (
			receipt_id SERIAL PRIMARY KEY,
			epoch_number BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			purpose VARCHAR(30) NOT NULL,
			recipient_name VARCHAR(255),
			recipient VARCHAR(255) NOT NULL,
			denom VARCHAR(128) NOT NULL,
			amount NUMERIC(78, 0) NOT NULL,
			tx_hash VARCHAR(64),
			success BOOLEAN NOT NULL,
			message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_distribution_receipts_epoch ON distribution_receipts(epoch_number DESC);
		CREATE INDEX IF NOT EXISTS idx_distribution_receipts_purpose ON distribution_receipts(purpose);

		CREATE TABLE IF NOT EXISTS incentive_grants (
			grant_id SERIAL PRIMARY KEY,
			tx_hash VARCHAR(64) NOT NULL,
			msg_index INTEGER NOT NULL,
			height BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			depositor VARCHAR(255) NOT NULL,
			side VARCHAR(10) NOT NULL,
			deposit_denom VARCHAR(128) NOT NULL,
			deposit_amount NUMERIC(78, 0) NOT NULL,
			standardized_amount NUMERIC(78, 0) NOT NULL,
			senior_supply_at NUMERIC(78, 0) NOT NULL,
			junior_supply_at NUMERIC(78, 0) NOT NULL,
			reward NUMERIC(78, 0) NOT NULL,
			capped BOOLEAN NOT NULL DEFAULT FALSE,
			status VARCHAR(10) NOT NULL DEFAULT 'PENDING',
			skip_reason TEXT,
			payout_tx_hash VARCHAR(64),
			settled_at TIMESTAMPTZ,
			CONSTRAINT uq_incentive_grants_deposit UNIQUE (tx_hash, msg_index)
		);
		CREATE INDEX IF NOT EXISTS idx_incentive_grants_status ON incentive_grants(status);
		CREATE INDEX IF NOT EXISTS idx_incentive_grants_depositor ON incentive_grants(depositor);
		CREATE INDEX IF NOT EXISTS idx_incentive_grants_height ON incentive_grants(height DESC);

		-- Epoch counter table for persistent global epoch tracking
		CREATE TABLE IF NOT EXISTS epoch_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_epoch BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);
		INSERT INTO epoch_counter (id, current_epoch)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;

		-- Deposit scanner cursor: the last chain height whose deposits were ingested
		CREATE TABLE IF NOT EXISTS scan_cursor (
			id INTEGER PRIMARY KEY DEFAULT 1,
			last_height BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT scan_cursor_single_row CHECK (id = 1)
		);
		INSERT INTO scan_cursor (id, last_height)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// parseIntColumn converts a NUMERIC column's text form back into an Int.
func parseIntColumn(raw string, column string) (sdkmath.Int, error) {
	value, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("column %s holds a non-integer value %q", column, raw)
	}
	return value, nil
}
