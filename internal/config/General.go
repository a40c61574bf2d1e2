package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Bech32Prefix is the account address prefix on the Zivoe chain.
const Bech32Prefix = "zivoe"

// ModeLive is the only ZTM_MODE value that broadcasts transactions; any other
// value runs the full pipeline but stops short of signing and broadcasting.
const ModeLive = "live"

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// ChainID is the chain ID of the target network.
	ChainID string

	// KeyringBackend is the backend for the keyring (e.g., "os", "file", "test").
	KeyringBackend string
	// KeyringDir is the path to the keyring directory.
	KeyringDir string
	// KeyName is the name of the key within the keyring to use for signing.
	KeyName string

	// SeniorDenom and JuniorDenom are the tranche token denoms whose supplies
	// drive every rate computation.
	SeniorDenom string
	JuniorDenom string
	// IncentiveDenom is the ZVE denom paid out as deposit incentives.
	IncentiveDenom string
	// YieldDenom is the stablecoin denom deposits arrive in and yield is paid in.
	YieldDenom string

	// DepositAddress receives tranche subscriptions and accrues loan yield.
	// The signing key must control this account.
	DepositAddress string
	// SeniorRewardsAddress and JuniorRewardsAddress receive each tranche's
	// yield leg at distribution.
	SeniorRewardsAddress string
	JuniorRewardsAddress string

	// GasAdjustment is the multiplier for simulated gas to ensure sufficient fees.
	GasAdjustment float64
	// GasPrice is the fee price per unit of gas, e.g. "0.025uzve".
	GasPrice string
	// DefaultGasLimit is the fallback gas limit when simulation fails.
	DefaultGasLimit uint64

	// Mode decides whether transactions are broadcast (ModeLive) or logged
	// and discarded.
	Mode string

	// RecipientsFile points at the YAML document naming protocol-fee and
	// residual recipients.
	RecipientsFile string

	// DistributionCron is the UTC cron expression for the weekly distribution.
	DistributionCron string
	// SettleIntervalMinutes is how often pending deposits are settled.
	SettleIntervalMinutes int64
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Required variables fail loudly when unset; optional ones fall back to defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	ChainID, err = getEnv("ZTM_CHAIN_ID")
	if err != nil {
		return err
	}

	KeyringBackend, err = getEnv("ZTM_KEYRING_BACKEND")
	if err != nil {
		return err
	}

	KeyringDir, err = getEnv("ZTM_KEYRING_DIR")
	if err != nil {
		return err
	}

	KeyName, err = getEnv("ZTM_KEY_NAME")
	if err != nil {
		return err
	}

	SeniorDenom, err = getEnv("ZTM_SENIOR_DENOM")
	if err != nil {
		return err
	}

	JuniorDenom, err = getEnv("ZTM_JUNIOR_DENOM")
	if err != nil {
		return err
	}

	IncentiveDenom, err = getEnv("ZTM_INCENTIVE_DENOM")
	if err != nil {
		return err
	}

	YieldDenom, err = getEnv("ZTM_YIELD_DENOM")
	if err != nil {
		return err
	}

	DepositAddress, err = getEnv("ZTM_DEPOSIT_ADDRESS")
	if err != nil {
		return err
	}

	SeniorRewardsAddress, err = getEnv("ZTM_SENIOR_REWARDS_ADDRESS")
	if err != nil {
		return err
	}

	JuniorRewardsAddress, err = getEnv("ZTM_JUNIOR_REWARDS_ADDRESS")
	if err != nil {
		return err
	}

	GasAdjustment, err = getEnvAsFloat64Or("ZTM_GAS_ADJUSTMENT", 1.3)
	if err != nil {
		return err
	}

	GasPrice = getEnvOr("ZTM_GAS_PRICE", "0.025uzve")

	defaultGas, err := getEnvAsInt64Or("ZTM_DEFAULT_GAS_LIMIT", 300_000)
	if err != nil {
		return err
	}
	if defaultGas < 1 {
		return errors.New("ZTM_DEFAULT_GAS_LIMIT must be at least 1")
	}
	DefaultGasLimit = uint64(defaultGas)

	Mode = getEnvOr("ZTM_MODE", "dry-run")
	RecipientsFile = getEnvOr("ZTM_RECIPIENTS_FILE", "config/recipients.yaml")
	DistributionCron = getEnvOr("ZTM_DISTRIBUTION_CRON", "0 0 * * MON")

	SettleIntervalMinutes, err = getEnvAsInt64Or("ZTM_SETTLE_INTERVAL_MINUTES", 10)
	if err != nil {
		return err
	}
	if SettleIntervalMinutes < 1 {
		return errors.New("ZTM_SETTLE_INTERVAL_MINUTES must be at least 1")
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	// Expand the tilde (~) in the keyring directory path to the user's home directory.
	if strings.HasPrefix(KeyringDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		KeyringDir = filepath.Join(home, KeyringDir[2:])
	}

	log.Debug().
		Str("ChainID", ChainID).
		Str("KeyName", KeyName).
		Str("SeniorDenom", SeniorDenom).
		Str("JuniorDenom", JuniorDenom).
		Str("Mode", Mode).
		Msg("Configuration loaded successfully.")

	return nil
}

// IsLive reports whether broadcasts are enabled for this process.
func IsLive() bool {
	return Mode == ModeLive
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOr retrieves a string environment variable, falling back to a default.
func getEnvOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt64Or retrieves an environment variable as an int64, falling back
// to a default when unset. Returns error if set but invalid.
func getEnvAsInt64Or(key string, fallback int64) (int64, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsFloat64Or retrieves an environment variable as a float64, falling
// back to a default when unset. Returns error if set but invalid.
func getEnvAsFloat64Or(key string, fallback float64) (float64, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}
