package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// NodeRPC is the CometBFT RPC endpoint for the Zivoe node.
	NodeRPC string
	// NodeGRPC is the gRPC endpoint for the Zivoe node.
	NodeGRPC string
	// WebPort is the listen port for the dashboard and API server.
	WebPort string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	NodeRPC, err = getEnv("NODE_RPC")
	if err != nil {
		return err
	}

	NodeGRPC, err = getEnv("NODE_GRPC")
	if err != nil {
		return err
	}

	WebPort = getEnvOr("WEB_PORT", "8080")

	log.Debug().
		Str("NodeRPC", NodeRPC).
		Str("NodeGRPC", NodeGRPC).
		Str("WebPort", WebPort).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
