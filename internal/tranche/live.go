package tranche

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/std"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"

	"github.com/zivoe/ztm/internal/config"
	"github.com/zivoe/ztm/internal/logger"
	"github.com/zivoe/ztm/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidConnection = errors.New("connection is invalid")
	ErrInvalidDenom      = errors.New("tranche denom is invalid")
	ErrInvalidHeight     = errors.New("block height is invalid")
	ErrRPCRequestFailed  = errors.New("RPC request failed")
	ErrInvalidResponse   = errors.New("response data is invalid")
	ErrConnectionFailed  = errors.New("connection establishment failed")
)

var trancheLogger = logger.GetForComponent("tranche_client")

// TrancheClient reads tranche state from a live chain: token supplies over
// gRPC, height-pinned supplies over ABCI, and deposit transactions over the
// CometBFT RPC.
type TrancheClient struct {
	seniorDenom    string
	juniorDenom    string
	depositAddress string

	// Persistent gRPC connection
	grpcConn *grpc.ClientConn

	// Bank query client
	bankClient banktypes.QueryClient

	// CometBFT RPC client for tx search and chain status
	rpcClient *rpchttp.HTTP

	// Decoder for deposit transactions pulled out of tx search results
	txDecoder sdk.TxDecoder

	// Connection management
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTrancheClient creates a new tranche client with comprehensive validation.
// The gRPC connection is owned by the caller; the CometBFT RPC client is
// built from the configured node RPC endpoint.
func NewTrancheClient(grpcClient *grpc.ClientConn) (*TrancheClient, error) {
	if err := validateTrancheClientInputs(grpcClient); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := validateGRPCConnection(grpcClient); err != nil {
		cancel()
		return nil, errors.Join(ErrInvalidConnection, err)
	}

	rpcClient, err := rpchttp.New(config.NodeRPC, "/websocket")
	if err != nil {
		cancel()
		return nil, errors.Join(ErrConnectionFailed, fmt.Errorf("failed to create CometBFT RPC client for %s: %w", config.NodeRPC, err))
	}

	client := &TrancheClient{
		seniorDenom:    config.SeniorDenom,
		juniorDenom:    config.JuniorDenom,
		depositAddress: config.DepositAddress,
		grpcConn:       grpcClient,
		bankClient:     banktypes.NewQueryClient(grpcClient),
		rpcClient:      rpcClient,
		txDecoder:      newTxDecoder(),
		ctx:            ctx,
		cancel:         cancel,
	}

	trancheLogger.Info().
		Str("seniorDenom", client.seniorDenom).
		Str("juniorDenom", client.juniorDenom).
		Str("depositAddress", client.depositAddress).
		Msg("TrancheClient initialized successfully")

	return client, nil
}

// newTxDecoder builds a standalone protobuf tx decoder. Deposit scanning only
// needs to see bank messages and the memo, so the registry stays small.
func newTxDecoder() sdk.TxDecoder {
	registry := codectypes.NewInterfaceRegistry()
	std.RegisterInterfaces(registry)
	banktypes.RegisterInterfaces(registry)
	protoCodec := codec.NewProtoCodec(registry)
	return authtx.NewTxConfig(protoCodec, authtx.DefaultSignModes).TxDecoder()
}

// validateTrancheClientInputs performs comprehensive input validation
func validateTrancheClientInputs(grpcClient *grpc.ClientConn) error {
	if grpcClient == nil {
		return errors.Join(ErrInvalidConnection, errors.New("gRPC client cannot be nil"))
	}
	if config.NodeRPC == "" {
		return errors.New("node RPC endpoint is not configured")
	}
	if config.SeniorDenom == "" || config.JuniorDenom == "" {
		return errors.Join(ErrInvalidDenom, errors.New("tranche denoms are not configured"))
	}
	if config.SeniorDenom == config.JuniorDenom {
		return errors.Join(ErrInvalidDenom, errors.New("senior and junior denoms cannot be identical"))
	}
	if config.DepositAddress == "" {
		return errors.New("deposit address is not configured")
	}
	return nil
}

// validateGRPCConnection validates the gRPC connection
func validateGRPCConnection(grpcClient *grpc.ClientConn) error {
	if grpcClient == nil {
		return errors.New("gRPC connection is nil")
	}

	state := grpcClient.GetState()
	if state == connectivity.Shutdown {
		return errors.New("gRPC connection is shutdown")
	}
	if state == connectivity.TransientFailure {
		return errors.New("gRPC connection is in transient failure state")
	}

	return nil
}

// validateClientState validates the client's internal state
func (c *TrancheClient) validateClientState() error {
	if c == nil {
		return errors.New("tranche client is nil")
	}
	if c.bankClient == nil {
		return errors.New("bank query client is nil")
	}
	if c.rpcClient == nil {
		return errors.New("RPC client is nil")
	}
	if c.seniorDenom == "" || c.juniorDenom == "" {
		return errors.Join(ErrInvalidDenom, errors.New("tranche denoms are empty"))
	}

	return nil
}

// TrancheSupplies fetches both tranche-token supplies at the latest height.
func (c *TrancheClient) TrancheSupplies() (types.TrancheSupply, error) {
	if err := c.validateClientState(); err != nil {
		return types.TrancheSupply{}, err
	}

	if err := c.ensureConnection(); err != nil {
		trancheLogger.Error().Err(err).Msg("Failed to ensure gRPC connection for TrancheSupplies")
		return types.TrancheSupply{}, errors.Join(ErrConnectionFailed, fmt.Errorf("failed to ensure gRPC connection: %w", err))
	}

	senior, err := c.supplyOf(c.seniorDenom)
	if err != nil {
		return types.TrancheSupply{}, err
	}

	junior, err := c.supplyOf(c.juniorDenom)
	if err != nil {
		return types.TrancheSupply{}, err
	}

	supply := types.TrancheSupply{Senior: senior, Junior: junior, Height: 0}

	trancheLogger.Debug().
		Str("senior", senior.String()).
		Str("junior", junior.String()).
		Msg("Fetched current tranche supplies")

	return supply, nil
}

// supplyOf queries the bank module for one denom's total supply.
func (c *TrancheClient) supplyOf(denom string) (sdkmath.Int, error) {
	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	resp, err := c.bankClient.SupplyOf(ctx, &banktypes.QuerySupplyOfRequest{Denom: denom})
	if err != nil {
		return sdkmath.Int{}, errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to query supply of %s: %w", denom, err))
	}

	if err := validateSupplyCoin(resp.Amount, denom); err != nil {
		return sdkmath.Int{}, errors.Join(ErrInvalidResponse, err)
	}

	return resp.Amount.Amount, nil
}

// validateSupplyCoin validates a supply response coin
func validateSupplyCoin(coin sdk.Coin, wantDenom string) error {
	if coin.Denom != wantDenom {
		return fmt.Errorf("supply response denom mismatch: got %s, want %s", coin.Denom, wantDenom)
	}
	if coin.Amount.IsNil() {
		return fmt.Errorf("supply of %s is nil", wantDenom)
	}
	if coin.Amount.IsNegative() {
		return fmt.Errorf("supply of %s is negative: %s", wantDenom, coin.Amount)
	}
	return nil
}

// SuppliesAtHeight fetches both tranche-token supplies pinned to one height
// via ABCI query.
func (c *TrancheClient) SuppliesAtHeight(height int64) (types.TrancheSupply, error) {
	if err := c.validateClientState(); err != nil {
		return types.TrancheSupply{}, err
	}
	if height < 1 {
		return types.TrancheSupply{}, errors.Join(ErrInvalidHeight, fmt.Errorf("height must be at least 1, got %d", height))
	}

	senior, err := c.supplyAtHeight(c.seniorDenom, height)
	if err != nil {
		return types.TrancheSupply{}, err
	}

	junior, err := c.supplyAtHeight(c.juniorDenom, height)
	if err != nil {
		return types.TrancheSupply{}, err
	}

	supply := types.TrancheSupply{Senior: senior, Junior: junior, Height: height}

	trancheLogger.Debug().
		Int64("height", height).
		Str("senior", senior.String()).
		Str("junior", junior.String()).
		Msg("Fetched height-pinned tranche supplies")

	return supply, nil
}

// AccountBalance fetches an address's balance of one denom.
func (c *TrancheClient) AccountBalance(address string, denom string) (sdkmath.Int, error) {
	if err := c.validateClientState(); err != nil {
		return sdkmath.Int{}, err
	}
	if address == "" {
		return sdkmath.Int{}, errors.New("address cannot be empty")
	}
	if denom == "" {
		return sdkmath.Int{}, errors.Join(ErrInvalidDenom, errors.New("denom cannot be empty"))
	}

	if err := c.ensureConnection(); err != nil {
		trancheLogger.Error().Err(err).Msg("Failed to ensure gRPC connection for AccountBalance")
		return sdkmath.Int{}, errors.Join(ErrConnectionFailed, fmt.Errorf("failed to ensure gRPC connection: %w", err))
	}

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	resp, err := c.bankClient.Balance(ctx, &banktypes.QueryBalanceRequest{Address: address, Denom: denom})
	if err != nil {
		return sdkmath.Int{}, errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to query balance of %s for %s: %w", denom, address, err))
	}

	if resp.Balance == nil {
		return sdkmath.Int{}, errors.Join(ErrInvalidResponse, errors.New("balance response is nil"))
	}
	if err := validateSupplyCoin(*resp.Balance, denom); err != nil {
		return sdkmath.Int{}, errors.Join(ErrInvalidResponse, err)
	}

	trancheLogger.Debug().
		Str("address", address).
		Str("denom", denom).
		Str("amount", resp.Balance.Amount.String()).
		Msg("Fetched account balance")

	return resp.Balance.Amount, nil
}

// LatestHeight returns the chain's latest committed block height.
func (c *TrancheClient) LatestHeight() (int64, error) {
	if err := c.validateClientState(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	status, err := c.rpcClient.Status(ctx)
	if err != nil {
		return 0, errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to query chain status: %w", err))
	}

	height := status.SyncInfo.LatestBlockHeight
	if height < 1 {
		return 0, errors.Join(ErrInvalidResponse, fmt.Errorf("chain reports height %d", height))
	}

	return height, nil
}

// isConnected checks if the gRPC connection is valid
func (c *TrancheClient) isConnected() bool {
	if c == nil || c.grpcConn == nil {
		return false
	}

	state := c.grpcConn.GetState()
	return state != connectivity.TransientFailure && state != connectivity.Shutdown
}

// ensureConnection ensures we have a valid gRPC connection with zero tolerance
func (c *TrancheClient) ensureConnection() error {
	if c == nil {
		return errors.New("tranche client is nil")
	}

	if !c.isConnected() {
		trancheLogger.Error().Msg("gRPC connection is invalid")
		return errors.Join(ErrConnectionFailed, errors.New("gRPC connection is not valid"))
	}

	return nil
}

// Close closes the tranche client with proper cleanup.
func (c *TrancheClient) Close() error {
	if c == nil {
		return errors.New("tranche client is nil")
	}

	trancheLogger.Info().Msg("Closing TrancheClient")

	if c.cancel != nil {
		c.cancel()
	}

	// The gRPC connection is shared and owned by the caller; only the
	// client's own context is torn down here.
	trancheLogger.Debug().Msg("TrancheClient closed successfully")
	return nil
}
