package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	cryptocodec "github.com/cosmos/cosmos-sdk/crypto/codec"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	"github.com/cosmos/cosmos-sdk/std"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"google.golang.org/grpc"

	"github.com/zivoe/ztm/internal/config"
	"github.com/zivoe/ztm/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrKeyringInit           = errors.New("keyring initialization failed")
	ErrKeyNotFound           = errors.New("signing key not found")
	ErrAddressInvalid        = errors.New("address is invalid")
	ErrRPCConnectionFailed   = errors.New("RPC connection failed")
	ErrGRPCConnectionInvalid = errors.New("gRPC connection is invalid")
	ErrTxBuildFailed         = errors.New("transaction build failed")
	ErrTxSignFailed          = errors.New("transaction signing failed")
	ErrTxBroadcastFailed     = errors.New("transaction broadcast failed")
	ErrSDKConfigFailed       = errors.New("SDK configuration failed")
	ErrClientContextInvalid  = errors.New("client context is invalid")
	ErrGasSimulationFailed   = errors.New("gas simulation failed")
)

var walletLogger = logger.GetForComponent("wallet_client")

// Thread-safe SDK configuration using sync.Once
var sdkConfigOnce sync.Once
var sdkConfigError error

// encodingConfig bundles the codec surfaces the signing client needs. The
// manager only ever signs bank messages, so the registry stays minimal.
type encodingConfig struct {
	InterfaceRegistry codectypes.InterfaceRegistry
	Marshaler         codec.Codec
	TxConfig          client.TxConfig
}

// SigningClient handles transaction signing and broadcasting with
// zero-tolerance validation.
type SigningClient struct {
	clientCtx    client.Context
	txFactory    tx.Factory
	keyring      keyring.Keyring
	grpcConn     *grpc.ClientConn
	chainID      string
	keyName      string
	fromAddress  sdk.AccAddress
	ownsGRPCConn bool // Track whether we own the connection
}

// NewSigningClient creates a new signing client with comprehensive validation
func NewSigningClient(grpcConn *grpc.ClientConn) (*SigningClient, error) {
	// Validate gRPC connection
	if err := validateGRPCConnection(grpcConn); err != nil {
		return nil, errors.Join(ErrGRPCConnectionInvalid, err)
	}

	// Validate configuration parameters
	if err := validateWalletConfig(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	// Configure SDK safely
	if err := configureSDK(); err != nil {
		return nil, errors.Join(ErrSDKConfigFailed, err)
	}

	// Initialize keyring with proper validation
	kr, err := initializeKeyring()
	if err != nil {
		return nil, errors.Join(ErrKeyringInit, err)
	}

	// Get and validate key information
	fromAddress, err := getAndValidateKey(kr)
	if err != nil {
		return nil, errors.Join(ErrKeyNotFound, err)
	}

	// Create RPC client with validation
	rpcClient, err := createRPCClient()
	if err != nil {
		return nil, errors.Join(ErrRPCConnectionFailed, err)
	}

	// Create encoding config with validation
	encConfig, err := createEncodingConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create encoding config: %w", err)
	}

	// Create and validate client context
	clientCtx, err := createClientContext(encConfig, kr, grpcConn, rpcClient, fromAddress)
	if err != nil {
		return nil, errors.Join(ErrClientContextInvalid, err)
	}

	// Create and validate transaction factory
	txFactory, err := createTxFactory(kr, clientCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction factory: %w", err)
	}

	signingClient := &SigningClient{
		clientCtx:    clientCtx,
		txFactory:    txFactory,
		keyring:      kr,
		grpcConn:     grpcConn,
		chainID:      config.ChainID,
		keyName:      config.KeyName,
		fromAddress:  fromAddress,
		ownsGRPCConn: false, // We don't own the passed-in connection
	}

	// Final validation of the complete client
	if err := validateSigningClientComplete(signingClient); err != nil {
		return nil, fmt.Errorf("signing client validation failed: %w", err)
	}

	walletLogger.Info().
		Str("address", fromAddress.String()).
		Str("keyName", config.KeyName).
		Str("chainID", config.ChainID).
		Str("rpcEndpoint", config.NodeRPC).
		Msg("Signing client initialized successfully")

	return signingClient, nil
}

// validateGRPCConnection validates the gRPC connection
func validateGRPCConnection(grpcConn *grpc.ClientConn) error {
	if grpcConn == nil {
		return errors.New("gRPC connection cannot be nil")
	}
	return nil
}

// validateWalletConfig validates all wallet configuration parameters
func validateWalletConfig() error {
	if config.ChainID == "" {
		return errors.New("chain ID cannot be empty")
	}
	if config.KeyName == "" {
		return errors.New("key name cannot be empty")
	}
	if config.KeyringDir == "" {
		return errors.New("keyring directory cannot be empty")
	}
	if config.KeyringBackend == "" {
		return errors.New("keyring backend cannot be empty")
	}
	if config.NodeRPC == "" {
		return errors.New("node RPC endpoint cannot be empty")
	}
	if config.DefaultGasLimit == 0 {
		return errors.New("default gas limit cannot be zero")
	}
	if math.IsNaN(config.GasAdjustment) || math.IsInf(config.GasAdjustment, 0) {
		return errors.New("gas adjustment is not finite")
	}
	if config.GasAdjustment <= 0 || config.GasAdjustment > 10 {
		return errors.New("gas adjustment must be between 0 and 10")
	}
	if config.GasPrice == "" {
		return errors.New("gas price cannot be empty")
	}
	if _, err := sdk.ParseDecCoin(config.GasPrice); err != nil {
		return fmt.Errorf("gas price %q is not a valid decimal coin: %w", config.GasPrice, err)
	}
	return nil
}

// configureSDK configures the Cosmos SDK address prefixes once per process.
func configureSDK() error {
	sdkConfigOnce.Do(func() {
		sdkConfig := sdk.GetConfig()
		if sdkConfig == nil {
			sdkConfigError = errors.New("failed to get SDK config")
			return
		}

		sdkConfig.SetBech32PrefixForAccount(config.Bech32Prefix, config.Bech32Prefix+"pub")
		sdkConfig.SetBech32PrefixForValidator(config.Bech32Prefix+"valoper", config.Bech32Prefix+"valoperpub")
		sdkConfig.SetBech32PrefixForConsensusNode(config.Bech32Prefix+"valcons", config.Bech32Prefix+"valconspub")
		sdkConfig.Seal()

		walletLogger.Debug().Str("prefix", config.Bech32Prefix).Msg("SDK configuration initialized successfully")
	})

	return sdkConfigError
}

// initializeKeyring initializes the keyring with proper validation
func initializeKeyring() (keyring.Keyring, error) {
	// Create keyring directory if it doesn't exist
	if err := os.MkdirAll(config.KeyringDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create keyring directory: %w", err)
	}

	// Create encoding config for keyring
	encConfig, err := createEncodingConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create encoding config for keyring: %w", err)
	}

	// Initialize keyring with proper codec
	kr, err := keyring.New(
		"zivoed",
		config.KeyringBackend,
		config.KeyringDir,
		os.Stdin,
		encConfig.Marshaler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyring: %w", err)
	}

	if kr == nil {
		return nil, errors.New("keyring creation returned nil")
	}

	return kr, nil
}

// getAndValidateKey retrieves and validates the signing key
func getAndValidateKey(kr keyring.Keyring) (sdk.AccAddress, error) {
	keyInfo, err := kr.Key(config.KeyName)
	if err != nil {
		return nil, fmt.Errorf("key '%s' not found in keyring: %w", config.KeyName, err)
	}

	if keyInfo == nil {
		return nil, fmt.Errorf("key info for '%s' is nil", config.KeyName)
	}

	fromAddress, err := keyInfo.GetAddress()
	if err != nil {
		return nil, fmt.Errorf("failed to get address from key: %w", err)
	}

	if len(fromAddress) == 0 {
		return nil, errors.New("address is empty")
	}

	if err := sdk.VerifyAddressFormat(fromAddress); err != nil {
		return nil, fmt.Errorf("invalid address format: %w", err)
	}

	return fromAddress, nil
}

// createRPCClient creates and validates RPC client
func createRPCClient() (*rpchttp.HTTP, error) {
	rpcClient, err := rpchttp.New(config.NodeRPC, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	if rpcClient == nil {
		return nil, errors.New("RPC client creation returned nil")
	}

	return rpcClient, nil
}

// createEncodingConfig creates and validates encoding configuration
func createEncodingConfig() (encodingConfig, error) {
	registry := codectypes.NewInterfaceRegistry()

	// Register the interfaces every signed payout touches: base SDK types,
	// accounts, keys, and the bank messages the manager broadcasts.
	std.RegisterInterfaces(registry)
	authtypes.RegisterInterfaces(registry)
	cryptocodec.RegisterInterfaces(registry)
	banktypes.RegisterInterfaces(registry)

	marshaler := codec.NewProtoCodec(registry)
	txConfig := authtx.NewTxConfig(marshaler, authtx.DefaultSignModes)

	encConfig := encodingConfig{
		InterfaceRegistry: registry,
		Marshaler:         marshaler,
		TxConfig:          txConfig,
	}

	if encConfig.Marshaler == nil {
		return encConfig, errors.New("marshaler is nil in encoding config")
	}
	if encConfig.InterfaceRegistry == nil {
		return encConfig, errors.New("interface registry is nil in encoding config")
	}
	if encConfig.TxConfig == nil {
		return encConfig, errors.New("tx config is nil in encoding config")
	}

	return encConfig, nil
}

// createClientContext creates and validates client context
func createClientContext(
	encConfig encodingConfig,
	kr keyring.Keyring,
	grpcConn *grpc.ClientConn,
	rpcClient *rpchttp.HTTP,
	fromAddress sdk.AccAddress,
) (client.Context, error) {

	accountRetriever := authtypes.AccountRetriever{}

	clientCtx := client.Context{}.
		WithCodec(encConfig.Marshaler).
		WithInterfaceRegistry(encConfig.InterfaceRegistry).
		WithTxConfig(encConfig.TxConfig).
		WithInput(os.Stdin).
		WithAccountRetriever(accountRetriever).
		WithBroadcastMode(flags.BroadcastSync).
		WithHomeDir(config.KeyringDir).
		WithKeyring(kr).
		WithChainID(config.ChainID).
		WithGRPCClient(grpcConn).
		WithClient(rpcClient).
		WithFromAddress(fromAddress).
		WithFromName(config.KeyName)

	if err := validateClientContext(clientCtx); err != nil {
		return client.Context{}, err
	}

	return clientCtx, nil
}

// validateClientContext validates the client context
func validateClientContext(clientCtx client.Context) error {
	if clientCtx.Codec == nil {
		return errors.New("codec is nil in client context")
	}
	if clientCtx.InterfaceRegistry == nil {
		return errors.New("interface registry is nil in client context")
	}
	if clientCtx.TxConfig == nil {
		return errors.New("tx config is nil in client context")
	}
	if clientCtx.Keyring == nil {
		return errors.New("keyring is nil in client context")
	}
	if clientCtx.ChainID == "" {
		return errors.New("chain ID is empty in client context")
	}
	if len(clientCtx.FromAddress) == 0 {
		return errors.New("from address is empty in client context")
	}
	if clientCtx.FromName == "" {
		return errors.New("from name is empty in client context")
	}
	return nil
}

// createTxFactory creates and validates transaction factory
func createTxFactory(kr keyring.Keyring, clientCtx client.Context) (tx.Factory, error) {
	txFactory := tx.Factory{}.
		WithChainID(config.ChainID).
		WithKeybase(kr).
		WithGas(config.DefaultGasLimit).
		WithGasAdjustment(config.GasAdjustment).
		WithSignMode(signing.SignMode_SIGN_MODE_DIRECT).
		WithAccountRetriever(clientCtx.AccountRetriever).
		WithTxConfig(clientCtx.TxConfig)

	if err := validateTxFactory(txFactory); err != nil {
		return tx.Factory{}, err
	}

	return txFactory, nil
}

// validateTxFactory validates the transaction factory
func validateTxFactory(txFactory tx.Factory) error {
	if txFactory.ChainID() == "" {
		return errors.New("chain ID is empty in tx factory")
	}
	if txFactory.Keybase() == nil {
		return errors.New("keybase is nil in tx factory")
	}
	if txFactory.Gas() == 0 {
		return errors.New("gas is zero in tx factory")
	}
	if txFactory.GasAdjustment() <= 0 {
		return errors.New("gas adjustment must be positive in tx factory")
	}
	if txFactory.AccountRetriever() == nil {
		return errors.New("account retriever is nil in tx factory")
	}
	return nil
}

// validateSigningClientComplete performs final validation of the complete signing client
func validateSigningClientComplete(signingClient *SigningClient) error {
	if signingClient == nil {
		return errors.New("signing client is nil")
	}
	if signingClient.chainID == "" {
		return errors.New("chain ID is empty")
	}
	if signingClient.keyName == "" {
		return errors.New("key name is empty")
	}
	if len(signingClient.fromAddress) == 0 {
		return errors.New("from address is empty")
	}
	if signingClient.keyring == nil {
		return errors.New("keyring is nil")
	}
	if signingClient.grpcConn == nil {
		return errors.New("gRPC connection is nil")
	}
	if err := validateClientContext(signingClient.clientCtx); err != nil {
		return fmt.Errorf("client context validation failed: %w", err)
	}
	if err := validateTxFactory(signingClient.txFactory); err != nil {
		return fmt.Errorf("tx factory validation failed: %w", err)
	}
	return nil
}

// SignAndBroadcastTx signs and broadcasts a transaction with comprehensive validation
func (s *SigningClient) SignAndBroadcastTx(ctx context.Context, msgs ...sdk.Msg) (*sdk.TxResponse, error) {
	walletLogger.Info().
		Int("messageCount", len(msgs)).
		Msg("SignAndBroadcastTx: Starting transaction signing and broadcasting")

	// Validate inputs
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	if len(msgs) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	for i, msg := range msgs {
		if msg == nil {
			return nil, fmt.Errorf("message %d is nil", i)
		}

		// Validate the message if it has ValidateBasic
		if validator, ok := msg.(interface{ ValidateBasic() error }); ok {
			if err := validator.ValidateBasic(); err != nil {
				walletLogger.Error().Err(err).Int("messageIndex", i).Msg("SignAndBroadcastTx: Message validation failed")
				return nil, fmt.Errorf("message %d validation failed: %w", i, err)
			}
		}
	}

	// Get account info with proper error handling
	account, err := s.clientCtx.AccountRetriever.GetAccount(s.clientCtx, s.fromAddress)
	if err != nil {
		walletLogger.Error().Err(err).Msg("SignAndBroadcastTx: Failed to get account info")
		return nil, errors.Join(ErrAccountRetrievalFailed, fmt.Errorf("failed to get account info: %w", err))
	}
	if account == nil {
		return nil, errors.Join(ErrAccountRetrievalFailed, errors.New("account is nil"))
	}

	walletLogger.Debug().
		Uint64("accountNumber", account.GetAccountNumber()).
		Uint64("sequence", account.GetSequence()).
		Msg("SignAndBroadcastTx: Account info retrieved")

	// Calculate gas using simulation instead of hardcoded values
	estimatedGas, err := s.CalculateGas(ctx, msgs...)
	if err != nil {
		walletLogger.Warn().Err(err).Msg("SignAndBroadcastTx: Gas estimation failed, using default gas limit")
		estimatedGas = config.DefaultGasLimit
	}

	s.txFactory = s.txFactory.
		WithAccountNumber(account.GetAccountNumber()).
		WithSequence(account.GetSequence()).
		WithGas(estimatedGas).
		WithGasAdjustment(config.GasAdjustment).
		WithGasPrices(config.GasPrice)

	walletLogger.Debug().
		Uint64("estimatedGas", estimatedGas).
		Float64("gasAdjustment", config.GasAdjustment).
		Str("gasPrice", config.GasPrice).
		Msg("SignAndBroadcastTx: Using simulated gas configuration for transaction")

	// Build unsigned transaction with validation
	txBuilder, err := s.txFactory.BuildUnsignedTx(msgs...)
	if err != nil {
		walletLogger.Error().Err(err).Msg("SignAndBroadcastTx: Failed to build unsigned transaction")
		return nil, errors.Join(ErrTxBuildFailed, fmt.Errorf("failed to build unsigned tx: %w", err))
	}
	if txBuilder == nil {
		return nil, errors.Join(ErrTxBuildFailed, errors.New("tx builder is nil"))
	}

	// Sign transaction with validation
	err = tx.Sign(ctx, s.txFactory, s.clientCtx.GetFromName(), txBuilder, true)
	if err != nil {
		walletLogger.Error().Err(err).Msg("SignAndBroadcastTx: Failed to sign transaction")
		return nil, errors.Join(ErrTxSignFailed, fmt.Errorf("failed to sign transaction: %w", err))
	}

	// Encode transaction with validation
	txBytes, err := s.clientCtx.TxConfig.TxEncoder()(txBuilder.GetTx())
	if err != nil {
		walletLogger.Error().Err(err).Msg("SignAndBroadcastTx: Failed to encode transaction")
		return nil, errors.Join(ErrTxBuildFailed, fmt.Errorf("failed to encode transaction: %w", err))
	}
	if len(txBytes) == 0 {
		return nil, errors.Join(ErrTxBuildFailed, errors.New("encoded transaction is empty"))
	}

	// Broadcast transaction with validation
	res, err := s.clientCtx.BroadcastTx(txBytes)
	if err != nil {
		walletLogger.Error().Err(err).Msg("SignAndBroadcastTx: Failed to broadcast transaction")
		return nil, errors.Join(ErrTxBroadcastFailed, fmt.Errorf("failed to broadcast transaction: %w", err))
	}

	// Validate transaction response
	if err := validateBroadcastResponse(res); err != nil {
		walletLogger.Error().Err(err).Msg("SignAndBroadcastTx: Transaction response validation failed")
		return nil, errors.Join(ErrTxBroadcastFailed, err)
	}

	walletLogger.Info().
		Str("txHash", res.TxHash).
		Uint32("code", res.Code).
		Int("messageCount", len(msgs)).
		Msg("SignAndBroadcastTx: Transaction broadcasted successfully")

	return res, nil
}

// validateBroadcastResponse validates the immediate broadcast response.
// Code is deliberately not checked here: sync broadcast only reports
// CheckTx, and the caller decides how to treat failures.
func validateBroadcastResponse(res *sdk.TxResponse) error {
	if res == nil {
		return errors.New("transaction response is nil")
	}
	if res.TxHash == "" {
		return errors.New("transaction hash is empty")
	}
	return nil
}

// GetAddress returns the signing address
func (s *SigningClient) GetAddress() sdk.AccAddress {
	return s.fromAddress
}

// GetAddressString returns the signing address as string
func (s *SigningClient) GetAddressString() string {
	if len(s.fromAddress) == 0 {
		walletLogger.Warn().Msg("From address is empty")
		return ""
	}
	return s.fromAddress.String()
}

// Close closes the gRPC connection safely
func (s *SigningClient) Close() error {
	if s.ownsGRPCConn && s.grpcConn != nil {
		err := s.grpcConn.Close()
		if err != nil {
			walletLogger.Error().Err(err).Msg("Failed to close gRPC connection")
			return fmt.Errorf("failed to close gRPC connection: %w", err)
		}
		walletLogger.Debug().Msg("gRPC connection closed successfully")
	}
	return nil
}

// QueryTxByHash queries a transaction by its hash to get complete execution details
func (s *SigningClient) QueryTxByHash(ctx context.Context, txHash string) (*sdk.TxResponse, error) {
	if txHash == "" {
		return nil, errors.New("transaction hash cannot be empty")
	}

	if err := validateClientContext(s.clientCtx); err != nil {
		return nil, fmt.Errorf("client context validation failed: %w", err)
	}

	txResponse, err := authtx.QueryTx(s.clientCtx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction %s: %w", txHash, err)
	}

	if txResponse == nil {
		return nil, fmt.Errorf("transaction %s not found", txHash)
	}

	walletLogger.Debug().
		Str("txHash", txHash).
		Int64("gasUsed", txResponse.GasUsed).
		Int64("gasWanted", txResponse.GasWanted).
		Msg("Successfully queried transaction by hash")

	return txResponse, nil
}

// WaitForInclusion polls until a broadcast transaction lands in a block and
// returns its full execution result. Payout callers must not mark anything
// settled before this returns.
func (s *SigningClient) WaitForInclusion(txHash string) (*sdk.TxResponse, error) {
	if txHash == "" {
		return nil, errors.New("transaction hash cannot be empty")
	}

	walletLogger.Info().
		Str("txHash", txHash).
		Msg("Waiting for transaction to be included in block...")

	maxAttempts := 30            // Maximum number of attempts
	baseDelay := 2 * time.Second // Base delay between attempts
	maxDelay := 30 * time.Second // Maximum delay between attempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Exponential backoff, capped
		delay := time.Duration(float64(baseDelay) * math.Pow(1.5, float64(attempt-1)))
		if delay > maxDelay {
			delay = maxDelay
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		txResponse, err := s.QueryTxByHash(ctx, txHash)
		cancel()

		if err != nil {
			walletLogger.Debug().
				Err(err).
				Str("txHash", txHash).
				Int("attempt", attempt).
				Msg("Transaction not yet available, will retry")
			continue
		}

		if txResponse != nil && txResponse.Height > 0 {
			walletLogger.Info().
				Str("txHash", txHash).
				Int("attempt", attempt).
				Int64("height", txResponse.Height).
				Int64("gasUsed", txResponse.GasUsed).
				Msg("Transaction found in block")

			return txResponse, nil
		}

		walletLogger.Debug().
			Str("txHash", txHash).
			Int("attempt", attempt).
			Msg("Transaction found but not yet committed, will retry")
	}

	return nil, fmt.Errorf("transaction %s was not found in block after %d attempts", txHash, maxAttempts)
}

// CalculateGas simulates a transaction to estimate gas usage with comprehensive validation
func (s *SigningClient) CalculateGas(ctx context.Context, msgs ...sdk.Msg) (uint64, error) {
	if ctx == nil {
		return 0, errors.New("context cannot be nil")
	}
	if len(msgs) == 0 {
		return 0, errors.New("messages cannot be empty")
	}

	for i, msg := range msgs {
		if msg == nil {
			return 0, fmt.Errorf("message %d is nil", i)
		}

		if validator, ok := msg.(interface{ ValidateBasic() error }); ok {
			if err := validator.ValidateBasic(); err != nil {
				return 0, fmt.Errorf("message %d validation failed: %w", i, err)
			}
		}
	}

	// Get account info for simulation
	account, err := s.clientCtx.AccountRetriever.GetAccount(s.clientCtx, s.fromAddress)
	if err != nil {
		return 0, errors.Join(ErrGasSimulationFailed, fmt.Errorf("failed to get account info for simulation: %w", err))
	}
	if account == nil {
		return 0, errors.Join(ErrGasSimulationFailed, errors.New("account is nil"))
	}

	simulationFactory := s.txFactory.
		WithAccountNumber(account.GetAccountNumber()).
		WithSequence(account.GetSequence()).
		WithGas(0). // Set gas to 0 for simulation
		WithGasAdjustment(config.GasAdjustment).
		WithGasPrices(config.GasPrice)

	txBytes, err := simulationFactory.BuildSimTx(msgs...)
	if err != nil {
		return 0, errors.Join(ErrGasSimulationFailed, fmt.Errorf("failed to build simulation transaction: %w", err))
	}
	if len(txBytes) == 0 {
		return 0, errors.Join(ErrGasSimulationFailed, errors.New("simulation transaction bytes are empty"))
	}

	txSvcClient := txtypes.NewServiceClient(s.grpcConn)

	simRes, err := txSvcClient.Simulate(ctx, &txtypes.SimulateRequest{TxBytes: txBytes})
	if err != nil {
		return 0, errors.Join(ErrGasSimulationFailed, fmt.Errorf("gas simulation failed: %w", err))
	}
	if simRes == nil || simRes.GasInfo == nil {
		return 0, errors.Join(ErrGasSimulationFailed, errors.New("simulation response or gas info is nil"))
	}

	simulatedGas := simRes.GasInfo.GasUsed
	if simulatedGas == 0 {
		return 0, errors.Join(ErrGasSimulationFailed, errors.New("simulated gas usage is zero"))
	}

	gasAdjustment := simulationFactory.GasAdjustment()
	if gasAdjustment <= 0 {
		return 0, fmt.Errorf("invalid gas adjustment: %f", gasAdjustment)
	}

	adjustedGas := uint64(gasAdjustment * float64(simulatedGas))
	if adjustedGas == 0 {
		return 0, errors.New("adjusted gas calculation resulted in zero")
	}

	// Buffer against out-of-gas on state growth between simulation and commit
	finalGas := adjustedGas + 10000

	walletLogger.Debug().
		Uint64("simulatedGas", simulatedGas).
		Float64("gasAdjustment", gasAdjustment).
		Uint64("finalGas", finalGas).
		Int("messageCount", len(msgs)).
		Msg("CalculateGas: Gas estimation completed")

	return finalGas, nil
}
