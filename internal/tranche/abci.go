/*

Height-pinned bank queries over the node's JSON-RPC endpoint. The gRPC bank
client always answers at the latest height; incentive pricing needs supplies
as of the block before a deposit landed, which only the raw abci_query method
exposes through its height parameter.

*/

package tranche

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"github.com/gogo/protobuf/proto"

	"github.com/zivoe/ztm/internal/config"
)

const supplyOfABCIPath = "/cosmos.bank.v1beta1.Query/SupplyOf"

// JSON-RPC Structures for RPC calls with validation

// JSONRPCRequest defines the structure of a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  ABCIQueryParams `json:"params"`
}

// ABCIQueryParams defines the parameters for the "abci_query" method.
type ABCIQueryParams struct {
	Path   string `json:"path"`
	Data   string `json:"data"` // Hex-encoded string
	Height string `json:"height,omitempty"`
	Prove  bool   `json:"prove,omitempty"`
}

// JSONRPCResponse defines the structure of a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  ABCIQueryResult `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// ABCIQueryResult defines the structure of the "result" field for "abci_query".
type ABCIQueryResult struct {
	Response struct {
		Log    string `json:"log"`
		Key    string `json:"key"`   // Base64 encoded
		Value  string `json:"value"` // Base64 encoded
		Height string `json:"height"`
		Code   uint32 `json:"code"` // App-level error code
	} `json:"response"`
}

// JSONRPCError defines the structure of a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// supplyAtHeight queries one denom's total supply as of a specific height.
func (c *TrancheClient) supplyAtHeight(denom string, height int64) (sdkmath.Int, error) {
	grpcRequest := &banktypes.QuerySupplyOfRequest{Denom: denom}

	protoBytes, err := proto.Marshal(grpcRequest)
	if err != nil {
		trancheLogger.Error().Err(err).Str("denom", denom).Msg("Failed to marshal supply query request")
		return sdkmath.Int{}, errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to marshal supply request: %w", err))
	}
	if len(protoBytes) == 0 {
		return sdkmath.Int{}, errors.Join(ErrRPCRequestFailed, errors.New("marshaled request is empty"))
	}

	valueBytes, err := c.executeABCIQuery(supplyOfABCIPath, protoBytes, height)
	if err != nil {
		return sdkmath.Int{}, err
	}

	var grpcResponse banktypes.QuerySupplyOfResponse
	if err := proto.Unmarshal(valueBytes, &grpcResponse); err != nil {
		trancheLogger.Error().Err(err).Msg("Failed to unmarshal protobuf supply response")
		return sdkmath.Int{}, errors.Join(ErrInvalidResponse, fmt.Errorf("failed to unmarshal protobuf response: %w", err))
	}

	if err := validateSupplyCoin(grpcResponse.Amount, denom); err != nil {
		return sdkmath.Int{}, errors.Join(ErrInvalidResponse, err)
	}

	trancheLogger.Debug().
		Str("denom", denom).
		Int64("height", height).
		Str("supply", grpcResponse.Amount.Amount.String()).
		Msg("Fetched supply at height")

	return grpcResponse.Amount.Amount, nil
}

// executeABCIQuery runs one abci_query call against the node RPC and returns
// the decoded response value bytes.
func (c *TrancheClient) executeABCIQuery(abciPath string, protoBytes []byte, height int64) ([]byte, error) {
	hexEncodedData := hex.EncodeToString(protoBytes)
	if hexEncodedData == "" {
		return nil, errors.Join(ErrRPCRequestFailed, errors.New("hex encoding failed"))
	}

	jsonRPCReq := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "abci_query",
		Params: ABCIQueryParams{
			Path:   abciPath,
			Data:   hexEncodedData,
			Height: strconv.FormatInt(height, 10),
		},
	}

	jsonData, err := json.Marshal(jsonRPCReq)
	if err != nil {
		trancheLogger.Error().Err(err).Msg("Failed to marshal JSON-RPC request")
		return nil, errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to marshal JSON-RPC request: %w", err))
	}

	httpClient := http.Client{
		Timeout: 20 * time.Second,
	}

	req, err := http.NewRequest("POST", config.NodeRPC, bytes.NewBuffer(jsonData))
	if err != nil {
		trancheLogger.Error().Err(err).Str("endpoint", config.NodeRPC).Msg("Failed to create HTTP request")
		return nil, errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to create HTTP request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	trancheLogger.Debug().
		Str("endpoint", config.NodeRPC).
		Str("abciPath", abciPath).
		Int64("height", height).
		Msg("Executing ABCI query")

	resp, err := httpClient.Do(req)
	if err != nil {
		trancheLogger.Error().Err(err).Str("endpoint", config.NodeRPC).Msg("Failed to execute HTTP request")
		return nil, errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to execute HTTP request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Join(ErrRPCRequestFailed, fmt.Errorf("HTTP request failed with status: %d %s", resp.StatusCode, resp.Status))
	}

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		trancheLogger.Error().Err(err).Msg("Failed to read RPC response body")
		return nil, errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to read response body: %w", err))
	}
	if len(respBodyBytes) == 0 {
		return nil, errors.Join(ErrInvalidResponse, errors.New("response body is empty"))
	}

	var jsonRPCResp JSONRPCResponse
	if err := json.Unmarshal(respBodyBytes, &jsonRPCResp); err != nil {
		trancheLogger.Error().Err(err).Str("body", string(respBodyBytes)).Msg("Failed to unmarshal JSON-RPC response")
		return nil, errors.Join(ErrInvalidResponse, fmt.Errorf("failed to unmarshal JSON-RPC response: %w", err))
	}

	if err := validateJSONRPCResponse(jsonRPCResp); err != nil {
		return nil, errors.Join(ErrInvalidResponse, err)
	}

	decodedValueBytes, err := base64.StdEncoding.DecodeString(jsonRPCResp.Result.Response.Value)
	if err != nil {
		trancheLogger.Error().Err(err).Str("base64_value", jsonRPCResp.Result.Response.Value).Msg("Failed to decode response value")
		return nil, errors.Join(ErrInvalidResponse, fmt.Errorf("failed to decode response value: %w", err))
	}
	if len(decodedValueBytes) == 0 {
		return nil, errors.Join(ErrInvalidResponse, errors.New("decoded response is empty"))
	}

	return decodedValueBytes, nil
}

// validateJSONRPCResponse validates the JSON-RPC response structure
func validateJSONRPCResponse(resp JSONRPCResponse) error {
	// Check for RPC errors
	if resp.Error != nil {
		return fmt.Errorf("RPC error (code %d): %s", resp.Error.Code, resp.Error.Message)
	}

	// Check ABCI response code
	if resp.Result.Response.Code != 0 {
		return fmt.Errorf("ABCI error (code %d): %s", resp.Result.Response.Code, resp.Result.Response.Log)
	}

	// Validate response value
	if resp.Result.Response.Value == "" {
		return errors.New("response value is empty")
	}

	return nil
}
