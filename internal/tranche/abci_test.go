package tranche

import "testing"

func rpcResponseWithValue(value string) JSONRPCResponse {
	var resp JSONRPCResponse
	resp.Result.Response.Value = value
	return resp
}

func TestValidateJSONRPCResponse(t *testing.T) {
	ok := rpcResponseWithValue("CgZ2YWx1ZQ==")
	if err := validateJSONRPCResponse(ok); err != nil {
		t.Fatalf("valid response rejected: %v", err)
	}

	rpcErr := rpcResponseWithValue("CgZ2YWx1ZQ==")
	rpcErr.Error = &JSONRPCError{Code: -32600, Message: "invalid request"}
	if err := validateJSONRPCResponse(rpcErr); err == nil {
		t.Error("response with RPC error accepted")
	}

	abciErr := rpcResponseWithValue("CgZ2YWx1ZQ==")
	abciErr.Result.Response.Code = 6
	abciErr.Result.Response.Log = "unknown denom"
	if err := validateJSONRPCResponse(abciErr); err == nil {
		t.Error("response with ABCI error code accepted")
	}

	empty := rpcResponseWithValue("")
	if err := validateJSONRPCResponse(empty); err == nil {
		t.Error("response with empty value accepted")
	}
}
