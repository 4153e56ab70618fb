package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RPCClient is a minimal Ethereum JSON-RPC client used for the probes the
// settlement core needs outside of go-ethereum's typed client: contract code
// checks and balance reads against arbitrary fallback endpoints.
type RPCClient struct {
	URL     string
	timeout time.Duration
}

// NewRPCClient creates a new RPC client for the given endpoint URL.
func NewRPCClient(url string) *RPCClient {
	return &RPCClient{
		URL:     url,
		timeout: 30 * time.Second,
	}
}

// SetTimeout sets the per-request timeout.
func (r *RPCClient) SetTimeout(timeout time.Duration) {
	r.timeout = timeout
}

// JSONRPCRequest represents a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents an RPC-level error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call makes a JSON-RPC call.
func (r *RPCClient) Call(method string, params []interface{}) (*JSONRPCResponse, error) {
	request := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", r.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: r.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	var response JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", response.Error.Code, response.Error.Message)
	}

	return &response, nil
}

// GetCode returns the deployed bytecode at an address, "0x" when none. A
// treasury address without code on one endpoint but with code on another
// indicates stale RPC routing, which the transfer reader treats as a cue to
// fall back rather than as a real error.
func (r *RPCClient) GetCode(address string) (string, error) {
	response, err := r.Call("eth_getCode", []interface{}{address, "latest"})
	if err != nil {
		return "", err
	}

	if response.Result == nil {
		return "", fmt.Errorf("no code returned")
	}

	code, ok := response.Result.(string)
	if !ok {
		return "", fmt.Errorf("invalid code format")
	}
	return code, nil
}

// HasContractCode reports whether the address holds deployed contract code on
// this endpoint.
func (r *RPCClient) HasContractCode(address string) (bool, error) {
	code, err := r.GetCode(address)
	if err != nil {
		return false, err
	}
	return code != "" && code != "0x", nil
}
