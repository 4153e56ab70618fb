package utils

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ERC20Balance is the raw result of an ERC-20 balanceOf read.
type ERC20Balance struct {
	TokenAddress     string `json:"token_address"`
	Balance          string `json:"balance"` // smallest token units
	TokenSymbol      string `json:"token_symbol"`
	TokenDecimals    int    `json:"token_decimals"`
	FormattedBalance string `json:"formatted_balance"`
}

// QueryERC20Balance reads an ERC-20 token balance for an address via eth_call.
// Symbol and decimals lookups are best-effort with fallbacks, matching the
// behavior of explorer-backed reads.
func QueryERC20Balance(rpcURL, tokenAddress, holderAddress string) (*ERC20Balance, error) {
	if !IsValidAddress(tokenAddress) || !IsValidAddress(holderAddress) {
		return nil, fmt.Errorf("invalid address format")
	}

	client := NewRPCClient(rpcURL)

	// balanceOf(address) selector with the holder address left-padded to 32 bytes
	padded := strings.TrimPrefix(holderAddress, "0x")
	for len(padded) < 64 {
		padded = "0" + padded
	}
	data := "0x70a08231" + padded

	response, err := client.Call("eth_call", []interface{}{
		map[string]string{"to": tokenAddress, "data": data},
		"latest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call token contract: %w", err)
	}
	if response.Result == nil {
		return nil, fmt.Errorf("no result returned from balanceOf")
	}

	balanceHex, ok := response.Result.(string)
	if !ok {
		return nil, fmt.Errorf("invalid balanceOf response format")
	}

	balance, ok := new(big.Int).SetString(strings.TrimPrefix(balanceHex, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("failed to parse balance %q", balanceHex)
	}

	symbol := "TOKEN"
	decimals := 18
	if s, err := queryTokenSymbol(client, tokenAddress); err == nil && s != "" {
		symbol = s
	}
	if d, err := queryTokenDecimals(client, tokenAddress); err == nil {
		decimals = d
	}

	return &ERC20Balance{
		TokenAddress:     tokenAddress,
		Balance:          balance.String(),
		TokenSymbol:      symbol,
		TokenDecimals:    decimals,
		FormattedBalance: FormatTokenAmount(balance, decimals),
	}, nil
}

func queryTokenSymbol(client *RPCClient, tokenAddress string) (string, error) {
	// symbol() selector
	response, err := client.Call("eth_call", []interface{}{
		map[string]string{"to": tokenAddress, "data": "0x95d89b41"},
		"latest",
	})
	if err != nil {
		return "", err
	}
	if response.Result == nil {
		return "", fmt.Errorf("no symbol returned")
	}
	symbolHex, ok := response.Result.(string)
	if !ok {
		return "", fmt.Errorf("invalid symbol format")
	}
	return decodeABIString(symbolHex), nil
}

func queryTokenDecimals(client *RPCClient, tokenAddress string) (int, error) {
	// decimals() selector
	response, err := client.Call("eth_call", []interface{}{
		map[string]string{"to": tokenAddress, "data": "0x313ce567"},
		"latest",
	})
	if err != nil {
		return 0, err
	}
	if response.Result == nil {
		return 0, fmt.Errorf("no decimals returned")
	}
	decimalsHex, ok := response.Result.(string)
	if !ok {
		return 0, fmt.Errorf("invalid decimals format")
	}
	decimals, err := strconv.ParseInt(strings.TrimPrefix(decimalsHex, "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse decimals: %w", err)
	}
	return int(decimals), nil
}

// IsValidAddress checks the basic shape of an Ethereum address.
func IsValidAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return false
	}
	for _, c := range address[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// decodeABIString decodes an ABI-encoded dynamic string return value.
func decodeABIString(hexStr string) string {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	if len(hexStr) < 128 {
		return ""
	}
	// Skip offset and length words.
	hexStr = hexStr[128:]

	var result []byte
	for i := 0; i+1 < len(hexStr); i += 2 {
		b, err := strconv.ParseUint(hexStr[i:i+2], 16, 8)
		if err != nil || b == 0 {
			break
		}
		result = append(result, byte(b))
	}
	return string(result)
}
