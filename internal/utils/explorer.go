package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fundmatch-labs/fundmatch/internal/models"
)

// ExplorerClient talks to an Etherscan-compatible block-explorer API. It is
// the generic transfer-scan path used when decoded treasury events are not
// available.
type ExplorerClient struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewExplorerClient creates an explorer client for an Etherscan-compatible
// API base URL.
func NewExplorerClient(baseURL, apiKey string) *ExplorerClient {
	return &ExplorerClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type explorerTokenTransfer struct {
	Hash         string `json:"hash"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	TokenSymbol  string `json:"tokenSymbol"`
	TokenDecimal string `json:"tokenDecimal"`
	IsError      string `json:"isError"`
}

type explorerTokenTransferResponse struct {
	Status  string                  `json:"status"`
	Message string                  `json:"message"`
	Result  []explorerTokenTransfer `json:"result"`
}

// GetAddressTokenTransfers lists ERC-20 transfers touching the given address.
// An explorer "No transactions found" reply is an empty result, not an error.
func (e *ExplorerClient) GetAddressTokenTransfers(address string) ([]models.TokenTransfer, error) {
	query := url.Values{}
	query.Set("module", "account")
	query.Set("action", "tokentx")
	query.Set("address", address)
	query.Set("sort", "asc")
	if e.APIKey != "" {
		query.Set("apikey", e.APIKey)
	}

	resp, err := e.client.Get(e.BaseURL + "?" + query.Encode())
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	var payload explorerTokenTransferResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode explorer response: %w", err)
	}

	transfers := make([]models.TokenTransfer, 0, len(payload.Result))
	for _, t := range payload.Result {
		decimals, err := strconv.Atoi(t.TokenDecimal)
		if err != nil {
			continue
		}
		status := models.TransferStatusSuccess
		if t.IsError == "1" {
			status = models.TransferStatusFailed
		}
		transfers = append(transfers, models.TokenTransfer{
			Hash:        t.Hash,
			From:        t.From,
			To:          t.To,
			TokenSymbol: t.TokenSymbol,
			Amount:      t.Value,
			Decimals:    decimals,
			Status:      status,
		})
	}
	return transfers, nil
}
