package models

// TokenTransfer is a token transfer observed on-chain, either decoded from
// treasury contract events or read from a block-explorer transfer scan.
// Amount is in the transfer's smallest token units; Decimals tells how to
// convert it.
type TokenTransfer struct {
	Hash        string         `json:"hash"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	TokenSymbol string         `json:"token_symbol"`
	Amount      string         `json:"amount"`
	Decimals    int            `json:"decimals"`
	Status      TransferStatus `json:"status"`
}

// TreasuryBalance is the on-chain balance view of a campaign treasury.
type TreasuryBalance struct {
	Available    string `json:"available"`
	TotalPledged string `json:"total_pledged"`
	Currency     string `json:"currency"`
}

// ClassifiedTransfer is a transfer attributed to a treasury as either an
// incoming pledge or an outgoing withdrawal.
type ClassifiedTransfer struct {
	TokenTransfer
	Direction TransferDirection `json:"direction"`
}

// ReconciliationComparison summarizes ledger vs. chain totals for a treasury.
type ReconciliationComparison struct {
	TotalDatabaseAmount   string               `json:"total_database_amount"`
	TotalBlockchainAmount string               `json:"total_blockchain_amount"`
	Difference            string               `json:"difference"`
	Status                ReconciliationStatus `json:"status"`
}

// ReconciliationReport is the read-only output of a treasury reconciliation.
// The chain side degrades to empty slices when chain data is unavailable; the
// database side is always populated.
type ReconciliationReport struct {
	DatabasePayments  []Payment                `json:"database_payments"`
	OnChainBalance    *TreasuryBalance         `json:"on_chain_balance,omitempty"`
	OnChainTransfers  []ClassifiedTransfer     `json:"on_chain_transfers"`
	Comparison        ReconciliationComparison `json:"comparison"`
	ChainDataComplete bool                     `json:"chain_data_complete"`
}
