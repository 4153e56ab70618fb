package models

// PaymentStatus is the lifecycle status of a ledger payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCanceled  PaymentStatus = "canceled"
)

// IsTerminal reports whether a payment status can no longer change.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusFailed || s == PaymentStatusCanceled
}

// WithdrawalStatus is the lifecycle status of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusExecuted WithdrawalStatus = "executed"
	WithdrawalStatusFailed   WithdrawalStatus = "failed"
)

// TransferStatus is the on-chain execution status of an observed transfer.
type TransferStatus string

const (
	TransferStatusSuccess TransferStatus = "success"
	TransferStatusFailed  TransferStatus = "failed"
)

// TransferDirection classifies a treasury transfer relative to the treasury address.
type TransferDirection string

const (
	TransferDirectionPledge     TransferDirection = "pledge"
	TransferDirectionWithdrawal TransferDirection = "withdrawal"
)

// ReconciliationStatus classifies the drift between ledger and chain totals.
type ReconciliationStatus string

const (
	ReconciliationMatched           ReconciliationStatus = "matched"
	ReconciliationBlockchainShort   ReconciliationStatus = "blockchain_short"
	ReconciliationBlockchainSurplus ReconciliationStatus = "blockchain_surplus"
)
