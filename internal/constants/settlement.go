package constants

import "time"

// ExecutionLockClass namespaces advisory locks taken for privileged pledge and
// withdrawal execution. The full lock key is (ExecutionLockClass, subjectID).
const ExecutionLockClass = 1000

// RegistrationLockTimeout bounds how long an in-process per-actor registration
// lock is honored before being reclaimed as stale.
const RegistrationLockTimeout = 120 * time.Second

// ConfirmationTimeout bounds the wait for on-chain confirmation of a
// privileged submission. On expiry the flow reports an unconfirmed outcome
// rather than a failure, since the transaction may still be mined.
const ConfirmationTimeout = 3 * time.Minute

// ReconciliationTolerance is the absolute ledger/chain drift, in token units,
// still reported as matched.
const ReconciliationTolerance = "0.01"

// DefaultTokenDecimals matches USDC, the platform's default stable token.
const DefaultTokenDecimals = 6

// StableTokenSymbols lists the token symbols counted during reconciliation.
// Transfers of any other token at the treasury address are ignored.
var StableTokenSymbols = map[string]bool{
	"USDC": true,
	"USDT": true,
}
