package shared

// TransactionType defines the kinds of money movement recorded in a wallet
type TransactionType string

const (
	TransactionTypeDeposit         TransactionType = "deposit"
	TransactionTypeWithdrawal      TransactionType = "withdrawal"
	TransactionTypeTransfer        TransactionType = "transfer"
	TransactionTypeJobPayment      TransactionType = "job_payment"
	TransactionTypeJobRefund       TransactionType = "job_refund"
	TransactionTypePlatformFee     TransactionType = "platform_fee"
	TransactionTypeBonus           TransactionType = "bonus"
	TransactionTypeReferral        TransactionType = "referral"
	TransactionTypePenalty         TransactionType = "penalty"
	TransactionTypeServiceDelivery TransactionType = "service_delivery"
	TransactionTypeServicePayment  TransactionType = "service_payment"
	TransactionTypeRefund          TransactionType = "refund"
)

var knownTransactionTypes = map[TransactionType]struct{}{
	TransactionTypeDeposit:         {},
	TransactionTypeWithdrawal:      {},
	TransactionTypeTransfer:        {},
	TransactionTypeJobPayment:      {},
	TransactionTypeJobRefund:       {},
	TransactionTypePlatformFee:     {},
	TransactionTypeBonus:           {},
	TransactionTypeReferral:        {},
	TransactionTypePenalty:         {},
	TransactionTypeServiceDelivery: {},
	TransactionTypeServicePayment:  {},
	TransactionTypeRefund:          {},
}

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	_, ok := knownTransactionTypes[t]
	return ok
}

// TransactionStatus defines transaction processing states
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
	TransactionStatusReversed   TransactionStatus = "reversed"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
