package domain

import "context"

type WalletEntryType string

const (
	WalletCredit WalletEntryType = "credit"
	WalletDebit  WalletEntryType = "debit"
	WalletRefund WalletEntryType = "refund"
)

// WalletEntry is one movement in a user's wallet ledger.
type WalletEntry struct {
	Type        WalletEntryType `json:"type"`
	Amount      float64         `json:"amount"`
	Balance     float64         `json:"balance"`
	Reference   string          `json:"reference,omitempty"`
	Description string          `json:"description"`
	CreatedAt   int64           `json:"createdAt"`
}

type Wallet struct {
	UID     string        `json:"uid"`
	Balance float64       `json:"balance"`
	Ledger  []WalletEntry `json:"ledger"`
}

// PaymentReceipt is returned after a milestone has been paid.
type PaymentReceipt struct {
	JobID             string    `json:"jobId"`
	ApplicantID       string    `json:"applicantId"`
	MilestoneIndex    int       `json:"milestoneIndex"`
	Amount            float64   `json:"amount"`
	Milestone         Milestone `json:"milestone"`
	ClientBalance     float64   `json:"clientBalance"`
	FreelancerBalance float64   `json:"freelancerBalance"`
}

// ReceiptNotice is what a freelancer is told when a milestone is paid.
type ReceiptNotice struct {
	Name     string
	Email    string
	JobTitle string
	Receipt  PaymentReceipt
}

// ReceiptMailer delivers payment receipts to freelancers.
type ReceiptMailer interface {
	SendPaymentReceipt(ctx context.Context, notice ReceiptNotice) error
}
