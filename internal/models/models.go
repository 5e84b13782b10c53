package models

import (
	"time"
)

type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeInvestment TransactionType = "investment"
	TypeROI        TransactionType = "roi"
	TypeBonus      TransactionType = "bonus"
	TypeReferral   TransactionType = "referral"
	TypeTransfer   TransactionType = "transfer"
	TypeFee        TransactionType = "fee"
	TypeRefund     TransactionType = "refund"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type InvestmentStatus string

const (
	InvestmentPending   InvestmentStatus = "pending"
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
	InvestmentCancelled InvestmentStatus = "cancelled"
	InvestmentPaused    InvestmentStatus = "paused"
)

type Currency string

const (
	CurrencyNaira Currency = "naira"
	CurrencyUSDT  Currency = "usdt"
)

// Transaction is a wallet ledger entry as returned by the transaction-history API.
// It is treated as read-only; reconciliation works on copies.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Type         TransactionType `json:"type"`
	Amount       Amount          `json:"amount"`
	Currency     Currency        `json:"currency"`
	Status       Status          `json:"status"`
	Reference    string          `json:"reference,omitempty"`
	InvestmentID string          `json:"investmentId,omitempty"`
	Plan         *PlanRef        `json:"planId,omitempty"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    Timestamp       `json:"createdAt"`
	ProcessedAt  Timestamp       `json:"processedAt"`
}

// Investment is a snapshot of one of the user's investments.
type Investment struct {
	ID                  string           `json:"id"`
	PlanID              *PlanRef         `json:"planId,omitempty"`
	Plan                *PlanRef         `json:"plan,omitempty"`
	Status              InvestmentStatus `json:"status"`
	Currency            Currency         `json:"currency"`
	Amount              Amount           `json:"amount"`
	TotalAccumulatedROI Amount           `json:"totalAccumulatedRoi"`
	StartDate           Timestamp        `json:"startDate"`
	EndDate             Timestamp        `json:"endDate"`
	NextROIUpdate       Timestamp        `json:"nextRoiUpdate"`
}

// PlanName returns the name of the embedded plan, preferring the "plan" field.
func (i Investment) PlanName() string {
	if i.Plan != nil && i.Plan.Name != "" {
		return i.Plan.Name
	}
	if i.PlanID != nil {
		return i.PlanID.Name
	}
	return ""
}

type PresentedTransaction struct {
	Transaction   Transaction `json:"transaction"`
	Label         string      `json:"label"`
	FormattedDate string      `json:"formattedDate"`
}

type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

type PresentedList struct {
	Items []PresentedTransaction `json:"items"`
	Meta  PageMeta               `json:"pagination"`
}

// DailySummary holds per-day totals of the reconciled ledger.
type DailySummary struct {
	Date             time.Time `ch:"date" json:"date"`
	Type             string    `ch:"type" json:"type"`
	Currency         string    `ch:"currency" json:"currency"`
	TransactionCount uint64    `ch:"transaction_count" json:"transactionCount"`
	TotalAmount      float64   `ch:"total_amount" json:"totalAmount"`
}
