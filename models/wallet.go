package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Wallet transaction types
const (
	TransactionTypeTaskReward      = "task_reward"
	TransactionTypeReferralBonus   = "referral_bonus"
	TransactionTypePackagePurchase = "package_purchase"
	TransactionTypeWithdrawal      = "withdrawal"
)

// WalletTransaction records a single wallet balance movement
type WalletTransaction struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Amount    float64            `json:"amount" bson:"amount"` // negative for debits
	Type      string             `json:"type" bson:"type"`
	Reference string             `json:"reference" bson:"reference"` // uuid, unique per movement
	Note      string             `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// Withdrawal statuses
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
)

// Withdrawal represents a vendor request to cash out wallet credit
type Withdrawal struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Amount    float64            `json:"amount" bson:"amount"`
	Status    string             `json:"status" bson:"status"`
	Details   string             `json:"details,omitempty" bson:"details,omitempty"` // payout destination, free form
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// WithdrawalRequest is the request body for requesting a withdrawal
type WithdrawalRequest struct {
	Amount  float64 `json:"amount" validate:"required,gt=0"`
	Details string  `json:"details"`
}
