package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User types
const (
	UserTypeAdmin  = "admin"
	UserTypeVendor = "vendor"
)

// User represents a platform account (admin or vendor)
type User struct {
	ID             primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Email          string               `json:"email" bson:"email"`
	Password       string               `json:"-" bson:"password"`
	FullName       string               `json:"fullName" bson:"fullName"`
	UserType       string               `json:"userType" bson:"userType"` // "admin" or "vendor"
	Phone          string               `json:"phone,omitempty" bson:"phone,omitempty"`
	FCMToken       string               `json:"fcmToken,omitempty" bson:"fcmToken,omitempty"`
	Balance        float64              `json:"balance" bson:"balance"`
	ReferralCode   string               `json:"referralCode" bson:"referralCode"`
	ReferredBy     *primitive.ObjectID  `json:"referredBy,omitempty" bson:"referredBy,omitempty"`
	Referrals      []primitive.ObjectID `json:"referrals,omitempty" bson:"referrals,omitempty"`
	Packages       []primitive.ObjectID `json:"packages,omitempty" bson:"packages,omitempty"` // purchased task packages
	IsActive       bool                 `json:"isActive" bson:"isActive"`
	LastActivityAt time.Time            `json:"lastActivityAt,omitempty" bson:"lastActivityAt,omitempty"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updatedAt"`
}
