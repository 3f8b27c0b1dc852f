package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task statuses
const (
	TaskStatusOpen      = "open"
	TaskStatusClaimed   = "claimed"
	TaskStatusSubmitted = "submitted"
	TaskStatusApproved  = "approved"
	TaskStatusRejected  = "rejected"
	TaskStatusExpired   = "expired"
)

// Task represents a unit of work vendors can claim and submit
type Task struct {
	ID          primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Title       string              `json:"title" bson:"title"`
	Description string              `json:"description" bson:"description"`
	Reward      float64             `json:"reward" bson:"reward"` // wallet credit on approval
	Status      string              `json:"status" bson:"status"`
	PackageID   *primitive.ObjectID `json:"packageId,omitempty" bson:"packageId,omitempty"`
	CreatedBy   primitive.ObjectID  `json:"createdBy" bson:"createdBy"`
	AssignedTo  *primitive.ObjectID `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	Deadline    *time.Time          `json:"deadline,omitempty" bson:"deadline,omitempty"`
	Submission  *Submission         `json:"submission,omitempty" bson:"submission,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Submission holds what a vendor turned in for a claimed task
type Submission struct {
	VendorID     primitive.ObjectID `json:"vendorId" bson:"vendorId"`
	Note         string             `json:"note,omitempty" bson:"note,omitempty"`
	ProofURL     string             `json:"proofUrl,omitempty" bson:"proofUrl,omitempty"`
	ThumbnailURL string             `json:"thumbnailUrl,omitempty" bson:"thumbnailUrl,omitempty"`
	SubmittedAt  time.Time          `json:"submittedAt" bson:"submittedAt"`
}

// TaskCreateRequest is the request body for creating a task
type TaskCreateRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Reward      float64 `json:"reward" validate:"required,gt=0"`
	PackageID   string  `json:"packageId,omitempty"`
	AssignedTo  string  `json:"assignedTo,omitempty"`
	Deadline    string  `json:"deadline,omitempty"` // RFC3339
}

// TaskReviewRequest is the request body for approving or rejecting a submission
type TaskReviewRequest struct {
	Reason string `json:"reason,omitempty"`
}
