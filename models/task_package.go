package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskPackage groups tasks behind a one-time purchase. Vendors who bought a
// package are notified when new tasks land in it.
type TaskPackage struct {
	ID          primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Name        string               `json:"name" bson:"name"`
	Description string               `json:"description" bson:"description"`
	Price       float64              `json:"price" bson:"price"`
	CreatedBy   primitive.ObjectID   `json:"createdBy" bson:"createdBy"`
	Subscribers []primitive.ObjectID `json:"subscribers,omitempty" bson:"subscribers,omitempty"`
	IsActive    bool                 `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// PackageCreateRequest is the request body for creating a task package
type PackageCreateRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
}
