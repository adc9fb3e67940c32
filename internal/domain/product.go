package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product holds the catalog display fields a cart listing needs.
type Product struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	Company      string             `bson:"company" json:"company"`
	Price        float64            `bson:"price" json:"price"`
	OffPrice     float64            `bson:"offprice" json:"offprice"`
	Category     string             `bson:"category,omitempty" json:"category,omitempty"`
	ProductImage string             `bson:"productImage" json:"productImage"`
	Stock        int                `bson:"stock" json:"stock"`
	CreatedAt    time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}
