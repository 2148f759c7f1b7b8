package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is a catalog entry. Price fields are snapshots copied onto order
// items at checkout, so editing a product never rewrites historical orders.
type Product struct {
	BaseModel
	SupplierID  *uuid.UUID     `gorm:"type:uuid" json:"supplier_id"`
	CategoryID  *uuid.UUID     `gorm:"type:uuid" json:"category_id"`
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	ImageLinks  pq.StringArray `gorm:"type:text[]" json:"image_links"`
	InputPrice  float64        `json:"input_price"`
	OutputPrice float64        `json:"output_price"`

	Batches []ProductBatch `gorm:"foreignKey:ProductID" json:"batches,omitempty"`
}

// ProductBatch is one inventory lot of a product. Remaining inventory is
// derived as input_quantity - output_quantity; output may only grow.
type ProductBatch struct {
	BaseModel
	ProductID         uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	InputQuantity     int       `json:"input_quantity"`
	OutputQuantity    int       `json:"output_quantity"`
	DateOfManufacture time.Time `json:"date_of_manufacture"`
	ExpiryDate        time.Time `json:"expiry_date"`
	BatchNumber       string    `json:"batch_number"`
	Barcode           string    `json:"barcode"`
}

// Inventory returns the lot's remaining stock.
func (b ProductBatch) Inventory() int {
	return b.InputQuantity - b.OutputQuantity
}
