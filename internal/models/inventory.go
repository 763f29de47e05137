package models

import "time"

// InventoryItem tracks physical church assets and supplies.
type InventoryItem struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Category          string    `db:"category" json:"category"`
	Quantity          int       `db:"quantity" json:"quantity"`
	LowStockThreshold int       `db:"low_stock_threshold" json:"low_stock_threshold"`
	Location          string    `db:"location" json:"location"`
	Notes             string    `db:"notes" json:"notes"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the item is at or below its threshold.
func (i *InventoryItem) LowStock() bool {
	return i.LowStockThreshold > 0 && i.Quantity <= i.LowStockThreshold
}

// InventoryFilter captures list query options for inventory.
type InventoryFilter struct {
	Search    string
	Category  string
	LowStock  bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
