package models

import (
	"context"
	"time"
)

// Category classifies a tracked product.
type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryAppliances  Category = "Appliances"
	CategoryFurniture   Category = "Furniture"
	CategoryVehicles    Category = "Vehicles"
	CategoryOther       Category = "Other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryElectronics, CategoryAppliances, CategoryFurniture, CategoryVehicles, CategoryOther:
		return true
	default:
		return false
	}
}

// Warranty represents one tracked product warranty.
// PurchaseDate and ExpiryDate are calendar dates; time-of-day is not meaningful.
// InvoiceRef and WarrantyCardRef are opaque references to externally stored
// files, never raw bytes.
type Warranty struct {
	ID              string
	OwnerID         string
	ProductName     string
	Category        Category
	PurchaseDate    time.Time
	ExpiryDate      time.Time
	Notes           string
	InvoiceRef      string
	WarrantyCardRef string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WarrantyRepository manages warranty records.
type WarrantyRepository interface {
	Get(ctx context.Context, id string) (Warranty, error)
	Create(ctx context.Context, w *Warranty) error
	Delete(ctx context.Context, id string) error
	SelectByOwner(ctx context.Context, ownerID string) ([]Warranty, error)

	// SelectExpiringBefore returns every warranty whose expiry date falls at or
	// before cutoff. This includes records that are already expired.
	SelectExpiringBefore(ctx context.Context, cutoff time.Time) ([]Warranty, error)
}
