// Package testutils provides generators for realistic warranty and user
// test data.
package testutils

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mastermindankur/warrantywallet/models"
)

var (
	rndMu sync.Mutex
	rnd   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

var emailDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "example.com",
}

var productNames = []string{
	"Refrigerator", "Washing Machine", "Laptop", "Television", "Microwave",
	"Air Conditioner", "Vacuum Cleaner", "Smartphone", "Dishwasher", "Monitor",
}

var categories = []models.Category{
	models.CategoryElectronics,
	models.CategoryAppliances,
	models.CategoryFurniture,
	models.CategoryVehicles,
	models.CategoryOther,
}

// RandomIntn returns a random integer in [0, n) from a shared seeded source.
func RandomIntn(n int) int {
	rndMu.Lock()
	defer rndMu.Unlock()

	return rnd.Intn(n)
}

// RandomEmail returns a unique plausible email address.
func RandomEmail() string {
	return fmt.Sprintf("user-%s@%s", uuid.New().String()[:8], emailDomains[RandomIntn(len(emailDomains))])
}

// RandomUser returns a user with a random ID and email.
func RandomUser() models.User {
	now := time.Now().UTC()

	return models.User{
		ID:        uuid.New().String(),
		Email:     RandomEmail(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RandomWarranty returns a warranty owned by ownerID expiring the given
// number of days after now. Negative days produce an already expired record.
func RandomWarranty(ownerID string, now time.Time, expiresInDays int) models.Warranty {
	return models.Warranty{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		ProductName:  productNames[RandomIntn(len(productNames))],
		Category:     categories[RandomIntn(len(categories))],
		PurchaseDate: now.AddDate(-1, 0, 0),
		ExpiryDate:   now.AddDate(0, 0, expiresInDays),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
