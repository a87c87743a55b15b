package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/mastermindankur/warrantywallet/models"
)

type warrantyRepository struct {
	db *sql.DB
}

// NewWarrantyRepository creates a PostgreSQL implementation of
// models.WarrantyRepository.
func NewWarrantyRepository(db *sql.DB) (models.WarrantyRepository, error) {
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &warrantyRepository{db: db}, nil
}

const warrantyColumns = `id, owner_id, product_name, category, purchase_date, expiry_date,
       COALESCE(notes, ''), COALESCE(invoice_ref, ''), COALESCE(warranty_card_ref, ''),
       created_at, updated_at`

// Get retrieves a warranty by ID.
func (repo *warrantyRepository) Get(ctx context.Context, id string) (models.Warranty, error) {
	q := `SELECT ` + warrantyColumns + ` FROM warranties WHERE id = $1`

	row := repo.db.QueryRowContext(ctx, q, id)

	ans, err := scanWarranty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Warranty{}, fmt.Errorf("warranty %s: %w", id, models.ErrNotFound)
		}

		return models.Warranty{}, err
	}

	return ans, nil
}

// Create inserts a new warranty record.
func (repo *warrantyRepository) Create(ctx context.Context, w *models.Warranty) error {
	const q = `INSERT INTO warranties
	           (id, owner_id, product_name, category, purchase_date, expiry_date, notes, invoice_ref, warranty_card_ref, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}

	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = now
	}

	if !w.Category.Valid() {
		w.Category = models.CategoryOther
	}

	_, err := repo.db.ExecContext(ctx, q,
		w.ID, w.OwnerID, w.ProductName, string(w.Category),
		w.PurchaseDate, w.ExpiryDate,
		nullable(w.Notes), nullable(w.InvoiceRef), nullable(w.WarrantyCardRef),
		w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create warranty: %w", err)
	}

	return nil
}

// Delete removes a warranty record.
func (repo *warrantyRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM warranties WHERE id = $1`

	result, err := repo.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to delete warranty: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("warranty %s: %w", id, models.ErrNotFound)
	}

	return nil
}

// SelectByOwner returns every warranty owned by ownerID, most recently
// created first.
func (repo *warrantyRepository) SelectByOwner(ctx context.Context, ownerID string) ([]models.Warranty, error) {
	q := `SELECT ` + warrantyColumns + ` FROM warranties WHERE owner_id = $1 ORDER BY created_at DESC, id`

	rows, err := repo.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select warranties: %w", err)
	}
	defer rows.Close()

	return collectWarranties(rows)
}

// SelectExpiringBefore returns every warranty whose expiry date falls at or
// before cutoff, including records already expired.
func (repo *warrantyRepository) SelectExpiringBefore(ctx context.Context, cutoff time.Time) ([]models.Warranty, error) {
	q := `SELECT ` + warrantyColumns + ` FROM warranties WHERE expiry_date <= $1 ORDER BY expiry_date, id`

	rows, err := repo.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to select expiring warranties: %w", err)
	}
	defer rows.Close()

	return collectWarranties(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarranty(row rowScanner) (models.Warranty, error) {
	var (
		ans      models.Warranty
		category string
	)

	err := row.Scan(
		&ans.ID, &ans.OwnerID, &ans.ProductName, &category,
		&ans.PurchaseDate, &ans.ExpiryDate,
		&ans.Notes, &ans.InvoiceRef, &ans.WarrantyCardRef,
		&ans.CreatedAt, &ans.UpdatedAt)
	if err != nil {
		return models.Warranty{}, err
	}

	ans.Category = models.Category(category)

	return ans, nil
}

func collectWarranties(rows *sql.Rows) ([]models.Warranty, error) {
	var ans []models.Warranty

	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, err
		}

		ans = append(ans, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ans, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
