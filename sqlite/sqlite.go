// Package sqlite provides a single-file local store for warranties and
// users. It backs the one-shot run mode when no PostgreSQL DSN is
// configured.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/mastermindankur/warrantywallet/models"
)

// Store implements both models.WarrantyRepository and
// models.UserRepository on top of a single sqlite file.
type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := initDatabase(path)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, id string) (models.Warranty, error) {
	const q = `SELECT ` + warrantyColumns + ` FROM warranties WHERE id = ?`

	row := s.db.QueryRowContext(ctx, q, id)

	ans, err := rowToWarranty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Warranty{}, fmt.Errorf("warranty %s: %w", id, models.ErrNotFound)
		}

		return models.Warranty{}, err
	}

	return ans, nil
}

func (s *Store) Create(ctx context.Context, w *models.Warranty) error {
	const q = `INSERT INTO warranties
		(id, owner_id, product_name, category, purchase_date, expiry_date, notes, invoice_ref, warranty_card_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC().Unix()

	_, err := s.db.ExecContext(ctx, q,
		w.ID, w.OwnerID, w.ProductName, string(w.Category),
		w.PurchaseDate.UTC().Unix(), w.ExpiryDate.UTC().Unix(),
		w.Notes, w.InvoiceRef, w.WarrantyCardRef, now, now,
	)

	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM warranties WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("warranty %s: %w", id, models.ErrNotFound)
	}

	return nil
}

func (s *Store) SelectByOwner(ctx context.Context, ownerID string) ([]models.Warranty, error) {
	const q = `SELECT ` + warrantyColumns + ` FROM warranties WHERE owner_id = ? ORDER BY expiry_date, id`

	rows, err := s.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}

	return collectWarranties(rows)
}

func (s *Store) SelectExpiringBefore(ctx context.Context, cutoff time.Time) ([]models.Warranty, error) {
	const q = `SELECT ` + warrantyColumns + ` FROM warranties WHERE expiry_date <= ? ORDER BY expiry_date, id`

	rows, err := s.db.QueryContext(ctx, q, cutoff.UTC().Unix())
	if err != nil {
		return nil, err
	}

	return collectWarranties(rows)
}

func (s *Store) GetByID(ctx context.Context, id string) (models.User, error) {
	const q = `SELECT id, COALESCE(email, ''), created_at, updated_at FROM users WHERE id = ?`

	row := s.db.QueryRowContext(ctx, q, id)

	var (
		user               models.User
		createdAt, updated int64
	)

	err := row.Scan(&user.ID, &user.Email, &createdAt, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}

		return models.User{}, err
	}

	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	user.UpdatedAt = time.Unix(updated, 0).UTC()

	return user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	const q = `INSERT INTO users (id, email, created_at, updated_at) VALUES (?, ?, ?, ?)`

	now := time.Now().UTC().Unix()

	var email any
	if user.Email != "" {
		email = user.Email
	}

	_, err := s.db.ExecContext(ctx, q, user.ID, email, now, now)

	return err
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	const q = `DELETE FROM users WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}

	return nil
}

// Users adapts the store to models.UserRepository, whose method names
// differ from the warranty side.
func (s *Store) Users() models.UserRepository {
	return userStore{s: s}
}

type userStore struct {
	s *Store
}

func (u userStore) GetByID(ctx context.Context, id string) (models.User, error) {
	return u.s.GetByID(ctx, id)
}

func (u userStore) Create(ctx context.Context, user *models.User) error {
	return u.s.CreateUser(ctx, user)
}

func (u userStore) Delete(ctx context.Context, id string) error {
	return u.s.DeleteUser(ctx, id)
}

const warrantyColumns = `id, owner_id, product_name, category, purchase_date, expiry_date,
	COALESCE(notes, ''), COALESCE(invoice_ref, ''), COALESCE(warranty_card_ref, ''),
	created_at, updated_at`

type scannable interface {
	Scan(dest ...any) error
}

func rowToWarranty(row scannable) (models.Warranty, error) {
	var (
		ans                models.Warranty
		category           string
		purchase, expiry   int64
		createdAt, updated int64
	)

	err := row.Scan(&ans.ID, &ans.OwnerID, &ans.ProductName, &category,
		&purchase, &expiry, &ans.Notes, &ans.InvoiceRef, &ans.WarrantyCardRef,
		&createdAt, &updated)
	if err != nil {
		return models.Warranty{}, err
	}

	ans.Category = models.Category(category)
	ans.PurchaseDate = time.Unix(purchase, 0).UTC()
	ans.ExpiryDate = time.Unix(expiry, 0).UTC()
	ans.CreatedAt = time.Unix(createdAt, 0).UTC()
	ans.UpdatedAt = time.Unix(updated, 0).UTC()

	return ans, nil
}

func collectWarranties(rows *sql.Rows) ([]models.Warranty, error) {
	defer rows.Close()

	var ans []models.Warranty

	for rows.Next() {
		w, err := rowToWarranty(rows)
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

func initDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, err
		}
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, createSchema(db)
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT,
			created_at INT NOT NULL,
			updated_at INT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS warranties (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			product_name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'Other',
			purchase_date INT NOT NULL,
			expiry_date INT NOT NULL,
			notes TEXT,
			invoice_ref TEXT,
			warranty_card_ref TEXT,
			created_at INT NOT NULL,
			updated_at INT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_warranties_expiry ON warranties(expiry_date)`)

	return err
}
