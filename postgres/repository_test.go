package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mastermindankur/warrantywallet/internal/testutils"
	"github.com/mastermindankur/warrantywallet/models"
	"github.com/mastermindankur/warrantywallet/postgres"
)

type pgContainer struct {
	testcontainers.Container
	DSN string
}

func setupPostgres(ctx context.Context) (*pgContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "warrantywallet",
			"POSTGRES_PASSWORD": "warrantywallet",
			"POSTGRES_DB":       "warrantywallet",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}

	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, err
	}

	hostIP, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("postgres://warrantywallet:warrantywallet@%s:%s/warrantywallet?sslmode=disable",
		hostIP, mappedPort.Port())

	return &pgContainer{Container: container, DSN: dsn}, nil
}

func TestRepositoriesIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if os.Getenv("RUN_PG_INTEGRATION_TESTS") == "" {
		t.Skip("Set RUN_PG_INTEGRATION_TESTS=1 to run postgres integration tests")
	}

	ctx := context.Background()

	pgC, err := setupPostgres(ctx)
	require.NoError(t, err)

	defer func() {
		if err := pgC.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	migrator := postgres.NewMigrationRunner(pgC.DSN)
	require.NoError(t, migrator.SetMigrationsDir("../scripts/migrations"))
	require.NoError(t, migrator.RunMigrations())

	db, err := sql.Open("pgx", pgC.DSN)
	require.NoError(t, err)
	defer db.Close()

	warranties, err := postgres.NewWarrantyRepository(db)
	require.NoError(t, err)

	users := postgres.NewUserRepository(db)

	t.Run("user without email resolves to empty address", func(t *testing.T) {
		id := uuid.New().String()
		require.NoError(t, users.Create(ctx, &models.User{ID: id}))

		got, err := users.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, got.Email)
	})

	t.Run("missing user returns ErrNotFound", func(t *testing.T) {
		_, err := users.GetByID(ctx, uuid.New().String())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("select expiring before cutoff sorted by expiry", func(t *testing.T) {
		ownerID := uuid.New().String()
		require.NoError(t, users.Create(ctx, &models.User{ID: ownerID, Email: testutils.RandomEmail()}))

		now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

		// 20 and 5 fall inside the 30 day horizon, -10 is already
		// expired, 60 is beyond the horizon.
		for _, days := range []int{20, -10, 5, 60} {
			w := testutils.RandomWarranty(ownerID, now, days)
			require.NoError(t, warranties.Create(ctx, &w))
		}

		got, err := warranties.SelectExpiringBefore(ctx, now.AddDate(0, 0, 30))
		require.NoError(t, err)
		require.Len(t, got, 3)

		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].ExpiryDate.Before(got[i-1].ExpiryDate))
		}
	})

	t.Run("create get delete roundtrip", func(t *testing.T) {
		ownerID := uuid.New().String()
		require.NoError(t, users.Create(ctx, &models.User{ID: ownerID, Email: "rt@example.com"}))

		w := models.Warranty{
			ID:           uuid.New().String(),
			OwnerID:      ownerID,
			ProductName:  "Laptop",
			Category:     models.CategoryElectronics,
			PurchaseDate: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
			ExpiryDate:   time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
			Notes:        "extended cover",
		}
		require.NoError(t, warranties.Create(ctx, &w))

		got, err := warranties.Get(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, "Laptop", got.ProductName)
		assert.Equal(t, models.CategoryElectronics, got.Category)
		assert.Equal(t, "extended cover", got.Notes)

		byOwner, err := warranties.SelectByOwner(ctx, ownerID)
		require.NoError(t, err)
		assert.Len(t, byOwner, 1)

		require.NoError(t, warranties.Delete(ctx, w.ID))

		_, err = warranties.Get(ctx, w.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
