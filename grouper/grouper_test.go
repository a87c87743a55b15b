package grouper_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastermindankur/warrantywallet/grouper"
	"github.com/mastermindankur/warrantywallet/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(id, owner string, expiryDate time.Time) models.Warranty {
	return models.Warranty{
		ID:          id,
		OwnerID:     owner,
		ProductName: "Product " + id,
		Category:    models.CategoryElectronics,
		ExpiryDate:  expiryDate,
	}
}

func TestGroupSplitsByOwnerAndState(t *testing.T) {
	now := date(2024, time.June, 1)

	records := []models.Warranty{
		record("w1", "u1", date(2024, time.June, 10)),
		record("w2", "u1", date(2024, time.May, 1)),
		record("w3", "u2", date(2024, time.June, 20)),
	}

	res := grouper.Group(records, now)

	require.Len(t, res.Batches, 2)
	require.Empty(t, res.Skipped)

	u1 := res.Batches["u1"]
	require.NotNil(t, u1)
	require.Len(t, u1.Upcoming, 1)
	require.Len(t, u1.Expired, 1)
	assert.Equal(t, "w1", u1.Upcoming[0].ID)
	assert.Equal(t, "w2", u1.Expired[0].ID)

	u2 := res.Batches["u2"]
	require.NotNil(t, u2)
	require.Len(t, u2.Upcoming, 1)
	assert.Empty(t, u2.Expired)
	assert.Equal(t, "w3", u2.Upcoming[0].ID)
}

func TestGroupCompleteness(t *testing.T) {
	now := date(2024, time.June, 1)

	var records []models.Warranty
	for i := 0; i < 50; i++ {
		owner := fmt.Sprintf("u%d", i%7)
		expiryDate := now.AddDate(0, 0, i-25)
		records = append(records, record(fmt.Sprintf("w%d", i), owner, expiryDate))
	}

	// two malformed records
	records = append(records, record("bad-date", "u1", time.Time{}))
	records = append(records, record("no-owner", "", date(2024, time.June, 5)))

	res := grouper.Group(records, now)

	assert.Len(t, res.Skipped, 2)

	total := 0
	for _, batch := range res.Batches {
		total += len(batch.Upcoming) + len(batch.Expired)
	}

	assert.Equal(t, 50, total)
}

func TestGroupSortsAscendingByExpiry(t *testing.T) {
	now := date(2024, time.June, 1)

	records := []models.Warranty{
		record("b", "u1", date(2024, time.June, 20)),
		record("a", "u1", date(2024, time.June, 10)),
		record("c", "u1", date(2024, time.June, 10)),
		record("e", "u1", date(2023, time.December, 1)),
		record("d", "u1", date(2024, time.February, 1)),
	}

	res := grouper.Group(records, now)

	batch := res.Batches["u1"]
	require.NotNil(t, batch)

	for i := 1; i < len(batch.Upcoming); i++ {
		assert.False(t, batch.Upcoming[i].ExpiryDate.Before(batch.Upcoming[i-1].ExpiryDate))
	}

	assert.Equal(t, []string{"a", "c", "b"}, ids(batch.Upcoming))
	assert.Equal(t, []string{"e", "d"}, ids(batch.Expired))
}

func TestGroupDeterminism(t *testing.T) {
	now := date(2024, time.June, 1)

	records := []models.Warranty{
		record("w1", "u2", date(2024, time.June, 10)),
		record("w2", "u1", date(2024, time.June, 10)),
		record("w3", "u1", date(2024, time.May, 1)),
		record("w4", "u3", time.Time{}),
	}

	first := grouper.Group(records, now)
	second := grouper.Group(records, now)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Owners(), second.Owners())
	assert.Equal(t, []string{"u1", "u2"}, first.Owners())
}

func TestGroupEmptyInput(t *testing.T) {
	res := grouper.Group(nil, date(2024, time.June, 1))

	assert.Empty(t, res.Batches)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Owners())
}

func ids(records []models.Warranty) []string {
	out := make([]string, len(records))
	for i := range records {
		out[i] = records[i].ID
	}

	return out
}
