// Package grouper partitions warranty records into per-owner notification batches.
package grouper

import (
	"sort"
	"time"

	"github.com/mastermindankur/warrantywallet/expiry"
	"github.com/mastermindankur/warrantywallet/models"
)

// Batch holds one owner's records split by expiry state. Both sequences are
// sorted ascending by expiry date.
type Batch struct {
	OwnerID  string
	Upcoming []models.Warranty
	Expired  []models.Warranty
}

// Empty reports whether the batch carries no records at all. Empty batches
// must never be dispatched.
func (b *Batch) Empty() bool {
	return len(b.Upcoming) == 0 && len(b.Expired) == 0
}

// Result is the outcome of grouping a flat record list.
type Result struct {
	Batches map[string]*Batch
	// Skipped lists the ids of records excluded because they carry no usable
	// expiry date or no owner.
	Skipped []string
}

// Owners returns the owner ids with at least one grouped record, in lexical
// order so that iteration over a Result is deterministic.
func (r *Result) Owners() []string {
	owners := make([]string, 0, len(r.Batches))
	for id := range r.Batches {
		owners = append(owners, id)
	}

	sort.Strings(owners)

	return owners
}

// Group classifies every record it receives, unconditionally, into exactly one
// of {upcoming, expired} relative to now and partitions the records by owner.
// The result depends only on the input records and now.
func Group(records []models.Warranty, now time.Time) *Result {
	res := Result{
		Batches: make(map[string]*Batch),
	}

	for i := range records {
		rec := records[i]

		if rec.OwnerID == "" || !expiry.ValidDate(rec.ExpiryDate) {
			res.Skipped = append(res.Skipped, rec.ID)

			continue
		}

		batch, ok := res.Batches[rec.OwnerID]
		if !ok {
			batch = &Batch{OwnerID: rec.OwnerID}
			res.Batches[rec.OwnerID] = batch
		}

		if expiry.IsExpired(rec.ExpiryDate, now) {
			batch.Expired = append(batch.Expired, rec)
		} else {
			batch.Upcoming = append(batch.Upcoming, rec)
		}
	}

	for _, batch := range res.Batches {
		sortByExpiry(batch.Upcoming)
		sortByExpiry(batch.Expired)
	}

	return &res
}

// sortByExpiry orders records ascending by expiry date, breaking ties on id so
// equal dates sort the same way on every run.
func sortByExpiry(records []models.Warranty) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ExpiryDate.Equal(records[j].ExpiryDate) {
			return records[i].ID < records[j].ID
		}

		return records[i].ExpiryDate.Before(records[j].ExpiryDate)
	})
}
