package listing

import (
	"sort"
	"time"
)

// MergeStats counts what a merge did to the existing collection
type MergeStats struct {
	Inserted int
	Updated  int
}

// Merge folds incoming into existing keyed by IdentityURL and returns a new
// collection. Unseen identities are appended in incoming order; a seen
// identity has its mutable fields replaced, so the last occurrence wins.
// Neither argument is modified.
func Merge(existing, incoming []Listing) ([]Listing, MergeStats) {
	var stats MergeStats

	merged := make([]Listing, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	for _, l := range existing {
		if pos, ok := index[l.IdentityURL]; ok {
			merged[pos] = merged[pos].refresh(l)
			continue
		}
		index[l.IdentityURL] = len(merged)
		merged = append(merged, l)
	}

	// Identities inserted during this merge are not counted as updated
	// when they repeat later in incoming.
	inserted := make(map[string]struct{})
	for _, l := range incoming {
		if l.IdentityURL == "" {
			continue
		}
		if pos, ok := index[l.IdentityURL]; ok {
			merged[pos] = merged[pos].refresh(l)
			if _, fresh := inserted[l.IdentityURL]; !fresh {
				stats.Updated++
			}
			continue
		}
		index[l.IdentityURL] = len(merged)
		merged = append(merged, l)
		inserted[l.IdentityURL] = struct{}{}
		stats.Inserted++
	}

	return merged, stats
}

// Expire drops every listing whose age in days exceeds retentionDays as of
// asOf and returns the survivors with the number removed. Listings with an
// unparseable ObservedDate are kept.
func Expire(collection []Listing, retentionDays int, asOf time.Time) ([]Listing, int) {
	kept := make([]Listing, 0, len(collection))
	for _, l := range collection {
		if age, ok := AgeDays(l.ObservedDate, asOf); ok && age > retentionDays {
			continue
		}
		kept = append(kept, l)
	}
	return kept, len(collection) - len(kept)
}

// SortByObserved orders the collection most recently observed first.
// Ties keep their relative order.
func SortByObserved(collection []Listing) {
	sort.SliceStable(collection, func(i, j int) bool {
		return collection[i].ObservedDate > collection[j].ObservedDate
	})
}

// Index maps identity to listing
func Index(collection []Listing) map[string]Listing {
	idx := make(map[string]Listing, len(collection))
	for _, l := range collection {
		idx[l.IdentityURL] = l
	}
	return idx
}
