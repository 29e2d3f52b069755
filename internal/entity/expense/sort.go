package expense

import "sort"

// SortByCreatedDesc orders records most recent first. The sort is stable:
// records with equal timestamps keep the relative order the remote returned
// them in, so repeated sorts of the same data never reshuffle the list.
func SortByCreatedDesc(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt().After(recs[j].CreatedAt())
	})
}

// InsertPosition returns where rec belongs in a sequence already ordered by
// SortByCreatedDesc. A record ties with existing equal timestamps by going
// after them.
func InsertPosition(recs []Record, rec Record) int {
	at := rec.CreatedAt()
	return sort.Search(len(recs), func(i int) bool {
		return at.After(recs[i].CreatedAt())
	})
}

// Equal reports whether two sequences hold the same records in the same
// order, compared by identity.
func Equal(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
