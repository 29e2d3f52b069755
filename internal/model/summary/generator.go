package summary

import (
	"fmt"
	"sort"
	"time"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"

	"vantha.app/expense-sync/internal/entity/expense"
	"vantha.app/expense-sync/internal/model/synccache"
)

var periodFilters = map[string]func() time.Time{
	"":      func() time.Time { return time.Time{} },
	"week":  now.BeginningOfWeek,
	"month": now.BeginningOfMonth,
	"year":  now.BeginningOfYear,
}

type records interface {
	CurrentRecords(key synccache.Key) []expense.Record
}

type Group struct {
	Category string
	Amount   float64
}

type Report struct {
	Groups []Group
	Total  float64
	Count  int
}

// Generator builds per-category totals over the cached records. It reads
// the cache snapshot only, so a summary is as fresh as the last refresh.
type Generator struct {
	cache records
}

func NewGenerator(cache records) *Generator {
	return &Generator{cache: cache}
}

func (g *Generator) Generate(key synccache.Key, period string) (*Report, error) {
	filter, ok := periodFilters[period]
	if !ok {
		return nil, errors.Wrap(
			fmt.Errorf("summary period %s is not supported", period),
			"generate summary",
		)
	}

	recs := filterAfter(g.cache.CurrentRecords(key), filter())
	return groupRecords(recs), nil
}

func Periods() []string {
	res := make([]string, 0, len(periodFilters))
	for k := range periodFilters {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

func filterAfter(recs []expense.Record, after time.Time) []expense.Record {
	res := make([]expense.Record, 0)
	for _, rec := range recs {
		if after.Before(rec.CreatedAt()) {
			res = append(res, rec)
		}
	}
	return res
}

func groupRecords(recs []expense.Record) *Report {
	m := make(map[string]float64)
	for _, rec := range recs {
		m[rec.Category] += rec.Amount
	}

	groups := make([]Group, 0, len(m))
	total := 0.0
	for cat, am := range m {
		groups = append(groups, Group{Category: cat, Amount: am})
		total += am
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Amount > groups[j].Amount
	})

	return &Report{
		Groups: groups,
		Total:  total,
		Count:  len(recs),
	}
}
