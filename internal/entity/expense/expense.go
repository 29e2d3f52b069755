package expense

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for timestamps: UTC, no offset, literal Z.
const DateLayout = "2006-01-02T15:04:05Z"

type Record struct {
	ID          string
	Amount      float64
	Currency    string
	Category    string
	Remark      string
	CreatedBy   string
	CreatedDate string
}

// CreatedAt parses the record timestamp. An unparsable or missing date
// maps to the Unix epoch so the record sorts last instead of being dropped.
func (r Record) CreatedAt() time.Time {
	t, err := ParseDate(r.CreatedDate)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}

// Label is the display description: the remark when present, else the category.
func (r Record) Label() string {
	if strings.TrimSpace(r.Remark) != "" {
		return r.Remark
	}
	return r.Category
}

func (r Record) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %v", r.Amount)
	}
	if r.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	return nil
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Now is the current moment in wire format.
func Now() string {
	return FormatDate(time.Now())
}
