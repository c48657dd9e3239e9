package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ReviewID is numeric for submitted reviews ("7") and free-form for legacy
// records ("review_default_1"). Numeric ids round-trip as JSON numbers.
type ReviewID string

// ErrNonIntegerID rejects numeric ids with a fraction or exponent, or out of
// int64 range; they have no exact ReviewID form.
var ErrNonIntegerID = errors.New("numeric id must be an integer")

func NewReviewID(n int64) ReviewID { return ReviewID(strconv.FormatInt(n, 10)) }

// Numeric returns the first run of digits in the id, or 0 when there is none.
// A run too long for int64 saturates at math.MaxInt64.
func (id ReviewID) Numeric() int64 {
	s := string(id)
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.ParseInt(s[start:end], 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt64
	}
	if err != nil {
		return 0
	}
	return n
}

func (id ReviewID) isNumber() bool {
	s := string(id)
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (id ReviewID) MarshalJSON() ([]byte, error) {
	if id.isNumber() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ReviewID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ReviewID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("review id: %w", err)
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("review id %s: %w", n, ErrNonIntegerID)
	}
	*id = NewReviewID(i)
	return nil
}

type Review struct {
	ID           ReviewID   `json:"id"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	Relationship string     `json:"relationship"`
	Text         string     `json:"review"`
	Timestamp    time.Time  `json:"timestamp"`
	Status       Status     `json:"status"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
}

// SortTime is the time admin views order a record by: approval time when
// set, submission time otherwise.
func (r Review) SortTime() time.Time {
	if r.ApprovedAt != nil {
		return *r.ApprovedAt
	}
	return r.Timestamp
}

// Observer receives the approved collection after every successful mutation.
type Observer func(approved []Review) error

type Stats struct {
	PendingCount  int      `json:"pendingCount"`
	ApprovedCount int      `json:"approvedCount"`
	TotalCount    int      `json:"totalCount"`
	Pending       []Review `json:"pendingReviews"`
	Approved      []Review `json:"approvedReviews"`
}

type ExportStatistics struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Total    int `json:"total"`
}

type ExportDocument struct {
	ExportDate      time.Time        `json:"exportDate"`
	ExportedBy      string           `json:"exportedBy"`
	Statistics      ExportStatistics `json:"statistics"`
	PendingReviews  []Review         `json:"pendingReviews"`
	ApprovedReviews []Review         `json:"approvedReviews"`
}
