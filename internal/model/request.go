package model

import (
	"bytes"
	"fmt"
	"time"
)

// BorrowRequest is a borrower's request to use someone else's tool.
type BorrowRequest struct {
	ID               int64     `json:"id"`
	Tool             Tool      `json:"tool"`
	Borrower         User      `json:"borrower"`
	Reason           string    `json:"reason"`
	Duration         int       `json:"duration"`
	Status           string    `json:"status"`
	ReturnDate       *Date     `json:"return_date"`
	OwnerNotified    bool      `json:"owner_notified"`
	BorrowerNotified bool      `json:"borrower_notified"`
	IsOverdue        bool      `json:"is_overdue"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Request statuses. Transitions are owned by the backend.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusReturned = "returned"
)

// CanTransition reports whether the backend exposes a transition from one
// status to another.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusReturned
	default:
		return false
	}
}

// Owner actions on an incoming request.
const (
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionReturned = "returned"
)

// ActionsFor returns the owner actions offered for a request in the given
// status: approve and reject while pending, mark returned while approved,
// nothing otherwise.
func ActionsFor(status string) []string {
	switch status {
	case StatusPending:
		return []string{ActionApprove, ActionReject}
	case StatusApproved:
		return []string{ActionReturned}
	default:
		return nil
	}
}

// ActionTarget returns the status an action moves a request to.
func ActionTarget(action string) (string, bool) {
	switch action {
	case ActionApprove:
		return StatusApproved, true
	case ActionReject:
		return StatusRejected, true
	case ActionReturned:
		return StatusReturned, true
	default:
		return "", false
	}
}

// HasNewUpdate reports whether the borrower has not yet seen the owner's
// decision on this request.
func (r BorrowRequest) HasNewUpdate() bool {
	return (r.Status == StatusApproved || r.Status == StatusRejected) && !r.BorrowerNotified
}

// Approved returns only the requests whose status is exactly approved.
func Approved(reqs []BorrowRequest) []BorrowRequest {
	var out []BorrowRequest
	for _, r := range reqs {
		if r.Status == StatusApproved {
			out = append(out, r)
		}
	}
	return out
}

// ActionResponse is returned by the approve, reject and returned endpoints.
type ActionResponse struct {
	Message string        `json:"message"`
	Request BorrowRequest `json:"request"`
}

// BorrowForm is the payload for a new borrow request.
type BorrowForm struct {
	ToolID   int64  `json:"tool_id" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"required"`
	Duration int    `json:"duration" validate:"min=1,max=30"`
}

// MaxBorrowDays is the longest duration a request may ask for.
const MaxBorrowDays = 30

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate returns the date part of t.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" or an RFC 3339 timestamp.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parsing date %q: %w", s, err)
		}
	}
	*d = NewDate(t)
	return nil
}
