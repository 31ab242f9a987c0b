package domain

import (
	"errors"
	"fmt"
	"time"
)

// Status tracks a fact through the review pipeline. Transitions only ever
// move forward: pending -> voting -> approved, or the row is deleted.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVoting   Status = "voting"
	StatusApproved Status = "approved"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusVoting, StatusApproved:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

type Fact struct {
	ID               uint
	Text             string
	Author           string
	Status           Status
	Timestamp        time.Time
	SubmitterAddress string
}

type StatusCounts struct {
	Pending  int64 `json:"pending"`
	Voting   int64 `json:"voting"`
	Approved int64 `json:"approved"`
}

var (
	ErrEmptyText      = errors.New("fact text is required")
	ErrRateLimited    = errors.New("rate limited")
	ErrNoFacts        = errors.New("no facts found")
	ErrAlreadyDecided = errors.New("fact already decided")
)
