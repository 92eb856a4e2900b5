// Package contract determines whether contracts are valid and running, and
// creates new contracts with a unique reference code.
package contract

import (
	"time"

	"abo/internal/schedule"
	"abo/pkg/models"
)

// State is the lifecycle state of a contract on a given date. It is always
// computed, never stored.
type State string

const (
	StateDraft   State = "draft"
	StateValid   State = "valid"
	StateRunning State = "running"
	StateEnded   State = "ended"
)

// IsRunning reports whether the contract delivers issues on date: it has
// started, has not ended, and its issue cap (if any) is not exhausted.
func IsRunning(c *models.Contract, date time.Time) bool {
	date = models.Truncate(date)
	start := models.Truncate(c.StartDate)

	if start.IsZero() || start.After(date) {
		return false
	}
	if c.EndDate != nil && !c.EndDate.After(date) {
		return false
	}
	if c.Subscription != nil {
		if issueCap, ok := c.Subscription.IssueCap(); ok {
			if schedule.CountReceived(c, &start, &date) >= issueCap {
				return false
			}
		}
	}
	return true
}

// Running returns the customer's contracts that are running on date.
func Running(customer *models.Customer, date time.Time) []*models.Contract {
	var out []*models.Contract
	for _, c := range customer.Contracts {
		if IsRunning(c, date) {
			out = append(out, c)
		}
	}
	return out
}

// StateOf computes the contract's state on date. An invalid contract is a
// draft regardless of its dates.
func StateOf(c *models.Contract, date time.Time) State {
	if !IsValid(c) {
		return StateDraft
	}
	if IsRunning(c, date) {
		return StateRunning
	}
	if models.Truncate(c.StartDate).After(models.Truncate(date)) {
		return StateValid
	}
	return StateEnded
}
