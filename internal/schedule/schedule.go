// Package schedule answers which magazine issues fall into a date window and
// how many issues a contract has received.
package schedule

import (
	"time"

	"abo/pkg/models"
)

// Window is an inclusive date range. A nil bound is open.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Between returns the closed window [start, end].
func Between(start, end time.Time) Window {
	return Window{Start: models.DatePtr(start), End: models.DatePtr(end)}
}

// Contains reports whether d lies inside the window.
func (w Window) Contains(d time.Time) bool {
	if w.Start != nil && d.Before(*w.Start) {
		return false
	}
	if w.End != nil && d.After(*w.End) {
		return false
	}
	return true
}

// Empty reports whether the window cannot contain any date.
func (w Window) Empty() bool {
	return w.Start != nil && w.End != nil && w.Start.After(*w.End)
}

// Issues returns the magazine's issues published within w, in publication
// order, truncated to limit entries when limit > 0.
func Issues(magazine *models.Magazine, w Window, limit int) []*models.Issue {
	if magazine == nil || w.Empty() {
		return nil
	}
	var out []*models.Issue
	for _, issue := range magazine.Issues {
		if !w.Contains(issue.Date) {
			continue
		}
		out = append(out, issue)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Received returns the issues the contract is entitled to within
// [start, end], clipped to the contract's own start and end dates.
//
// For subscriptions with an issue cap, issues delivered before the window
// count against the cap: only cap - Received(contract, nil, start-1) issues
// remain for the window.
func Received(contract *models.Contract, start, end *time.Time) []*models.Issue {
	magazine := contract.Magazine()
	if magazine == nil {
		return nil
	}

	effStart := contract.StartDate
	if start != nil && start.After(effStart) {
		effStart = *start
	}

	var effEnd *time.Time
	switch {
	case contract.EndDate != nil && end != nil:
		if end.Before(*contract.EndDate) {
			effEnd = end
		} else {
			effEnd = contract.EndDate
		}
	case contract.EndDate != nil:
		effEnd = contract.EndDate
	case end != nil:
		effEnd = end
	}

	w := Window{Start: &effStart, End: effEnd}
	if w.Empty() {
		return nil
	}

	limit := 0
	if issueCap, ok := contract.Subscription.IssueCap(); ok {
		before := models.DayBefore(effStart)
		remaining := issueCap - len(Received(contract, nil, &before))
		if remaining <= 0 {
			return nil
		}
		limit = remaining
	}

	return Issues(magazine, w, limit)
}

// CountReceived is len(Received(contract, start, end)).
func CountReceived(contract *models.Contract, start, end *time.Time) int {
	return len(Received(contract, start, end))
}
