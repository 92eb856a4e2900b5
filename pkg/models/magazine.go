package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Magazine is a periodical with a fixed number of issues per year.
type Magazine struct {
	ID            uuid.UUID
	Name          string
	IssuesPerYear int      // must be > 0
	Issues        []*Issue // ordered by publication date
}

// Issue is one published edition of a magazine.
type Issue struct {
	ID         uuid.UUID
	MagazineID uuid.UUID
	Year       int
	Number     int
	Date       time.Time // publication date
}

// AddIssue appends an issue and keeps Issues ordered by publication date.
func (m *Magazine) AddIssue(issue *Issue) {
	issue.MagazineID = m.ID
	m.Issues = append(m.Issues, issue)
	m.SortIssues()
}

// SortIssues orders issues by publication date, then year and number.
func (m *Magazine) SortIssues() {
	sort.SliceStable(m.Issues, func(i, j int) bool {
		a, b := m.Issues[i], m.Issues[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Number < b.Number
	})
}

// Subscription is a product offered for a magazine.
type Subscription struct {
	ID              uuid.UUID
	MagazineID      uuid.UUID
	Magazine        *Magazine
	Name            string
	Value           decimal.Decimal // default price per period
	ValueChangeable bool
	NumberOfIssues  *int // nil: use the magazine's issues per year
}

// TotalNumberOfIssues returns the issue override if set, else the
// magazine's issues per year.
func (s *Subscription) TotalNumberOfIssues() int {
	if s.NumberOfIssues != nil {
		return *s.NumberOfIssues
	}
	if s.Magazine == nil {
		return 0
	}
	return s.Magazine.IssuesPerYear
}

// IssueCap returns the finite number of issues the subscription delivers in
// total, if it has one.
func (s *Subscription) IssueCap() (int, bool) {
	if s.NumberOfIssues == nil {
		return 0, false
	}
	return *s.NumberOfIssues, true
}
