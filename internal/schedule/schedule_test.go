package schedule

import (
	"testing"
	"time"

	"abo/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monthly returns a magazine with one issue on the 15th of every month of
// the given years.
func monthly(years ...int) *models.Magazine {
	m := &models.Magazine{ID: uuid.New(), Name: "Gartenfreund", IssuesPerYear: 12}
	for _, y := range years {
		for month := time.January; month <= time.December; month++ {
			m.AddIssue(&models.Issue{ID: uuid.New(), Year: y, Number: int(month), Date: models.Date(y, month, 15)})
		}
	}
	return m
}

func contractFor(m *models.Magazine, start time.Time, end *time.Time, issueCap *int) *models.Contract {
	return &models.Contract{
		ID:        uuid.New(),
		StartDate: start,
		EndDate:   end,
		Value:     decimal.RequireFromString("120.00"),
		Subscription: &models.Subscription{
			ID:             uuid.New(),
			Magazine:       m,
			MagazineID:     m.ID,
			Name:           "Jahresabo",
			NumberOfIssues: issueCap,
		},
	}
}

func ptr[T any](v T) *T { return &v }

func TestIssues(t *testing.T) {
	m := monthly(2020)

	t.Run("open window returns all", func(t *testing.T) {
		assert.Len(t, Issues(m, Window{}, 0), 12)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		got := Issues(m, Between(models.Date(2020, 3, 15), models.Date(2020, 5, 15)), 0)
		require.Len(t, got, 3)
		assert.Equal(t, 3, got[0].Number)
		assert.Equal(t, 5, got[2].Number)
	})

	t.Run("limit truncates in publication order", func(t *testing.T) {
		got := Issues(m, Window{Start: ptr(models.Date(2020, 6, 1))}, 2)
		require.Len(t, got, 2)
		assert.Equal(t, 6, got[0].Number)
		assert.Equal(t, 7, got[1].Number)
	})

	t.Run("reversed window is empty", func(t *testing.T) {
		assert.Empty(t, Issues(m, Between(models.Date(2020, 6, 1), models.Date(2020, 5, 1)), 0))
	})
}

func TestReceived_FullYearUncapped(t *testing.T) {
	m := monthly(2020)
	c := contractFor(m, models.Date(2020, 1, 1), nil, nil)

	n := CountReceived(c, ptr(models.Date(2020, 1, 1)), ptr(models.Date(2020, 12, 31)))
	assert.Equal(t, 12, n)
}

func TestReceived_ClipsToContractDates(t *testing.T) {
	m := monthly(2020)
	c := contractFor(m, models.Date(2020, 3, 1), ptr(models.Date(2020, 6, 30)), nil)

	got := Received(c, ptr(models.Date(2020, 1, 1)), ptr(models.Date(2020, 12, 31)))
	require.Len(t, got, 4)
	assert.Equal(t, 3, got[0].Number)
	assert.Equal(t, 6, got[3].Number)

	assert.Len(t, Received(c, nil, nil), 4)
	assert.Len(t, Received(c, nil, ptr(models.Date(2020, 4, 30))), 2)
}

func TestReceived_EmptyWhenStartAfterEnd(t *testing.T) {
	m := monthly(2020)
	c := contractFor(m, models.Date(2020, 6, 1), ptr(models.Date(2020, 3, 1)), nil)
	assert.Empty(t, Received(c, nil, nil))
}

func TestReceived_CapCountsEarlierIssues(t *testing.T) {
	m := monthly(2020)
	c := contractFor(m, models.Date(2020, 1, 1), nil, ptr(5))

	// January to March consumes 3 of 5 issues.
	assert.Equal(t, 3, CountReceived(c, nil, ptr(models.Date(2020, 3, 31))))

	// Only 2 remain for the rest of the year.
	got := Received(c, ptr(models.Date(2020, 4, 1)), ptr(models.Date(2020, 12, 31)))
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Number)
	assert.Equal(t, 5, got[1].Number)

	// Nothing left after the cap is exhausted.
	assert.Empty(t, Received(c, ptr(models.Date(2020, 7, 1)), nil))

	// The whole contract never exceeds the cap.
	assert.Equal(t, 5, CountReceived(c, nil, nil))
}

func TestReceived_NoMagazine(t *testing.T) {
	c := &models.Contract{StartDate: models.Date(2020, 1, 1)}
	assert.Nil(t, Received(c, nil, nil))
}
