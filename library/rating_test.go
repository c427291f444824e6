package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingFormRequiresStars(t *testing.T) {
	f := NewRatingForm("Dune")
	assert.False(t, f.CanSubmit())

	called := false
	err := f.Submit(func(RatingSubmission) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrRatingUnset)
	assert.False(t, called)
}

func TestRatingFormSelect(t *testing.T) {
	f := NewRatingForm("Dune")
	for _, bad := range []int{0, -1, 6} {
		assert.ErrorIs(t, f.Select(bad), ErrValidation, "stars=%d", bad)
	}
	assert.Zero(t, f.Stars())

	require.NoError(t, f.Select(4))
	f.SetComment("très bien")
	assert.True(t, f.CanSubmit())

	var got RatingSubmission
	require.NoError(t, f.Submit(func(s RatingSubmission) error { got = s; return nil }))
	assert.Equal(t, RatingSubmission{Rating: 4, Comment: "très bien"}, got)
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]Review{{Rating: 5}, {Rating: 4}, {Rating: 4}, {Rating: 9}})
	assert.Equal(t, 3, summary.TotalRatings)
	assert.Equal(t, 4.3, summary.AverageRating)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 2, 5: 1}, summary.RatingDistribution)
	assert.InDelta(t, 66.67, summary.DistributionPercent(4), 0.01)

	empty := Summarize(nil)
	assert.Zero(t, empty.AverageRating)
	assert.Zero(t, empty.DistributionPercent(5))
}

func TestStars(t *testing.T) {
	assert.Equal(t, "★★★★★", Stars(5))
	assert.Equal(t, "★★★☆☆", Stars(3.4))
	assert.Equal(t, "☆☆☆☆☆", Stars(-2))
	assert.Equal(t, "★★★★★", Stars(7))
}

func TestPendingRatingsQueue(t *testing.T) {
	ctx := context.Background()
	q := NewPendingRatings(tempStorage(t))
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	list, err := q.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	f := NewRatingForm("Dune")
	require.NoError(t, f.Select(5))
	handler := q.Handler(ctx, "r1", "Dune", User{ID: "u1", Name: "Ana"}, func() time.Time { return now })
	require.NoError(t, f.Submit(handler))
	require.NoError(t, q.Add(ctx, PendingRating{RequestID: "r2", Rating: RatingSubmission{Rating: 2}}))

	list, err = q.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r1", list[0].RequestID)
	assert.Equal(t, "Ana", list[0].RatedBy)
	assert.Equal(t, 5, list[0].Rating.Rating)
	assert.True(t, now.Equal(list[0].SavedAt))
	assert.Equal(t, "r2", list[1].RequestID)
}
