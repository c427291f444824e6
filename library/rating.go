package library

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	MinStars = 1
	MaxStars = 5
)

// RatingForm captures a star rating and a comment for a finished exchange.
// It never talks to the network; Submit hands the values to the caller.
type RatingForm struct {
	BookTitle string

	mu      sync.Mutex
	stars   int
	comment string
}

func NewRatingForm(bookTitle string) *RatingForm {
	return &RatingForm{BookTitle: bookTitle}
}

// Select sets the number of stars. Only whole values 1..5 are accepted.
func (f *RatingForm) Select(stars int) error {
	if stars < MinStars || stars > MaxStars {
		return invalid("rating", fmt.Sprintf("must be between %d and %d", MinStars, MaxStars))
	}
	f.mu.Lock()
	f.stars = stars
	f.mu.Unlock()
	return nil
}

func (f *RatingForm) SetComment(comment string) {
	f.mu.Lock()
	f.comment = comment
	f.mu.Unlock()
}

func (f *RatingForm) Stars() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stars
}

// CanSubmit is false until a star has been selected.
func (f *RatingForm) CanSubmit() bool {
	return f.Stars() != 0
}

// Submit passes the rating to handler. With no star selected it returns
// ErrRatingUnset and handler is not called.
func (f *RatingForm) Submit(handler func(RatingSubmission) error) error {
	f.mu.Lock()
	sub := RatingSubmission{Rating: f.stars, Comment: f.comment}
	f.mu.Unlock()

	if sub.Rating == 0 {
		return ErrRatingUnset
	}
	return handler(sub)
}

// Summarize recomputes the profile aggregate from individual reviews. The
// average is rounded to one decimal.
func Summarize(reviews []Review) UserRating {
	out := UserRating{
		RatingDistribution: make(map[int]int, MaxStars),
		Ratings:            reviews,
	}
	for star := MinStars; star <= MaxStars; star++ {
		out.RatingDistribution[star] = 0
	}

	sum := 0
	for _, r := range reviews {
		if r.Rating < MinStars || r.Rating > MaxStars {
			continue
		}
		out.RatingDistribution[r.Rating]++
		out.TotalRatings++
		sum += r.Rating
	}
	if out.TotalRatings > 0 {
		avg := float64(sum) / float64(out.TotalRatings)
		out.AverageRating = math.Round(avg*10) / 10
	}
	return out
}

// DistributionPercent is the share of ratings with the given star value,
// 0 when there are none.
func (r UserRating) DistributionPercent(star int) float64 {
	total := 0
	for _, n := range r.RatingDistribution {
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(r.RatingDistribution[star]) * 100 / float64(total)
}

// Stars renders a 1..5 value as filled and empty stars.
func Stars(value float64) string {
	n := int(math.Round(value))
	if n < 0 {
		n = 0
	}
	if n > MaxStars {
		n = MaxStars
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", MaxStars-n)
}

// ---------------------------------------------------------------------------
// Pending ratings
// ---------------------------------------------------------------------------

// PendingRating is a submitted rating kept locally until the service
// accepts ratings.
type PendingRating struct {
	RequestID string           `json:"requestId"`
	BookTitle string           `json:"bookTitle"`
	RatedBy   string           `json:"ratedBy"`
	Rating    RatingSubmission `json:"rating"`
	SavedAt   time.Time        `json:"savedAt"`
}

// PendingRatings is a FIFO of ratings persisted in Storage.
type PendingRatings struct {
	storage Storage
	mu      sync.Mutex
}

func NewPendingRatings(storage Storage) *PendingRatings {
	return &PendingRatings{storage: storage}
}

func (p *PendingRatings) List(ctx context.Context) ([]PendingRating, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load(ctx)
}

func (p *PendingRatings) load(ctx context.Context) ([]PendingRating, error) {
	raw, ok, err := p.storage.Get(ctx, KeyPendingRatings)
	if err != nil || !ok {
		return nil, err
	}
	var out []PendingRating
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode pending ratings: %w", err)
	}
	return out, nil
}

// Add appends a rating to the queue.
func (p *PendingRatings) Add(ctx context.Context, pending PendingRating) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	all, err := p.load(ctx)
	if err != nil {
		return err
	}
	all = append(all, pending)
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(all)
	if err != nil {
		return err
	}
	return p.storage.Set(ctx, KeyPendingRatings, string(raw))
}

// Handler returns a RatingForm handler that queues the submission.
func (p *PendingRatings) Handler(ctx context.Context, requestID, bookTitle string, ratedBy User, now func() time.Time) func(RatingSubmission) error {
	return func(sub RatingSubmission) error {
		return p.Add(ctx, PendingRating{
			RequestID: requestID,
			BookTitle: bookTitle,
			RatedBy:   ratedBy.Name,
			Rating:    sub,
			SavedAt:   now(),
		})
	}
}
