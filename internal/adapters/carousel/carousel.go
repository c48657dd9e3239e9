// Package carousel turns approved reviews into the slide deck shown on the
// home page and keeps it fresh through workflow notifications.
package carousel

import (
	"context"
	"sync"
	"unicode/utf8"

	"school_reviews/internal/domain"
)

const (
	// MaxQuoteLen is the longest quote shown on a slide, in characters.
	MaxQuoteLen = 150
	// EmptyMessage is the single slide shown when nothing is approved.
	EmptyMessage = "No reviews available yet. Be the first to share your experience!"
)

type Slide struct {
	ID           domain.ReviewID `json:"id,omitempty"`
	Quote        string          `json:"quote"`
	Name         string          `json:"name,omitempty"`
	Relationship string          `json:"relationship,omitempty"`
}

type Source interface {
	ListApproved(ctx context.Context) ([]domain.Review, error)
	Subscribe(fn domain.Observer) (unsubscribe func())
}

type Carousel struct {
	mu     sync.RWMutex
	slides []Slide
	stop   func()
}

// New loads the current approved reviews and subscribes for updates.
func New(ctx context.Context, src Source) (*Carousel, error) {
	c := &Carousel{}
	approved, err := src.ListApproved(ctx)
	if err != nil {
		return nil, err
	}
	c.Refresh(approved)
	c.stop = src.Subscribe(func(approved []domain.Review) error {
		c.Refresh(approved)
		return nil
	})
	return c, nil
}

// Close stops listening for updates.
func (c *Carousel) Close() {
	if c.stop != nil {
		c.stop()
	}
}

func (c *Carousel) Refresh(approved []domain.Review) {
	slides := make([]Slide, 0, len(approved))
	for _, r := range approved {
		slides = append(slides, Slide{ID: r.ID, Quote: Truncate(r.Text), Name: r.FullName, Relationship: r.Relationship})
	}
	c.mu.Lock()
	c.slides = slides
	c.mu.Unlock()
}

// Deck returns the slides and the index to show after moving step slides
// from at. The index wraps in both directions.
func (c *Carousel) Deck(at, step int) ([]Slide, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.slides) == 0 {
		return []Slide{{Quote: EmptyMessage}}, 0
	}
	out := make([]Slide, len(c.slides))
	copy(out, c.slides)
	return out, Wrap(at+step, len(out))
}

func Wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i % n) + n) % n
}

func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxQuoteLen {
		return s
	}
	return string([]rune(s)[:MaxQuoteLen]) + "..."
}
