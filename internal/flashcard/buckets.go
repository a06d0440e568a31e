package flashcard

import (
	"sort"
	"time"

	"github.com/vytor/studyflash/internal/models"
)

// Classifier sorts flashcards into review buckets relative to a business day
// defined by a fixed location.
type Classifier struct {
	loc *time.Location
}

func NewClassifier(loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Classifier{loc: loc}
}

func (c *Classifier) Location() *time.Location {
	return c.loc
}

// DayBounds returns [start, end) of the business day containing t.
func (c *Classifier) DayBounds(t time.Time) (time.Time, time.Time) {
	lt := t.In(c.loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// Classify partitions cards with a scheduled review into overdue, due today
// and upcoming, and collects the cards last reviewed today into completed.
// Cards never reviewed appear in none of the buckets.
func (c *Classifier) Classify(now time.Time, cards []models.Flashcard) models.Buckets {
	start, end := c.DayBounds(now)
	b := models.Buckets{
		Overdue:   []models.Flashcard{},
		DueToday:  []models.Flashcard{},
		Upcoming:  []models.Flashcard{},
		Completed: []models.Flashcard{},
		New:       []models.Flashcard{},
	}

	for _, card := range cards {
		if card.NextReview == nil {
			continue
		}
		next := *card.NextReview
		switch {
		case next.Before(now):
			b.Overdue = append(b.Overdue, card)
		case next.Before(end):
			b.DueToday = append(b.DueToday, card)
		default:
			b.Upcoming = append(b.Upcoming, card)
		}
		if lr := card.LastReviewedAt; lr != nil && !lr.Before(start) && lr.Before(end) {
			b.Completed = append(b.Completed, card)
		}
	}

	sortBy(b.Overdue, nextReviewOf)
	sortBy(b.DueToday, nextReviewOf)
	sortBy(b.Upcoming, nextReviewOf)
	sortBy(b.Completed, lastReviewedOf)
	return b
}

// NewCards returns never-reviewed cards ordered by creation.
func NewCards(cards []models.Flashcard) []models.Flashcard {
	out := []models.Flashcard{}
	for _, card := range cards {
		if card.IsNew() {
			out = append(out, card)
		}
	}
	sortBy(out, func(c models.Flashcard) time.Time { return c.CreatedAt })
	return out
}

func nextReviewOf(c models.Flashcard) time.Time    { return *c.NextReview }
func lastReviewedOf(c models.Flashcard) time.Time { return *c.LastReviewedAt }

func sortBy(cards []models.Flashcard, key func(models.Flashcard) time.Time) {
	sort.SliceStable(cards, func(i, j int) bool {
		ki, kj := key(cards[i]), key(cards[j])
		if !ki.Equal(kj) {
			return ki.Before(kj)
		}
		return cards[i].ID < cards[j].ID
	})
}
