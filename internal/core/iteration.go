package core

import "github.com/valter-silva-au/runboard/pkg/models"

// IterationCounter hands out iteration numbers per content type. It stores
// the next implicit iteration for each type, starting at 0, and never moves
// backwards.
type IterationCounter struct {
	next map[models.ContentType]int64
}

// NewIterationCounter creates a counter with every content type at 0.
func NewIterationCounter() *IterationCounter {
	return &IterationCounter{next: make(map[models.ContentType]int64)}
}

// Next returns the iteration to use for an artifact of type ct and advances
// the counter. A non-nil explicit value is used as-is; the counter then moves
// to max(next+1, explicit+1).
func (c *IterationCounter) Next(ct models.ContentType, explicit *int64) int64 {
	cur := c.next[ct]
	iter := cur
	if explicit != nil {
		iter = *explicit
	}
	adv := cur + 1
	if iter+1 > adv {
		adv = iter + 1
	}
	c.next[ct] = adv
	return iter
}

// Peek returns the next implicit iteration for ct without advancing.
func (c *IterationCounter) Peek(ct models.ContentType) int64 {
	return c.next[ct]
}
