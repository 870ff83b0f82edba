package http

import (
	"fmt"
	"sync"
)

// CallCounter counts calls per step key. It is shared by every client a
// session builds so the counts stay monotonic across client rebuilds.
type CallCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewCallCounter() *CallCounter {
	return &CallCounter{counts: make(map[string]int)}
}

// Next increments the count for key and returns the new value.
func (c *CallCounter) Next(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key]
}

// Count returns how many calls were made for key.
func (c *CallCounter) Count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

// StepKey derives the counter key for a test and step. It is empty when
// either part is unknown.
func StepKey(test, step string) string {
	if test == "" || step == "" {
		return ""
	}
	return "BDD-" + test + "-" + step
}

func correlationID(key string, n int) string {
	return fmt.Sprintf("%s-%d", key, n)
}
